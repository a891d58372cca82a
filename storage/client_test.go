package storage_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/c360studio/semtag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ListComponents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/storage/branch/default/components", r.URL.Path)
		assert.Equal(t, "configuration", r.URL.Query().Get("include"))
		assert.Equal(t, "secret", r.Header.Get("X-StorageApi-Token"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id":"keboola.ex-db-mysql","name":"MySQL","type":"extractor","description":"Extracts MySQL",
			 "configurations":[{"id":"101","name":"CRM","description":"crm","configuration":[]}]},
			{"id":"keboola.orchestrator","name":"Orchestrator","type":"other",
			 "configurations":[{"id":"900","name":"Nightly","description":"runs\nnightly",
			   "configuration":{"tasks":[{"id":"1","task":{"componentId":"keboola.ex-db-mysql","configId":"101","mode":"run"}}]}}]}
		]`))
	}))
	defer server.Close()

	client := storage.NewClient(server.URL+"/", "secret")

	components, err := client.ListComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, components, 2)

	assert.Equal(t, "keboola.ex-db-mysql", components[0].ID)
	emptyTasks, err := components[0].Configurations[0].Configuration.Tasks()
	require.NoError(t, err)
	assert.Empty(t, emptyTasks, "empty array body decodes to no tasks")

	tasks, err := components[1].Configurations[0].Configuration.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, storage.TaskTarget{ComponentID: "keboola.ex-db-mysql", ConfigID: "101"}, tasks[0].Task)
}

func TestClient_ListComponents_ForeignBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"keboola.ex-generic","configurations":[
			  {"id":"1","name":"API","configuration":{"tasks":["a","b"]}},
			  {"id":"2","name":"Raw","configuration":"plain string"},
			  {"id":"3","name":"Null","configuration":null}]},
			{"id":"keboola.orchestrator","configurations":[
			  {"id":"900","name":"Nightly","configuration":{"tasks":[{"task":{"componentId":"keboola.ex-generic","configId":"1"}}]}}]}
		]`))
	}))
	defer server.Close()

	components, err := storage.NewClient(server.URL, "secret").ListComponents(context.Background())
	require.NoError(t, err)
	require.Len(t, components, 2)
	require.Len(t, components[0].Configurations, 3)

	_, err = components[0].Configurations[0].Configuration.Tasks()
	assert.Error(t, err, "tasks of another shape fail only when decoded")

	nullTasks, err := components[0].Configurations[2].Configuration.Tasks()
	require.NoError(t, err)
	assert.Empty(t, nullTasks)

	tasks, err := components[1].Configurations[0].Configuration.Tasks()
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, storage.TaskTarget{ComponentID: "keboola.ex-generic", ConfigID: "1"}, tasks[0].Task)
}

func TestClient_ListTables(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/storage/tables", r.URL.Path)
		assert.Equal(t, "metadata,columns,columnMetadata", r.URL.Query().Get("include"))

		w.Write([]byte(`[
			{"id":"in.c-crm.customers","name":"customers","columns":["id","email"],
			 "metadata":[{"key":"KBC.lastUpdatedBy.component.id","value":"keboola.ex-db-mysql","provider":"system"}],
			 "columnMetadata":[]},
			{"id":"out.c-main.sales","name":"sales","columns":["amount"],
			 "columnMetadata":{"amount":[{"key":"KBC.datatype.basetype","value":"NUMERIC"}]}}
		]`))
	}))
	defer server.Close()

	client := storage.NewClient(server.URL, "secret")

	tables, err := client.ListTables(context.Background())
	require.NoError(t, err)
	require.Len(t, tables, 2)

	value, ok := tables[0].MetadataValue("KBC.lastUpdatedBy.component.id")
	assert.True(t, ok)
	assert.Equal(t, "keboola.ex-db-mysql", value)
	assert.Empty(t, tables[0].ColumnMetadata)

	_, ok = tables[1].MetadataValue("KBC.lastUpdatedBy.component.id")
	assert.False(t, ok)
	assert.Equal(t, "NUMERIC", tables[1].ColumnMetadata["amount"][0].Value)
}

func TestClient_DataPreview(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/storage/tables/in.c-crm.customers/data-preview", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))

		w.Write([]byte(`{"columns":["id"],"rows":[[{"columnName":"id","value":"1","isTruncated":false}],[{"columnName":"id","value":"2"}]]}`))
	}))
	defer server.Close()

	client := storage.NewClient(server.URL, "secret")

	preview, err := client.DataPreview(context.Background(), "in.c-crm.customers", 100)
	require.NoError(t, err)
	require.Len(t, preview.Rows, 2)
	assert.Equal(t, "2", preview.Rows[1][0].Value)
}

func TestClient_SetTableMetadata(t *testing.T) {
	var received map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/storage/tables/out.c-main.sales/metadata", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &received))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := storage.NewClient(server.URL, "secret", storage.WithProvider("semtag"))

	err := client.SetTableMetadata(context.Background(), "out.c-main.sales",
		[]storage.MetadataValueInput{{Key: "KBC.guessed.role", Value: "fact"}},
		map[string][]storage.MetadataValueInput{
			"amount": {{Key: "KBC.guessed.dataType", Value: "decimal"}},
		})
	require.NoError(t, err)

	assert.Equal(t, "semtag", received["provider"])
	assert.Len(t, received["metadata"], 1)
	columns := received["columnsMetadata"].(map[string]any)
	assert.Contains(t, columns, "amount")
}

func TestClient_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"The table \"in.c-x.y\" was not found"}`))
	}))
	defer server.Close()

	client := storage.NewClient(server.URL, "secret")

	_, err := client.DataPreview(context.Background(), "in.c-x.y", 10)
	require.Error(t, err)

	var apiErr *storage.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
	assert.Contains(t, err.Error(), "in.c-x.y")
}

func TestClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := storage.NewClient(server.URL, "secret")

	_, err := client.ListTables(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}
