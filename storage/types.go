package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Component is one entry of the component listing, carrying its configurations.
type Component struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name"`
	Type           string                   `json:"type"`
	Description    string                   `json:"description"`
	Configurations []ComponentConfiguration `json:"configurations"`
}

// ComponentConfiguration is a configuration of a component as listed by the API.
type ComponentConfiguration struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Configuration ConfigurationBody `json:"configuration"`
}

// ConfigurationBody is a configuration body as listed by the API. Bodies
// are kept raw because their shape is component specific; only orchestrator
// bodies are decoded, through Tasks.
type ConfigurationBody struct {
	raw   json.RawMessage
	tasks []Task
}

// NewTaskBody returns an orchestrator body carrying the given tasks.
func NewTaskBody(tasks ...Task) ConfigurationBody {
	return ConfigurationBody{tasks: tasks}
}

// UnmarshalJSON keeps the body undecoded. The empty array the API returns
// for empty bodies is treated as no body.
func (b *ConfigurationBody) UnmarshalJSON(data []byte) error {
	*b = ConfigurationBody{}
	if isEmptyArray(data) || bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	b.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Tasks decodes the tasks of an orchestrator body.
func (b ConfigurationBody) Tasks() ([]Task, error) {
	if b.tasks != nil || len(b.raw) == 0 {
		return b.tasks, nil
	}
	var body struct {
		Tasks []Task `json:"tasks"`
	}
	if err := json.Unmarshal(b.raw, &body); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return body.Tasks, nil
}

// Task is an orchestrator task entry.
type Task struct {
	ID   string     `json:"id,omitempty"`
	Task TaskTarget `json:"task"`
}

// TaskTarget references the configuration a task runs.
type TaskTarget struct {
	ComponentID string `json:"componentId"`
	ConfigID    string `json:"configId"`
}

// MetadataEntry is a metadata item as returned by the listing.
type MetadataEntry struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	Provider string `json:"provider,omitempty"`
}

// ColumnMetadata maps column names to their metadata.
type ColumnMetadata map[string][]MetadataEntry

// UnmarshalJSON accepts the empty array the API returns when no column has metadata.
func (m *ColumnMetadata) UnmarshalJSON(data []byte) error {
	if isEmptyArray(data) {
		*m = ColumnMetadata{}
		return nil
	}
	var raw map[string][]MetadataEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = raw
	return nil
}

// Table is one entry of the table listing.
type Table struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Columns        []string        `json:"columns"`
	Metadata       []MetadataEntry `json:"metadata"`
	ColumnMetadata ColumnMetadata  `json:"columnMetadata"`
}

// MetadataValue returns the value of the first metadata entry with the given key.
func (t Table) MetadataValue(key string) (string, bool) {
	for _, m := range t.Metadata {
		if m.Key == key {
			return m.Value, true
		}
	}
	return "", false
}

// PreviewCell is a single value of a data preview row.
type PreviewCell struct {
	ColumnName  string `json:"columnName"`
	Value       string `json:"value"`
	IsTruncated bool   `json:"isTruncated,omitempty"`
}

// Preview is the JSON data preview of a table.
type Preview struct {
	Columns []string        `json:"columns"`
	Rows    [][]PreviewCell `json:"rows"`
}

// MetadataValueInput is a key/value pair sent to the metadata endpoint.
type MetadataValueInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type setMetadataRequest struct {
	Provider        string                          `json:"provider"`
	Metadata        []MetadataValueInput            `json:"metadata"`
	ColumnsMetadata map[string][]MetadataValueInput `json:"columnsMetadata,omitempty"`
}

func isEmptyArray(data []byte) bool {
	return bytes.Equal(bytes.Join(bytes.Fields(data), nil), []byte("[]"))
}
