package graph

import (
	"encoding/json"
	"testing"

	"github.com/c360studio/semtag/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testComponents() []storage.Component {
	return []storage.Component{
		{
			ID:          "keboola.ex-db-mysql",
			Name:        "MySQL",
			Type:        "extractor",
			Description: "Extracts data from MySQL",
			Configurations: []storage.ComponentConfiguration{
				{ID: "101", Name: "CRM", Description: "CRM database"},
				{ID: "102", Name: "Billing"},
			},
		},
		{
			ID:   "keboola.snowflake-transformation",
			Name: "Snowflake SQL",
			Type: "transformation",
			Configurations: []storage.ComponentConfiguration{
				{ID: "201", Name: "Sales model"},
			},
		},
		{
			ID:   "keboola.scheduler",
			Name: "Scheduler",
			Configurations: []storage.ComponentConfiguration{
				{ID: "301", Name: "Every night"},
			},
		},
		{
			ID:   "keboola.orchestrator",
			Name: "Orchestrator",
			Configurations: []storage.ComponentConfiguration{
				{
					ID:          "900",
					Name:        "Nightly",
					Description: "Runs\nevery night",
					Configuration: storage.NewTaskBody(
						storage.Task{Task: storage.TaskTarget{ComponentID: "keboola.ex-db-mysql", ConfigID: "101"}},
						storage.Task{Task: storage.TaskTarget{ComponentID: "keboola.snowflake-transformation", ConfigID: "201"}},
						storage.Task{Task: storage.TaskTarget{ComponentID: "keboola.ex-db-mysql", ConfigID: "101"}},
						storage.Task{Task: storage.TaskTarget{ComponentID: "keboola.ex-db-mysql", ConfigID: "999"}},
					),
				},
				{
					ID:   "800",
					Name: "Hourly",
					Configuration: storage.NewTaskBody(
						storage.Task{Task: storage.TaskTarget{ComponentID: "keboola.ex-db-mysql", ConfigID: "101"}},
					),
				},
			},
		},
	}
}

func TestBuild_SkipsDenylistedComponents(t *testing.T) {
	catalog := Build(testComponents(), BuildOptions{})

	configs := catalog.Configurations()
	require.Len(t, configs, 3)
	for _, cfg := range configs {
		assert.NotContains(t, DefaultDenylist, cfg.ComponentID)
	}

	_, ok := catalog.Configuration(ConfigKey{ComponentID: "keboola.scheduler", ConfigurationID: "301"})
	assert.False(t, ok)
}

func TestBuild_LinksFlows(t *testing.T) {
	catalog := Build(testComponents(), BuildOptions{})

	crm, ok := catalog.Configuration(ConfigKey{ComponentID: "keboola.ex-db-mysql", ConfigurationID: "101"})
	require.True(t, ok)
	assert.Equal(t, []string{"800", "900"}, crm.Flows, "flows are deduplicated and sorted")
	assert.Equal(t, "MySQL", crm.ComponentName)
	assert.Equal(t, "Extracts data from MySQL", crm.ComponentDescription)

	model, ok := catalog.Configuration(ConfigKey{ComponentID: "keboola.snowflake-transformation", ConfigurationID: "201"})
	require.True(t, ok)
	assert.Equal(t, []string{"900"}, model.Flows)

	billing, ok := catalog.Configuration(ConfigKey{ComponentID: "keboola.ex-db-mysql", ConfigurationID: "102"})
	require.True(t, ok)
	assert.Empty(t, billing.Flows, "unmatched tasks do not touch other records")

	flow, ok := catalog.Flow("900")
	require.True(t, ok)
	assert.Equal(t, "Nightly", flow.Name)
	assert.Equal(t, 2, catalog.FlowCount())
}

func TestBuild_WithoutOrchestrator(t *testing.T) {
	components := testComponents()[:2]

	catalog := Build(components, BuildOptions{})

	for _, cfg := range catalog.Configurations() {
		assert.Empty(t, cfg.Flows)
	}
	assert.Equal(t, 0, catalog.FlowCount())
}

func TestBuild_CustomOptions(t *testing.T) {
	catalog := Build(testComponents(), BuildOptions{
		OrchestratorID: "keboola.orchestrator",
		Denylist:       []string{"keboola.snowflake-transformation"},
	})

	_, ok := catalog.Configuration(ConfigKey{ComponentID: "keboola.snowflake-transformation", ConfigurationID: "201"})
	assert.False(t, ok)

	_, ok = catalog.Configuration(ConfigKey{ComponentID: "keboola.scheduler", ConfigurationID: "301"})
	assert.True(t, ok, "custom denylist replaces the default one")
}

func TestBuild_DoesNotAliasInput(t *testing.T) {
	components := testComponents()
	catalog := Build(components, BuildOptions{})

	components[0].Configurations[0].Name = "changed"

	crm, _ := catalog.Configuration(ConfigKey{ComponentID: "keboola.ex-db-mysql", ConfigurationID: "101"})
	assert.Equal(t, "CRM", crm.ConfigurationName)

	configs := catalog.Configurations()
	configs[0].Flows[0] = "mutated"
	again := catalog.Configurations()
	assert.NotEqual(t, "mutated", again[0].Flows[0])
}

func TestBuild_ForeignAndMalformedBodies(t *testing.T) {
	var components []storage.Component
	require.NoError(t, json.Unmarshal([]byte(`[
		{"id":"keboola.ex-generic","configurations":[{"id":"1","name":"API","configuration":{"tasks":["a","b"]}}]},
		{"id":"keboola.orchestrator","configurations":[
		  {"id":"900","name":"Nightly","configuration":{"tasks":[{"task":{"componentId":"keboola.ex-generic","configId":"1"}}]}},
		  {"id":"901","name":"Broken","configuration":{"tasks":"oops"}}]}
	]`), &components))

	catalog := Build(components, BuildOptions{})

	generic, ok := catalog.Configuration(ConfigKey{ComponentID: "keboola.ex-generic", ConfigurationID: "1"})
	require.True(t, ok)
	assert.Equal(t, []string{"900"}, generic.Flows)

	broken, ok := catalog.Flow("901")
	require.True(t, ok, "a flow with an unreadable body is still known")
	assert.Equal(t, "Broken", broken.Name)
}

func TestBuildTables(t *testing.T) {
	tables := BuildTables([]storage.Table{
		{
			ID:      "out.c-main.sales",
			Name:    "sales",
			Columns: []string{"amount", "date"},
			Metadata: []storage.MetadataEntry{
				{Key: MetaLastUpdatedComponent, Value: "keboola.snowflake-transformation"},
				{Key: MetaLastUpdatedConfiguration, Value: "201"},
			},
		},
		{ID: "in.c-crm.customers", Name: "customers"},
	})

	require.Len(t, tables, 2)
	assert.Equal(t, []Column{{Name: "amount"}, {Name: "date"}}, tables[0].Columns)

	key, ok := tables[0].ConfigKey()
	assert.True(t, ok)
	assert.Equal(t, "keboola.snowflake-transformation/201", key.String())

	_, ok = tables[1].ConfigKey()
	assert.False(t, ok)
	assert.Empty(t, tables[1].Columns)
}

func TestTable_WithSamples(t *testing.T) {
	table := Table{ID: "t", Columns: []Column{{Name: "a"}, {Name: "b"}}}

	enriched := table.WithSamples(map[string][]string{"a": {"x", "y"}, "zzz": {"ignored"}})

	assert.Equal(t, []string{"x", "y"}, enriched.Columns[0].SampleValues)
	assert.False(t, enriched.Columns[1].HasSamples())
	assert.Nil(t, table.Columns[0].SampleValues, "original is untouched")
}

func TestTable_WithSamples_DoesNotAliasExistingSamples(t *testing.T) {
	table := Table{ID: "t", Columns: []Column{{Name: "a", SampleValues: []string{"keep"}}}}

	enriched := table.WithSamples(nil)
	require.Equal(t, []string{"keep"}, enriched.Columns[0].SampleValues)

	enriched.Columns[0].SampleValues[0] = "changed"
	assert.Equal(t, "keep", table.Columns[0].SampleValues[0])
}
