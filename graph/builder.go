// Package graph reconstructs the context graph of a project from the flat
// component and table listings: configurations, the flows that run them and
// the tables they produce.
package graph

import (
	"sort"

	"github.com/c360studio/semtag/storage"
)

// Metadata keys the Storage API sets on tables written by a configuration.
const (
	MetaLastUpdatedComponent     = "KBC.lastUpdatedBy.component.id"
	MetaLastUpdatedConfiguration = "KBC.lastUpdatedBy.configuration.id"
)

// DefaultOrchestratorID is the component id whose configurations are flows.
const DefaultOrchestratorID = "keboola.orchestrator"

// DefaultDenylist lists infrastructure components that never produce
// Configuration records.
var DefaultDenylist = []string{
	DefaultOrchestratorID,
	"orchestrator",
	"keboola.scheduler",
	"keboola.sandboxes",
}

// BuildOptions controls how the catalog is built.
type BuildOptions struct {
	// OrchestratorID is the component holding flows. Empty uses DefaultOrchestratorID.
	OrchestratorID string
	// Denylist of component ids. Nil uses DefaultDenylist.
	Denylist []string
}

func (o BuildOptions) withDefaults() BuildOptions {
	if o.OrchestratorID == "" {
		o.OrchestratorID = DefaultOrchestratorID
	}
	if o.Denylist == nil {
		o.Denylist = DefaultDenylist
	}
	return o
}

// FlowIndex maps configuration keys to the set of flows running them.
type FlowIndex map[ConfigKey]map[string]struct{}

// Add records that the flow runs the configuration. Repeated adds are no-ops.
func (idx FlowIndex) Add(key ConfigKey, flowID string) {
	set, ok := idx[key]
	if !ok {
		set = make(map[string]struct{})
		idx[key] = set
	}
	set[flowID] = struct{}{}
}

// Flows returns the sorted flow ids of a configuration.
func (idx FlowIndex) Flows(key ConfigKey) []string {
	set := idx[key]
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Build creates the catalog from the component listing.
//
// Configurations of denylisted components are skipped. Tasks of the
// orchestrator's configurations link the referenced configurations to the
// flow; when the orchestrator is not installed no flows are assigned. Only
// orchestrator bodies are decoded, so other components may carry any body.
func Build(components []storage.Component, opts BuildOptions) *Catalog {
	opts = opts.withDefaults()

	base := flattenConfigurations(components, opts.Denylist)

	byKey := make(map[ConfigKey]int, len(base))
	for i, cfg := range base {
		byKey[cfg.Key()] = i
	}

	flows := make(map[string]Flow)
	index := make(FlowIndex)
	if orchestrator, ok := findComponent(components, opts.OrchestratorID); ok {
		for _, flowCfg := range orchestrator.Configurations {
			flows[flowCfg.ID] = Flow{
				ID:          flowCfg.ID,
				Name:        flowCfg.Name,
				Description: flowCfg.Description,
			}
			tasks, err := flowCfg.Configuration.Tasks()
			if err != nil {
				// A malformed flow body still names a flow but links nothing.
				continue
			}
			for _, task := range tasks {
				key := ConfigKey{ComponentID: task.Task.ComponentID, ConfigurationID: task.Task.ConfigID}
				if _, known := byKey[key]; known {
					index.Add(key, flowCfg.ID)
				}
			}
		}
	}

	configurations := make([]Configuration, len(base))
	for i, cfg := range base {
		cfg.Flows = index.Flows(cfg.Key())
		configurations[i] = cfg
	}

	return &Catalog{
		configurations: configurations,
		byKey:          byKey,
		flows:          flows,
	}
}

func flattenConfigurations(components []storage.Component, denylist []string) []Configuration {
	denied := make(map[string]bool, len(denylist))
	for _, id := range denylist {
		denied[id] = true
	}

	var out []Configuration
	seen := make(map[ConfigKey]bool)
	for _, component := range components {
		if denied[component.ID] {
			continue
		}
		for _, cfg := range component.Configurations {
			record := Configuration{
				ConfigurationID:          cfg.ID,
				ConfigurationName:        cfg.Name,
				ConfigurationDescription: cfg.Description,
				ComponentID:              component.ID,
				ComponentName:            component.Name,
				ComponentType:            component.Type,
				ComponentDescription:     component.Description,
			}
			if seen[record.Key()] {
				continue
			}
			seen[record.Key()] = true
			out = append(out, record)
		}
	}
	return out
}

func findComponent(components []storage.Component, id string) (storage.Component, bool) {
	for _, c := range components {
		if c.ID == id {
			return c, true
		}
	}
	return storage.Component{}, false
}

// BuildTables converts the table listing into tables with empty samples.
func BuildTables(tables []storage.Table) []Table {
	out := make([]Table, 0, len(tables))
	for _, t := range tables {
		componentID, _ := t.MetadataValue(MetaLastUpdatedComponent)
		configurationID, _ := t.MetadataValue(MetaLastUpdatedConfiguration)

		columns := make([]Column, len(t.Columns))
		for i, name := range t.Columns {
			columns[i] = Column{Name: name}
		}

		out = append(out, Table{
			ID:                         t.ID,
			Name:                       t.Name,
			LastUpdatedComponentID:     componentID,
			LastUpdatedConfigurationID: configurationID,
			Columns:                    columns,
		})
	}
	return out
}
