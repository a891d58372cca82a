package graph

import (
	"fmt"
	"slices"
)

// ConfigKey identifies a configuration within a project.
type ConfigKey struct {
	ComponentID     string
	ConfigurationID string
}

// String returns the key as "componentId/configurationId".
func (k ConfigKey) String() string {
	return fmt.Sprintf("%s/%s", k.ComponentID, k.ConfigurationID)
}

// Configuration is a component configuration together with the flows it belongs to.
type Configuration struct {
	ConfigurationID          string
	ConfigurationName        string
	ConfigurationDescription string
	ComponentID              string
	ComponentName            string
	ComponentType            string
	ComponentDescription     string

	// Flows holds the ids of orchestrator configurations running this
	// configuration, sorted and deduplicated.
	Flows []string
}

// Key returns the identity key of the configuration.
func (c Configuration) Key() ConfigKey {
	return ConfigKey{ComponentID: c.ComponentID, ConfigurationID: c.ConfigurationID}
}

func (c Configuration) clone() Configuration {
	c.Flows = append([]string(nil), c.Flows...)
	return c
}

// InFlow reports whether the configuration belongs to any of the given flows.
func (c Configuration) InFlow(flowIDs []string) (string, bool) {
	for _, id := range c.Flows {
		for _, want := range flowIDs {
			if id == want {
				return id, true
			}
		}
	}
	return "", false
}

// Flow is an orchestrator configuration.
type Flow struct {
	ID          string
	Name        string
	Description string
}

// Column is a table column with the sample values observed for it.
type Column struct {
	Name         string
	SampleValues []string
}

// HasSamples reports whether any sample value was collected.
func (c Column) HasSamples() bool {
	return len(c.SampleValues) > 0
}

// Table is a storage table and the configuration that last wrote it.
type Table struct {
	ID                         string
	Name                       string
	LastUpdatedComponentID     string
	LastUpdatedConfigurationID string
	Columns                    []Column
}

// ConfigKey returns the key of the producing configuration and whether both ids are known.
func (t Table) ConfigKey() (ConfigKey, bool) {
	if t.LastUpdatedComponentID == "" || t.LastUpdatedConfigurationID == "" {
		return ConfigKey{}, false
	}
	return ConfigKey{ComponentID: t.LastUpdatedComponentID, ConfigurationID: t.LastUpdatedConfigurationID}, true
}

// WithSamples returns a copy of the table whose columns carry the given samples.
// Column names and order are unchanged; samples for unknown columns are ignored.
func (t Table) WithSamples(samples map[string][]string) Table {
	out := t
	out.Columns = make([]Column, len(t.Columns))
	for i, col := range t.Columns {
		out.Columns[i] = Column{Name: col.Name, SampleValues: slices.Clone(col.SampleValues)}
		if values, ok := samples[col.Name]; ok && len(values) > 0 {
			out.Columns[i].SampleValues = append([]string(nil), values...)
		}
	}
	return out
}

// Catalog is the read-only context graph of a project.
type Catalog struct {
	configurations []Configuration
	byKey          map[ConfigKey]int
	flows          map[string]Flow
}

// Configurations returns the configurations in listing order.
func (c *Catalog) Configurations() []Configuration {
	if c == nil {
		return nil
	}
	out := make([]Configuration, len(c.configurations))
	for i, cfg := range c.configurations {
		out[i] = cfg.clone()
	}
	return out
}

// Configuration looks up a configuration by key.
func (c *Catalog) Configuration(key ConfigKey) (Configuration, bool) {
	if c == nil {
		return Configuration{}, false
	}
	idx, ok := c.byKey[key]
	if !ok {
		return Configuration{}, false
	}
	return c.configurations[idx].clone(), true
}

// ConfigurationFor returns the configuration that last wrote the table.
func (c *Catalog) ConfigurationFor(t Table) (Configuration, bool) {
	key, ok := t.ConfigKey()
	if !ok {
		return Configuration{}, false
	}
	return c.Configuration(key)
}

// Flow looks up a flow by its orchestrator configuration id.
func (c *Catalog) Flow(id string) (Flow, bool) {
	if c == nil {
		return Flow{}, false
	}
	f, ok := c.flows[id]
	return f, ok
}

// FlowCount returns the number of known flows.
func (c *Catalog) FlowCount() int {
	if c == nil {
		return 0
	}
	return len(c.flows)
}
