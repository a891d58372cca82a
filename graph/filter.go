package graph

import (
	"fmt"
	"regexp"

	"github.com/bmatcuk/doublestar/v4"
)

// ExclusionReason classifies why a table was dropped by Filter.
type ExclusionReason string

const (
	// ReasonNoConfiguration means the table carries no last-updated configuration.
	ReasonNoConfiguration ExclusionReason = "no-configuration"
	// ReasonUnknownConfiguration means the referenced configuration does not exist.
	ReasonUnknownConfiguration ExclusionReason = "unknown-configuration"
	// ReasonNoFlowMatch means the configuration belongs to none of the requested flows.
	ReasonNoFlowMatch ExclusionReason = "no-flow-match"
	// ReasonPattern means a regular expression matched the table id.
	ReasonPattern ExclusionReason = "excluded-by-pattern"
	// ReasonGlob means a glob pattern matched the table id.
	ReasonGlob ExclusionReason = "excluded-by-glob"
)

// Exclusion records a dropped table.
type Exclusion struct {
	TableID string
	Reason  ExclusionReason
	Message string
}

// FilterOptions selects the tables to tag.
type FilterOptions struct {
	// IncludeFlows keeps only tables produced by a configuration of one of
	// these flows. Empty disables the flow filter.
	IncludeFlows []string
	// ExcludePatterns drop tables whose id matches any of them.
	ExcludePatterns []*regexp.Regexp
	// ExcludeGlobs drop tables whose id matches any of these doublestar patterns.
	ExcludeGlobs []string
}

// FilterResult holds the surviving tables in input order and every exclusion.
type FilterResult struct {
	Kept     []Table
	Excluded []Exclusion
	// Flows maps kept table ids to the matching flow when the flow filter ran.
	Flows map[string]string
}

// Filter narrows tables by flow membership and then by id patterns.
// The input is not modified.
func Filter(tables []Table, catalog *Catalog, opts FilterOptions) FilterResult {
	result := FilterResult{Flows: make(map[string]string)}

	kept := tables
	if len(opts.IncludeFlows) > 0 {
		kept = make([]Table, 0, len(tables))
		for _, t := range tables {
			flowID, exclusion := matchFlow(t, catalog, opts.IncludeFlows)
			if exclusion != nil {
				result.Excluded = append(result.Excluded, *exclusion)
				continue
			}
			result.Flows[t.ID] = flowID
			kept = append(kept, t)
		}
	}

	for _, pattern := range opts.ExcludePatterns {
		kept = dropMatching(kept, &result, func(id string) bool {
			return pattern.MatchString(id)
		}, ReasonPattern, pattern.String())
	}

	for _, glob := range opts.ExcludeGlobs {
		kept = dropMatching(kept, &result, func(id string) bool {
			ok, err := doublestar.Match(glob, id)
			return err == nil && ok
		}, ReasonGlob, glob)
	}

	result.Kept = make([]Table, len(kept))
	copy(result.Kept, kept)
	return result
}

func matchFlow(t Table, catalog *Catalog, includeFlows []string) (string, *Exclusion) {
	key, ok := t.ConfigKey()
	if !ok {
		return "", &Exclusion{
			TableID: t.ID,
			Reason:  ReasonNoConfiguration,
			Message: fmt.Sprintf("Table %q excluded because no configuration is associated to it.", t.ID),
		}
	}

	cfg, ok := catalog.Configuration(key)
	if !ok {
		return "", &Exclusion{
			TableID: t.ID,
			Reason:  ReasonUnknownConfiguration,
			Message: fmt.Sprintf("Table %q excluded because configuration %s of component %s does not exist.",
				t.ID, key.ConfigurationID, key.ComponentID),
		}
	}

	flowID, ok := cfg.InFlow(includeFlows)
	if !ok {
		return "", &Exclusion{
			TableID: t.ID,
			Reason:  ReasonNoFlowMatch,
			Message: fmt.Sprintf("Table %q excluded because none of the flows is matched.", t.ID),
		}
	}
	return flowID, nil
}

func dropMatching(tables []Table, result *FilterResult, match func(string) bool, reason ExclusionReason, pattern string) []Table {
	out := make([]Table, 0, len(tables))
	for _, t := range tables {
		if match(t.ID) {
			result.Excluded = append(result.Excluded, Exclusion{
				TableID: t.ID,
				Reason:  reason,
				Message: fmt.Sprintf("Table %q excluded by pattern %q.", t.ID, pattern),
			})
			delete(result.Flows, t.ID)
			continue
		}
		out = append(out, t)
	}
	return out
}
