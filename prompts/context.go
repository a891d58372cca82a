// Package prompts builds the text sent to the completion service: the
// context block describing a table and the closed set of labeling requests
// appended to it.
package prompts

import (
	"fmt"
	"strings"

	"github.com/c360studio/semtag/graph"
)

// Explanation is a glossary entry explaining a term used in table or column names.
type Explanation struct {
	Source      string `yaml:"source" json:"source"`
	Explanation string `yaml:"explanation" json:"explanation"`
}

// Compose renders the context block for a table: glossary, flow, columns and
// producer, separated by blank lines. Empty sections are left out. The
// output depends only on the inputs.
func Compose(glossary []Explanation, catalog *graph.Catalog, table graph.Table) string {
	cfg, hasConfig := catalog.ConfigurationFor(table)

	sections := []string{
		glossarySection(glossary),
		flowSection(catalog, cfg, hasConfig),
		columnsSection(table.Columns),
		tableSection(table, cfg, hasConfig),
	}

	nonEmpty := sections[:0]
	for _, s := range sections {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}

func glossarySection(glossary []Explanation) string {
	lines := make([]string, 0, len(glossary))
	for _, e := range glossary {
		lines = append(lines, fmt.Sprintf("\"%s\" means %s.", e.Source, e.Explanation))
	}
	return strings.Join(lines, "\n")
}

// flowSection names the first flow, by id, that the catalog can resolve.
func flowSection(catalog *graph.Catalog, cfg graph.Configuration, ok bool) string {
	if !ok {
		return ""
	}
	for _, id := range cfg.Flows {
		flow, found := catalog.Flow(id)
		if !found {
			continue
		}
		return fmt.Sprintf("There is a flow named \"%s\" with description \"%s\".", flow.Name, collapseNewlines(flow.Description))
	}
	return ""
}

func columnsSection(columns []graph.Column) string {
	lines := make([]string, 0, len(columns))
	for _, col := range columns {
		if col.HasSamples() {
			lines = append(lines, fmt.Sprintf("The column \"%s\" with sample values: %s", col.Name, strings.Join(col.SampleValues, ", ")))
		} else {
			lines = append(lines, fmt.Sprintf("The column \"%s\".", col.Name))
		}
	}
	return strings.Join(lines, "\n")
}

func tableSection(table graph.Table, cfg graph.Configuration, ok bool) string {
	out := fmt.Sprintf("The table \"%s\" contains the above columns.", table.ID)
	if ok {
		out += fmt.Sprintf("\nThe table \"%s\" is produced by \"%s\" %s %s.", table.ID, cfg.ConfigurationName, cfg.ComponentName, cfg.ComponentType)
	}
	return out
}

func collapseNewlines(s string) string {
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
