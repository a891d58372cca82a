package tagger

import "github.com/c360studio/semtag/storage"

// Kind distinguishes table-level from column-level items.
type Kind string

const (
	KindTable  Kind = "table"
	KindColumn Kind = "column"
)

// Metadata keys written back to storage.
const (
	KeyContent   = "KBC.guessed.content"
	KeyRole      = "KBC.guessed.role"
	KeyCategory1 = "KBC.guessed.category1"
	KeyCategory2 = "KBC.guessed.category2"
	KeyCategory  = "KBC.guessed.category"
	KeyDataType  = "KBC.guessed.dataType"
)

// Metadatum is one generated key/value pair for a table or a column.
type Metadatum struct {
	// ID is the table id, or "<tableId>.<column>" for column metadata.
	ID    string `json:"id"`
	Kind  Kind   `json:"kind"`
	Key   string `json:"key"`
	Value string `json:"value"`
	// Name is the column name for column metadata.
	Name string `json:"name,omitempty"`
}

// Tag is the label concatenation fed to category induction.
type Tag struct {
	ID     string `json:"id"`
	Kind   Kind   `json:"kind"`
	Source string `json:"source"`
}

// TableResult holds the metadata generated for one table.
type TableResult struct {
	TableID string      `json:"table_id"`
	Table   []Metadatum `json:"table"`
	Columns []Metadatum `json:"columns"`
}

// TableValues returns the table metadata as a key/value map.
func (r TableResult) TableValues() map[string]string {
	out := make(map[string]string, len(r.Table))
	for _, m := range r.Table {
		out[m.Key] = m.Value
	}
	return out
}

// StorageInput converts the result into the storage API shape, with column
// metadata grouped by column name.
func (r TableResult) StorageInput() ([]storage.MetadataValueInput, map[string][]storage.MetadataValueInput) {
	table := make([]storage.MetadataValueInput, 0, len(r.Table))
	for _, m := range r.Table {
		table = append(table, storage.MetadataValueInput{Key: m.Key, Value: m.Value})
	}

	columns := make(map[string][]storage.MetadataValueInput)
	for _, m := range r.Columns {
		columns[m.Name] = append(columns[m.Name], storage.MetadataValueInput{Key: m.Key, Value: m.Value})
	}
	return table, columns
}

// Result is the output of a full tagging run, in filtered-table order.
type Result struct {
	Tables     []TableResult `json:"tables"`
	Tags       []Tag         `json:"tags"`
	Categories []string      `json:"categories"`
}
