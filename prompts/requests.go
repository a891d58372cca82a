package prompts

import (
	"fmt"
	"strings"
)

// Kind names a request variant.
type Kind string

const (
	KindTableLabels        Kind = "table_labels"
	KindColumnLabels       Kind = "column_labels"
	KindCategoryInduction  Kind = "category_induction"
	KindCategoryAssignment Kind = "category_assignment"
)

// Token budgets for completions.
const (
	DefaultMaxTokens   = 50
	InductionMaxTokens = 200
)

// DefaultCategoryCount is the number of categories the induction request asks for.
const DefaultCategoryCount = 10

// Request is a completion request with a fixed label arity.
// An arity of zero accepts any number of labels.
type Request interface {
	Kind() Kind
	Arity() int
	MaxTokens() int
	Prompt() string
}

// TableLabelRequest asks for the content and role labels of a table.
type TableLabelRequest struct {
	Context string
}

func (r TableLabelRequest) Kind() Kind     { return KindTableLabels }
func (r TableLabelRequest) Arity() int     { return 2 }
func (r TableLabelRequest) MaxTokens() int { return DefaultMaxTokens }

func (r TableLabelRequest) Prompt() string {
	return fence(r.Context) + `
Generate two labels for the table representing the content and role.
Insert each label in curly braces.

content: {...}
role: {...}
`
}

// ColumnLabelRequest asks for the content, category and data type labels of a column.
type ColumnLabelRequest struct {
	Context string
	Column  string
}

func (r ColumnLabelRequest) Kind() Kind     { return KindColumnLabels }
func (r ColumnLabelRequest) Arity() int     { return 3 }
func (r ColumnLabelRequest) MaxTokens() int { return DefaultMaxTokens }

func (r ColumnLabelRequest) Prompt() string {
	return fence(r.Context) + fmt.Sprintf(`
Generate three labels for the column "%s" representing the content, category, data type.
Insert each label in curly braces.

content: {...}
category: {...}
data type: {...}
`, r.Column)
}

// CategoryInductionRequest asks the model to group tag sources into categories.
// Categories is a hint; the number of returned labels is not enforced.
type CategoryInductionRequest struct {
	Sources    []string
	Categories int
}

func (r CategoryInductionRequest) Kind() Kind     { return KindCategoryInduction }
func (r CategoryInductionRequest) Arity() int     { return 0 }
func (r CategoryInductionRequest) MaxTokens() int { return InductionMaxTokens }

func (r CategoryInductionRequest) Prompt() string {
	count := r.Categories
	if count <= 0 {
		count = DefaultCategoryCount
	}
	var sb strings.Builder
	for _, s := range r.Sources {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Assign the above items into %d categories. List only the categories. Enclose each category in curly braces.", count)
	return sb.String()
}

// MetadataLine is a key/value line describing the object to categorize.
type MetadataLine struct {
	Key   string
	Value string
}

// CategoryAssignmentRequest asks for two of the induced categories for one table.
type CategoryAssignmentRequest struct {
	// Prefix lists the induced categories, see CategoryPrefix.
	Prefix   string
	Metadata []MetadataLine
}

func (r CategoryAssignmentRequest) Kind() Kind     { return KindCategoryAssignment }
func (r CategoryAssignmentRequest) Arity() int     { return 2 }
func (r CategoryAssignmentRequest) MaxTokens() int { return DefaultMaxTokens }

func (r CategoryAssignmentRequest) Prompt() string {
	var sb strings.Builder
	sb.WriteString(r.Prefix)
	sb.WriteString("Assign two of the above categories to the following object. Enclose each category in curly braces.\n")
	for _, m := range r.Metadata {
		fmt.Fprintf(&sb, "%s: %s\n", m.Key, m.Value)
	}
	sb.WriteString("1. category:\n2. category:")
	return sb.String()
}

// CategoryPrefix renders the induced categories one per line. It is shared
// by all assignment requests of a run.
func CategoryPrefix(categories []string) string {
	if len(categories) == 0 {
		return ""
	}
	return strings.Join(categories, "\n") + "\n"
}

func fence(context string) string {
	return "\"\"\"\n" + context + "\n\"\"\"\n"
}
