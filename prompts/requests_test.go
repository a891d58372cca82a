package prompts

import (
	"strings"
	"testing"
)

func TestRequestArity(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		kind      Kind
		arity     int
		maxTokens int
	}{
		{"table labels", TableLabelRequest{Context: "ctx"}, KindTableLabels, 2, 50},
		{"column labels", ColumnLabelRequest{Context: "ctx", Column: "c"}, KindColumnLabels, 3, 50},
		{"category induction", CategoryInductionRequest{Sources: []string{"a"}}, KindCategoryInduction, 0, 200},
		{"category assignment", CategoryAssignmentRequest{}, KindCategoryAssignment, 2, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Kind(); got != tt.kind {
				t.Errorf("Kind() = %s, want %s", got, tt.kind)
			}
			if got := tt.req.Arity(); got != tt.arity {
				t.Errorf("Arity() = %d, want %d", got, tt.arity)
			}
			if got := tt.req.MaxTokens(); got != tt.maxTokens {
				t.Errorf("MaxTokens() = %d, want %d", got, tt.maxTokens)
			}
		})
	}
}

func TestTableLabelRequest_Prompt(t *testing.T) {
	prompt := TableLabelRequest{Context: "The table \"t\" contains the above columns."}.Prompt()

	if !strings.HasPrefix(prompt, "\"\"\"\nThe table \"t\" contains the above columns.\n\"\"\"\n") {
		t.Errorf("context block should be fenced, got %q", prompt)
	}
	for _, slot := range []string{"content: {...}", "role: {...}"} {
		if !strings.Contains(prompt, slot) {
			t.Errorf("prompt missing slot %q", slot)
		}
	}
}

func TestColumnLabelRequest_Prompt(t *testing.T) {
	prompt := ColumnLabelRequest{Context: "ctx", Column: "amount"}.Prompt()

	if !strings.Contains(prompt, `labels for the column "amount"`) {
		t.Error("prompt should name the column")
	}
	for _, slot := range []string{"content: {...}", "category: {...}", "data type: {...}"} {
		if !strings.Contains(prompt, slot) {
			t.Errorf("prompt missing slot %q", slot)
		}
	}
}

func TestCategoryInductionRequest_Prompt(t *testing.T) {
	prompt := CategoryInductionRequest{Sources: []string{"fact sales", "dimension customers"}}.Prompt()

	want := "fact sales\ndimension customers\nAssign the above items into 10 categories. List only the categories. Enclose each category in curly braces."
	if prompt != want {
		t.Errorf("Prompt() = %q, want %q", prompt, want)
	}

	custom := CategoryInductionRequest{Sources: []string{"x"}, Categories: 4}.Prompt()
	if !strings.Contains(custom, "into 4 categories") {
		t.Errorf("custom category count not rendered: %q", custom)
	}
}

func TestCategoryAssignmentRequest_Prompt(t *testing.T) {
	prefix := CategoryPrefix([]string{"Sales", "Customers"})
	prompt := CategoryAssignmentRequest{
		Prefix: prefix,
		Metadata: []MetadataLine{
			{Key: "KBC.guessed.content", Value: "sales data"},
			{Key: "KBC.guessed.role", Value: "fact"},
		},
	}.Prompt()

	want := "Sales\nCustomers\n" +
		"Assign two of the above categories to the following object. Enclose each category in curly braces.\n" +
		"KBC.guessed.content: sales data\n" +
		"KBC.guessed.role: fact\n" +
		"1. category:\n2. category:"
	if prompt != want {
		t.Errorf("Prompt() = %q, want %q", prompt, want)
	}
}

func TestCategoryPrefix_Empty(t *testing.T) {
	if got := CategoryPrefix(nil); got != "" {
		t.Errorf("CategoryPrefix(nil) = %q, want empty", got)
	}
}
