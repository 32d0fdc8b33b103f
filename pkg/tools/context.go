package tools

import "github.com/marcvidal/datapilot/pkg/llm"

// ExecContext is the session handle supplied to tools that declare a
// ContextHandler. It carries the capabilities a tool may need beyond its
// step arguments: the model boundary and the dataset schema hints used to
// ground code generation.
type ExecContext struct {
	LLM    llm.Provider
	Model  string
	Schema *SchemaSpec
}

// SchemaSpec describes the snapshot table for prompt grounding.
type SchemaSpec struct {
	Table      string              `json:"table"`
	Columns    []ColumnSpec        `json:"columns"`
	DateColumn string              `json:"date_column,omitempty"`
	ValueHints map[string][]string `json:"value_hints,omitempty"`
	AliasHints map[string]string   `json:"alias_hints,omitempty"`
}

// ColumnSpec is one column with a normalized dtype name.
type ColumnSpec struct {
	Name  string `json:"name"`
	Dtype string `json:"dtype"`
}
