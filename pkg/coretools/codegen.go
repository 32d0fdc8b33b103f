package coretools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/marcvidal/datapilot/pkg/llm"
	"github.com/marcvidal/datapilot/pkg/sandbox"
	"github.com/marcvidal/datapilot/pkg/tools"
)

// generateCode asks the model for a transformation snippet, strips any
// markdown fencing, and validates the structural contract before the code
// leaves the tool. Invalid code fails this step; it never reaches the
// interpreter.
func generateCode(ctx context.Context, args map[string]interface{}, ec *tools.ExecContext) (interface{}, error) {
	if ec == nil || ec.LLM == nil {
		return nil, fmt.Errorf("code generation needs a model boundary")
	}

	query, _ := args["user_query"].(string)
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("user_query is required")
	}

	resp, err := ec.LLM.Complete(ctx, llm.Request{
		Model:        ec.Model,
		SystemPrompt: codegenRole(ec.Schema),
		Messages:     []llm.Message{{Role: "user", Content: query}},
	})
	if err != nil {
		return nil, fmt.Errorf("code generation call failed: %w", err)
	}

	code := stripFences(resp.Content)
	if err := sandbox.ValidateContract(code); err != nil {
		log.Warn().Err(err).Msg("Generated code violates the contract")
		return nil, fmt.Errorf("generated code rejected: %w", err)
	}

	log.Debug().Int("length", len(code)).Msg("Transformation snippet generated")
	return map[string]interface{}{"code": code}, nil
}

// codegenRole renders the code-generation system prompt from the schema
// hints.
func codegenRole(schema *tools.SchemaSpec) string {
	var b strings.Builder
	b.WriteString(`You translate English requests into a tiny pandas-style snippet.

Hard rules, all mandatory:
- The first line is exactly: import pandas as pd
- The second line is exactly: df = df_in.copy()
- The last assignment sets df_out to a dataframe. Never a scalar.
- No other imports. No file, network, or process access of any kind.
- Only these operations: boolean-mask filters with ==, !=, >, >=, <, <=
  combined with & and |, sort_values, head, tail, column selection with
  a column list, and len/abs/round/min/max/sum.
- Reply with the code only. No prose, no markdown fences.
`)

	if schema != nil {
		fmt.Fprintf(&b, "\nThe dataframe df_in is the %q table with columns:\n", schema.Table)
		for _, c := range schema.Columns {
			fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.Dtype)
		}
		if schema.DateColumn != "" {
			fmt.Fprintf(&b, "\nThe date column is %s.\n", schema.DateColumn)
		}
		if len(schema.ValueHints) > 0 {
			b.WriteString("\nKnown values:\n")
			for col, vals := range schema.ValueHints {
				fmt.Fprintf(&b, "- %s: %s\n", col, strings.Join(vals, ", "))
			}
		}
		if len(schema.AliasHints) > 0 {
			b.WriteString("\nWhen the user says the left term, use the right column:\n")
			for alias, col := range schema.AliasHints {
				fmt.Fprintf(&b, "- %q means %s\n", alias, col)
			}
		}
	}
	return b.String()
}

// stripFences removes a single markdown code fence around the snippet,
// tolerating a language tag on the opening fence.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 {
		return s
	}
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
