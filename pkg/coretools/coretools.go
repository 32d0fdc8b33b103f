// Package coretools registers the built-in data tools: loading the
// player snapshot and translating English requests into transformation
// snippets.
package coretools

import (
	"context"
	"errors"
	"fmt"

	"github.com/marcvidal/datapilot/pkg/frame"
	"github.com/marcvidal/datapilot/pkg/planner"
	"github.com/marcvidal/datapilot/pkg/tools"
)

// SnapshotGetter is the dataset source, satisfied by *snapshot.Cache.
type SnapshotGetter interface {
	Get(ctx context.Context) (*frame.Frame, error)
}

// Options configures core tool registration.
type Options struct {
	Snapshot SnapshotGetter
}

// Register installs the core tools into the registry and wires the code
// tool's normalization override.
func Register(registry *tools.Registry, normalizer *planner.Normalizer, opts Options) error {
	if registry == nil {
		return errors.New("registry is required")
	}
	if opts.Snapshot == nil {
		return errors.New("snapshot source is required")
	}

	defs := []tools.Definition{
		loadSnapshotTool(opts.Snapshot),
		nlToCodeTool(),
	}
	for _, def := range defs {
		if err := registry.Register(def); err != nil {
			return fmt.Errorf("registering %s: %w", def.Name, err)
		}
	}

	if normalizer != nil {
		normalizer.RegisterOverride(ToolNLToCode, planner.CodeOverride())
	}
	return nil
}

// Tool names exposed to the planner.
const (
	ToolLoadSnapshot = "load_player_snapshot"
	ToolNLToCode     = "nl_to_code"
)

func loadSnapshotTool(source SnapshotGetter) tools.Definition {
	return tools.Definition{
		Spec: tools.Spec{
			Name:        ToolLoadSnapshot,
			Description: "Load the full player snapshot table as a dataframe. Takes no arguments.",
			Parameters: map[string]interface{}{
				"type":                 "object",
				"properties":           map[string]interface{}{},
				"additionalProperties": false,
			},
		},
		Handler: func(ctx context.Context, args map[string]interface{}) (interface{}, error) {
			return source.Get(ctx)
		},
	}
}

func nlToCodeTool() tools.Definition {
	return tools.Definition{
		Spec: tools.Spec{
			Name: ToolNLToCode,
			Description: "Translate an English transformation request into a validated " +
				"pandas-style snippet operating on the loaded snapshot. " +
				"Returns the code; it does not run it.",
			Parameters: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"user_query": map[string]interface{}{
						"type":        "string",
						"description": "The transformation request in plain English",
					},
					"table": map[string]interface{}{
						"type":        "string",
						"description": "The snapshot table the request refers to",
					},
				},
				"required":             []string{"user_query"},
				"additionalProperties": false,
			},
		},
		ContextHandler: generateCode,
	}
}
