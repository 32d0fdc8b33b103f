// Package tools registers the data tools a plan can invoke.
//
// Invariants:
// - Tool names are unique.
// - Parameter schemas are compiled at registration time.
// - Resolving an unknown name never fails hard; callers receive a
//   sentinel so plan execution can record a skipped step instead of
//   aborting.
package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/xeipuuv/gojsonschema"

	"github.com/marcvidal/datapilot/pkg/llm"
)

// Phase selects which subset of tools is exposed. The planning phase may
// expose a strictly smaller virtual tool set than the execution phase.
type Phase string

const (
	PhasePlanning  Phase = "planning"
	PhaseExecution Phase = "execution"
)

// Handler executes a tool with its step arguments.
type Handler func(ctx context.Context, args map[string]interface{}) (interface{}, error)

// ContextHandler executes a tool that additionally needs a handle back to
// the session context. Whether a tool gets the handle is declared at
// registration time, never discovered by signature inspection.
type ContextHandler func(ctx context.Context, args map[string]interface{}, ec *ExecContext) (interface{}, error)

// Spec is the declarative capability description consumed by the
// language-model boundary. It is never executed directly.
type Spec struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// LLMTool converts the spec into the shape the provider boundary expects.
func (s Spec) LLMTool() llm.Tool {
	return llm.Tool{Name: s.Name, Description: s.Description, Parameters: s.Parameters}
}

// Definition binds a spec to an implementation.
type Definition struct {
	Spec
	Handler        Handler
	ContextHandler ContextHandler
	Phases         []Phase
}

// NeedsContext reports whether the tool receives the session handle.
func (d *Definition) NeedsContext() bool {
	return d.ContextHandler != nil
}

// InPhase reports whether the tool is exposed during the given phase.
// A definition with no phases is exposed everywhere.
func (d *Definition) InPhase(phase Phase) bool {
	if len(d.Phases) == 0 {
		return true
	}
	for _, p := range d.Phases {
		if p == phase {
			return true
		}
	}
	return false
}

// Registry maps tool names to definitions.
type Registry struct {
	defs    map[string]*Definition
	schemas map[string]*gojsonschema.Schema
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		defs:    make(map[string]*Definition),
		schemas: make(map[string]*gojsonschema.Schema),
	}
}

// Register adds a tool definition. Names must be unique and exactly one
// of Handler or ContextHandler must be set.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if def.Description == "" {
		return fmt.Errorf("tool description cannot be empty for %s", def.Name)
	}
	if (def.Handler == nil) == (def.ContextHandler == nil) {
		return fmt.Errorf("tool %s must set exactly one of Handler or ContextHandler", def.Name)
	}

	var schema *gojsonschema.Schema
	if def.Parameters != nil {
		var err error
		schema, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(def.Parameters))
		if err != nil {
			return fmt.Errorf("invalid parameter schema for %s: %w", def.Name, err)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.defs[def.Name]; exists {
		return fmt.Errorf("tool already registered: %s", def.Name)
	}
	r.defs[def.Name] = &def
	r.schemas[def.Name] = schema

	log.Info().Str("tool", def.Name).Bool("needs_context", def.NeedsContext()).Msg("Tool registered")
	return nil
}

// Resolve looks up a tool by name. The boolean result is the only failure
// signal; an unknown name is not an error.
func (r *Registry) Resolve(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	return def, ok
}

// Specs returns the capability specs exposed during the given phase,
// sorted by name for deterministic prompts.
func (r *Registry) Specs(phase Phase) []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.defs))
	for _, def := range r.defs {
		if def.InPhase(phase) {
			specs = append(specs, def.Spec)
		}
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

// ValidateArgs checks step arguments against a tool's parameter schema.
// Used by the planning boundary; execution does not re-validate.
func (r *Registry) ValidateArgs(name string, args map[string]interface{}) error {
	r.mu.RLock()
	schema := r.schemas[name]
	r.mu.RUnlock()

	if schema == nil {
		return nil
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	result, err := schema.Validate(gojsonschema.NewGoLoader(args))
	if err != nil {
		return err
	}
	if !result.Valid() {
		errs := []string{}
		for _, e := range result.Errors() {
			errs = append(errs, e.String())
		}
		return fmt.Errorf("invalid arguments for %s: %v", name, errs)
	}
	return nil
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}
