package planner

import (
	"fmt"
	"time"

	"github.com/marcvidal/datapilot/pkg/frame"
)

// Plan is an ordered, human-approvable sequence of tool invocations.
type Plan struct {
	ID          string    `json:"id"`
	Steps       []Step    `json:"steps"`
	Why         string    `json:"why"`
	Assumptions []string  `json:"assumptions"`
	CreatedAt   time.Time `json:"created_at"`
}

// Step is one planned tool invocation with its arguments.
type Step struct {
	Tool string                 `json:"tool"`
	Args map[string]interface{} `json:"args"`
}

// Status is the outcome class of one executed step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Kind is the closed set of normalized result categories.
type Kind string

const (
	KindDataFrame Kind = "dataframe"
	KindJSON      Kind = "json"
	KindText      Kind = "text"
	KindScalar    Kind = "scalar"
	KindCode      Kind = "code"
	KindUnknown   Kind = "unknown"
)

// Observation is the compact, trace-safe summary of a step's outcome.
// It never carries full payloads.
type Observation struct {
	Tool   string      `json:"tool"`
	Status Status      `json:"status"`
	Kind   Kind        `json:"type,omitempty"`
	Shape  []int       `json:"shape,omitempty"`  // dataframe: [rows, cols]
	Length int         `json:"length,omitempty"` // text/code: character count
	Count  int         `json:"count,omitempty"`  // json: element count
	Value  interface{} `json:"value,omitempty"`  // scalar: the value itself
	Reason string      `json:"reason,omitempty"` // skipped: why
	Error  string      `json:"error,omitempty"`
}

// Artifact is the full-fidelity payload produced by a step, retained for
// downstream use and discarded when a new plan replaces the result.
type Artifact struct {
	Kind      Kind                  `json:"type"`
	Frame     *frame.Frame          `json:"-"`
	Columns   []string              `json:"columns,omitempty"`
	Preview   []map[string]frame.Value `json:"preview,omitempty"`
	Code      string                `json:"code,omitempty"`
	Text      string                `json:"text,omitempty"`
	Truncated bool                  `json:"truncated,omitempty"`
	Value     interface{}           `json:"value,omitempty"`
	Raw       interface{}           `json:"-"`
}

// ExecutionResult is the outcome of one execution attempt. Observations
// are index-aligned with the plan's steps; artifacts are keyed by step.
type ExecutionResult struct {
	Observations []Observation        `json:"observations"`
	Artifacts    map[string]*Artifact `json:"artifacts"`
}

// StepKey returns the artifact key for step index i.
func StepKey(i int) string {
	return fmt.Sprintf("step_%d", i)
}
