package planner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marcvidal/datapilot/internal/metrics"
	"github.com/marcvidal/datapilot/pkg/tools"
)

// Executor runs an approved plan's steps strictly in sequence. Per-step
// failure is isolated: an unknown tool or a handler error is recorded in
// that step's observation and execution continues. The plan never aborts
// early.
type Executor struct {
	registry   *tools.Registry
	normalizer *Normalizer
	metrics    *metrics.Metrics
}

// NewExecutor creates a plan executor.
func NewExecutor(registry *tools.Registry, normalizer *Normalizer) *Executor {
	return &Executor{registry: registry, normalizer: normalizer}
}

// SetMetrics attaches an optional metrics sink.
func (e *Executor) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// Execute runs every step of the plan in order and returns one result per
// attempt. Guarantee: len(result.Observations) == len(plan.Steps), with
// observation i corresponding to step i even when earlier steps failed.
func (e *Executor) Execute(ctx context.Context, plan *Plan, execCtx *tools.ExecContext) *ExecutionResult {
	result := &ExecutionResult{
		Observations: make([]Observation, 0, len(plan.Steps)),
		Artifacts:    make(map[string]*Artifact),
	}

	for i, step := range plan.Steps {
		obs, art := e.runStep(ctx, step, execCtx)
		result.Observations = append(result.Observations, obs)
		if art != nil {
			result.Artifacts[StepKey(i)] = art
		}

		if e.metrics != nil {
			e.metrics.StepExecutionsTotal.WithLabelValues(step.Tool, string(obs.Status)).Inc()
			if obs.Kind != "" {
				e.metrics.ObservationKindsTotal.WithLabelValues(string(obs.Kind)).Inc()
			}
		}
	}

	log.Info().
		Str("plan_id", plan.ID).
		Int("steps", len(plan.Steps)).
		Int("artifacts", len(result.Artifacts)).
		Msg("Plan execution finished")

	return result
}

func (e *Executor) runStep(ctx context.Context, step Step, execCtx *tools.ExecContext) (obs Observation, art *Artifact) {
	def, ok := e.registry.Resolve(step.Tool)
	if !ok {
		log.Warn().Str("tool", step.Tool).Msg("Unknown tool, skipping step")
		return Observation{Tool: step.Tool, Status: StatusSkipped, Reason: "Unknown tool"}, nil
	}

	// A panicking tool must not take the plan down with it.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("tool", step.Tool).Interface("panic", r).Msg("Tool panicked")
			obs = Observation{Tool: step.Tool, Status: StatusError, Error: fmt.Sprintf("panic: %v", r)}
			art = nil
		}
	}()

	start := time.Now()
	var raw interface{}
	var err error
	if def.NeedsContext() {
		raw, err = def.ContextHandler(ctx, step.Args, execCtx)
	} else {
		raw, err = def.Handler(ctx, step.Args)
	}
	duration := time.Since(start)

	if e.metrics != nil {
		e.metrics.StepDuration.WithLabelValues(step.Tool).Observe(duration.Seconds())
	}

	if err != nil {
		log.Error().Str("tool", step.Tool).Dur("duration", duration).Err(err).Msg("Tool execution failed")
		return Observation{Tool: step.Tool, Status: StatusError, Error: err.Error()}, nil
	}

	obs, art = e.normalizer.Normalize(step.Tool, raw)

	log.Debug().
		Str("tool", step.Tool).
		Str("kind", string(obs.Kind)).
		Dur("duration", duration).
		Msg("Step completed")

	return obs, art
}
