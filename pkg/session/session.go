// Package session owns the per-conversation state: chat history, the
// plan lifecycle, and the wiring between routing, planning, execution
// and the transformation interpreter.
package session

import (
	"context"
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"

	"github.com/marcvidal/datapilot/internal/metrics"
	"github.com/marcvidal/datapilot/pkg/frame"
	"github.com/marcvidal/datapilot/pkg/llm"
	"github.com/marcvidal/datapilot/pkg/planner"
	"github.com/marcvidal/datapilot/pkg/router"
	"github.com/marcvidal/datapilot/pkg/sandbox"
	"github.com/marcvidal/datapilot/pkg/tools"
)

// maxHistory bounds retained conversation turns.
const maxHistory = 50

// ErrNoCodeArtifact is returned by RunCode when the latest execution
// produced no code artifact.
var ErrNoCodeArtifact = errors.New("no code artifact in the latest result")

// ErrNoFrameArtifact is returned by RunCode when no dataframe artifact
// exists to feed the snippet.
var ErrNoFrameArtifact = errors.New("no dataframe artifact in the latest result")

// HistorySink records executed runs. Satisfied by *history.Store.
type HistorySink interface {
	Record(sessionID string, plan *planner.Plan, result *planner.ExecutionResult) error
}

// Reply is what a session turn hands back to the display layer.
type Reply struct {
	Mode    router.Mode   `json:"mode"`
	Text    string        `json:"text,omitempty"`
	Plan    *planner.Plan `json:"plan,omitempty"`
	Summary string        `json:"summary,omitempty"`
}

// Options wires a session's collaborators.
type Options struct {
	Router   *router.Router
	Planner  *planner.Planner
	Executor *planner.Executor
	Registry *tools.Registry
	Sandbox  *sandbox.Executor
	Context  *tools.ExecContext
	History  HistorySink
	Metrics  *metrics.Metrics
}

// Session is single-writer conversation state. It is not safe for
// concurrent use; one session serves one user flow.
type Session struct {
	id        string
	opts      Options
	lifecycle *planner.Lifecycle
	turns     []llm.Message
}

// New creates a session with a fresh identifier.
func New(opts Options) (*Session, error) {
	if opts.Router == nil || opts.Planner == nil || opts.Executor == nil || opts.Registry == nil {
		return nil, errors.New("router, planner, executor and registry are required")
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	log.Info().Str("session_id", id).Msg("Session started")
	return &Session{id: id, opts: opts, lifecycle: planner.NewLifecycle()}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the plan lifecycle state.
func (s *Session) State() planner.State {
	return s.lifecycle.State()
}

// Plan returns the current plan, if any.
func (s *Session) Plan() *planner.Plan {
	return s.lifecycle.Plan()
}

// Result returns the latest execution result, if any.
func (s *Session) Result() *planner.ExecutionResult {
	return s.lifecycle.Result()
}

// HandleMessage routes one user message. A capability question is
// answered directly; anything else becomes a proposed plan awaiting
// approval. Routing and planning failures surface to the caller and
// leave plan state untouched.
func (s *Session) HandleMessage(ctx context.Context, text string) (*Reply, error) {
	specs := s.opts.Registry.Specs(tools.PhasePlanning)

	decision, err := s.opts.Router.Route(ctx, text, specs)
	if err != nil {
		return nil, err
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.RoutingDecisionsTotal.WithLabelValues(string(decision.Mode)).Inc()
	}

	if decision.Mode == router.ModeToolQA {
		answer, err := s.opts.Router.AnswerFromSpecs(ctx, text, specs)
		if err != nil {
			return nil, err
		}
		s.remember(text, answer)
		return &Reply{Mode: router.ModeToolQA, Text: answer}, nil
	}

	plan, err := s.opts.Planner.ProposePlan(ctx, text, s.turns, specs)
	if err != nil {
		return nil, err
	}
	if err := s.validatePlan(plan); err != nil {
		return nil, err
	}
	if err := s.lifecycle.Propose(plan); err != nil {
		return nil, err
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.PlansProposedTotal.Inc()
	}

	summary, err := s.opts.Planner.Summarize(ctx, plan)
	if err != nil {
		// The plan stands even when the gloss fails.
		log.Warn().Err(err).Str("plan_id", plan.ID).Msg("Plan summary failed")
		summary = plan.Why
	}

	s.remember(text, summary)
	return &Reply{Mode: router.ModePlan, Plan: plan, Summary: summary}, nil
}

// Approve marks the proposed plan approved.
func (s *Session) Approve() error {
	if err := s.lifecycle.Approve(); err != nil {
		return err
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.PlansApprovedTotal.Inc()
	}
	return nil
}

// Discard drops the current plan and any result.
func (s *Session) Discard() error {
	if err := s.lifecycle.Discard(); err != nil {
		return err
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.PlansDiscardedTotal.Inc()
	}
	return nil
}

// Run executes the approved plan and records the attempt. Re-running an
// executed plan yields a fresh, independent result.
func (s *Session) Run(ctx context.Context) (*planner.ExecutionResult, error) {
	plan, err := s.lifecycle.Executable()
	if err != nil {
		return nil, err
	}

	result := s.opts.Executor.Execute(ctx, plan, s.opts.Context)
	if err := s.lifecycle.RecordResult(result); err != nil {
		return nil, err
	}
	if s.opts.Metrics != nil {
		s.opts.Metrics.PlanExecutionsTotal.Inc()
	}

	if s.opts.History != nil {
		if err := s.opts.History.Record(s.id, plan, result); err != nil {
			log.Warn().Err(err).Str("plan_id", plan.ID).Msg("History record failed")
		}
	}
	return result, nil
}

// RunCode feeds the latest code artifact and the latest dataframe
// artifact through the transformation interpreter. The stored artifacts
// are not modified; the caller receives the derived table.
func (s *Session) RunCode(ctx context.Context) (*frame.Frame, error) {
	if s.opts.Sandbox == nil {
		return nil, errors.New("no interpreter configured")
	}

	result := s.lifecycle.Result()
	if result == nil {
		return nil, ErrNoCodeArtifact
	}

	code := latestArtifact(result, planner.KindCode)
	if code == nil {
		return nil, ErrNoCodeArtifact
	}
	table := latestArtifact(result, planner.KindDataFrame)
	if table == nil || table.Frame == nil {
		return nil, ErrNoFrameArtifact
	}

	out, err := s.opts.Sandbox.Run(code.Code, table.Frame)
	if s.opts.Metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
			var violation *sandbox.ContractViolation
			if errors.As(err, &violation) {
				s.opts.Metrics.ContractRejectionsTotal.Inc()
			}
		}
		s.opts.Metrics.SnippetRunsTotal.WithLabelValues(status).Inc()
	}
	if err != nil {
		return nil, fmt.Errorf("running transformation: %w", err)
	}
	return out, nil
}

// validatePlan checks every step's arguments against the registered
// parameter schemas before the plan is shown for approval. Unknown tools
// are tolerated here; execution records them as skipped.
func (s *Session) validatePlan(plan *planner.Plan) error {
	for i, step := range plan.Steps {
		if _, ok := s.opts.Registry.Resolve(step.Tool); !ok {
			continue
		}
		if err := s.opts.Registry.ValidateArgs(step.Tool, step.Args); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func (s *Session) remember(userText, reply string) {
	s.turns = append(s.turns,
		llm.Message{Role: "user", Content: userText},
		llm.Message{Role: "assistant", Content: reply},
	)
	if len(s.turns) > maxHistory {
		s.turns = s.turns[len(s.turns)-maxHistory:]
	}
}

// latestArtifact returns the artifact of the given kind with the highest
// step index.
func latestArtifact(result *planner.ExecutionResult, kind planner.Kind) *planner.Artifact {
	for i := len(result.Observations) - 1; i >= 0; i-- {
		if art, ok := result.Artifacts[planner.StepKey(i)]; ok && art.Kind == kind {
			return art
		}
	}
	return nil
}
