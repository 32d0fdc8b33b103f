package planner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// State is the lifecycle position of the current plan.
type State string

const (
	// StateNone means no plan has been proposed yet.
	StateNone      State = "none"
	StateProposed  State = "proposed"
	StateApproved  State = "approved"
	StateExecuted  State = "executed"
	StateDiscarded State = "discarded"
)

// ErrNoPlan is returned when a transition is requested without a plan.
var ErrNoPlan = errors.New("no plan")

// Lifecycle gates a proposed plan behind explicit approval before it may
// be executed. Every transition requires an explicit external trigger;
// the lifecycle itself performs no I/O.
//
// Proposed -> Approved -> Executed, with Discarded reachable from
// Proposed and Approved. Proposing a new plan replaces the prior plan and
// its execution result, whatever the prior state.
type Lifecycle struct {
	mu     sync.Mutex
	state  State
	plan   *Plan
	result *ExecutionResult
}

// NewLifecycle creates a lifecycle with no plan.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{state: StateNone}
}

// Propose installs a new plan, discarding any prior plan and result.
func (l *Lifecycle) Propose(plan *Plan) error {
	if plan == nil || len(plan.Steps) == 0 {
		return fmt.Errorf("%w: a plan needs at least one step", ErrNoPlan)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.plan = plan
	l.result = nil
	l.state = StateProposed

	log.Info().Str("plan_id", plan.ID).Int("steps", len(plan.Steps)).Msg("Plan proposed")
	return nil
}

// Approve marks the proposed plan as approved. Only an explicit user
// action may call this.
func (l *Lifecycle) Approve() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateProposed {
		return fmt.Errorf("cannot approve plan in state %q", l.state)
	}
	l.state = StateApproved

	log.Info().Str("plan_id", l.plan.ID).Msg("Plan approved")
	return nil
}

// Discard drops the current plan, its approval and any result. Legal from
// Proposed and Approved.
func (l *Lifecycle) Discard() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateProposed && l.state != StateApproved {
		return fmt.Errorf("cannot discard plan in state %q", l.state)
	}
	l.plan = nil
	l.result = nil
	l.state = StateDiscarded

	log.Info().Msg("Plan discarded")
	return nil
}

// Executable returns the plan if it may be executed now. Re-executing an
// already executed plan is permitted and yields a fresh result.
func (l *Lifecycle) Executable() (*Plan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateApproved && l.state != StateExecuted {
		return nil, fmt.Errorf("cannot execute plan in state %q", l.state)
	}
	return l.plan, nil
}

// RecordResult stores the result of an execution attempt and marks the
// plan executed. Each attempt replaces the stored result wholesale;
// results are never merged across attempts.
func (l *Lifecycle) RecordResult(res *ExecutionResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != StateApproved && l.state != StateExecuted {
		return fmt.Errorf("cannot record result in state %q", l.state)
	}
	l.result = res
	l.state = StateExecuted

	log.Info().Str("plan_id", l.plan.ID).Int("observations", len(res.Observations)).Msg("Plan executed")
	return nil
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Plan returns the current plan, if any.
func (l *Lifecycle) Plan() *Plan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.plan
}

// Result returns the latest execution result, if any.
func (l *Lifecycle) Result() *ExecutionResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}
