package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlan() *Plan {
	return &Plan{
		ID:          "p-1",
		Steps:       []Step{{Tool: "load_player_snapshot", Args: map[string]interface{}{}}},
		Why:         "load the data",
		Assumptions: []string{},
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	lc := NewLifecycle()
	assert.Equal(t, StateNone, lc.State())

	require.NoError(t, lc.Propose(testPlan()))
	assert.Equal(t, StateProposed, lc.State())

	require.NoError(t, lc.Approve())
	assert.Equal(t, StateApproved, lc.State())

	plan, err := lc.Executable()
	require.NoError(t, err)
	assert.Equal(t, "p-1", plan.ID)

	res := &ExecutionResult{Observations: []Observation{{Tool: "load_player_snapshot", Status: StatusOK}}}
	require.NoError(t, lc.RecordResult(res))
	assert.Equal(t, StateExecuted, lc.State())
	assert.Same(t, res, lc.Result())
}

func TestLifecycleExecuteRequiresApproval(t *testing.T) {
	lc := NewLifecycle()

	_, err := lc.Executable()
	assert.Error(t, err)

	require.NoError(t, lc.Propose(testPlan()))
	_, err = lc.Executable()
	assert.Error(t, err, "a proposed plan must not run before approval")

	require.NoError(t, lc.Discard())
	_, err = lc.Executable()
	assert.Error(t, err)
}

func TestLifecycleDiscard(t *testing.T) {
	lc := NewLifecycle()
	require.NoError(t, lc.Propose(testPlan()))
	require.NoError(t, lc.Discard())

	assert.Equal(t, StateDiscarded, lc.State())
	assert.Nil(t, lc.Plan())
	assert.Nil(t, lc.Result())

	// A discarded plan cannot be approved back into existence.
	assert.Error(t, lc.Approve())
}

func TestLifecycleDiscardAfterApproval(t *testing.T) {
	lc := NewLifecycle()
	require.NoError(t, lc.Propose(testPlan()))
	require.NoError(t, lc.Approve())
	require.NoError(t, lc.Discard())
	assert.Equal(t, StateDiscarded, lc.State())
}

func TestLifecycleReExecution(t *testing.T) {
	lc := NewLifecycle()
	require.NoError(t, lc.Propose(testPlan()))
	require.NoError(t, lc.Approve())

	first := &ExecutionResult{Observations: []Observation{{Tool: "a", Status: StatusOK}}}
	require.NoError(t, lc.RecordResult(first))

	// Executed plans stay executable; each attempt replaces the result.
	_, err := lc.Executable()
	require.NoError(t, err)

	second := &ExecutionResult{Observations: []Observation{{Tool: "a", Status: StatusError}}}
	require.NoError(t, lc.RecordResult(second))
	assert.Same(t, second, lc.Result())
}

func TestLifecycleProposeReplacesEverything(t *testing.T) {
	lc := NewLifecycle()
	require.NoError(t, lc.Propose(testPlan()))
	require.NoError(t, lc.Approve())
	require.NoError(t, lc.RecordResult(&ExecutionResult{}))

	next := testPlan()
	next.ID = "p-2"
	require.NoError(t, lc.Propose(next))

	assert.Equal(t, StateProposed, lc.State())
	assert.Equal(t, "p-2", lc.Plan().ID)
	assert.Nil(t, lc.Result(), "a new proposal invalidates the prior result")
}

func TestLifecycleRejectsEmptyPlan(t *testing.T) {
	lc := NewLifecycle()
	assert.ErrorIs(t, lc.Propose(nil), ErrNoPlan)
	assert.ErrorIs(t, lc.Propose(&Plan{ID: "empty"}), ErrNoPlan)
}
