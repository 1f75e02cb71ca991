package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/taskgrid/internal/taskid"
)

func TestCanTransition(t *testing.T) {
	testCases := []struct {
		from, to State
		want     bool
	}{
		{0, StateDispatched, true},
		{0, StateRunning, false},
		{StateDispatched, StateRunning, true},
		{StateDispatched, StateFinished, true},
		{StateDispatched, StateStolen, true},
		{StateRunning, StateFinished, true},
		{StateRunning, StateFailed, true},
		{StateRunning, StateStolen, true},
		{StateRunning, StateLost, true},
		{StateRunning, StateDispatched, false},
		{StateStolen, StateDispatched, true},
		{StateStolen, StateFinished, false},
		{StateLost, StateDispatched, true},
		{StateFinished, StateDispatched, false},
		{StateFinished, StateStolen, false},
		{StateFailed, StateDispatched, false},
	}

	for _, tc := range testCases {
		t.Run(tc.from.String()+"->"+tc.to.String(), func(t *testing.T) {
			assert.Equal(t, tc.want, CanTransition(tc.from, tc.to))
		})
	}
}

func TestStatePredicates(t *testing.T) {
	assert.True(t, StateDispatched.Active())
	assert.True(t, StateRunning.Active())
	assert.False(t, StateStolen.Active())

	assert.True(t, StateFinished.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateLost.Terminal())

	assert.True(t, StateStolen.Returned())
	assert.True(t, StateLost.Returned())
	assert.False(t, StateRunning.Returned())

	assert.Equal(t, "State(0)", State(0).String())
}

func TestSetState_RefusesMovesOutsideTable(t *testing.T) {
	rec := &record{task: Task{ID: 4}, state: StateFinished}
	err := rec.setState(StateRunning)
	require.ErrorIs(t, err, ErrIllegalTransition)
	assert.Equal(t, StateFinished, rec.state)

	fresh := &record{task: Task{ID: 5}}
	require.NoError(t, fresh.setState(StateDispatched))
	require.NoError(t, fresh.setState(StateRunning))
	require.NoError(t, fresh.setState(StateStolen))
	require.NoError(t, fresh.setState(StateDispatched))
	assert.Equal(t, StateDispatched, fresh.state)
}

func TestTransition_ReportsViolation(t *testing.T) {
	c := New(&recorder{})
	rec := &record{task: Task{ID: 4}, state: StateFailed, worker: 2}

	assert.False(t, c.transition(context.Background(), rec, StateLost, 2, opWorkerLost))
	assert.Equal(t, StateFailed, rec.state)

	vs := drainViolations(c)
	require.Len(t, vs, 1)
	assert.Equal(t, ProtocolViolation, vs[0].Kind)
	assert.Equal(t, taskid.TaskID(4), vs[0].Task)
	assert.Equal(t, opWorkerLost, vs[0].Op)
	assert.Contains(t, vs[0].Reason, "Failed -> Lost")
}
