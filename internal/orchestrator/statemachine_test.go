package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/store"
)

func newTestMachine(t *testing.T) *Machine {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	m := New(st, nil, 10*time.Millisecond)
	require.NoError(t, m.Load())
	return m
}

func TestMachine_StartRunFromIdle(t *testing.T) {
	m := newTestMachine(t)
	defer m.Stop()

	rs, err := m.Handle(Event{Kind: EventStartRun})
	require.NoError(t, err)
	require.Equal(t, model.StatusRunning, rs.Status)
	require.NotEmpty(t, rs.RunID)
}

func TestMachine_StartRunFromNonIdleRejected(t *testing.T) {
	m := newTestMachine(t)
	defer m.Stop()

	_, err := m.Handle(Event{Kind: EventStartRun})
	require.NoError(t, err)

	_, err = m.Handle(Event{Kind: EventStartRun})
	require.Error(t, err)
	var invalid *ErrInvalidTransition
	require.ErrorAs(t, err, &invalid)
}

func TestMachine_ReviewNeverTransitionsToRunning(t *testing.T) {
	m := newTestMachine(t)
	defer m.Stop()

	_, err := m.Handle(Event{Kind: EventStartRun})
	require.NoError(t, err)
	rs, err := m.Handle(Event{Kind: EventReachReview})
	require.NoError(t, err)
	require.Equal(t, model.StatusReview, rs.Status)

	// No event drives "review" back into "running" -- the transition table
	// has no such entry, so any attempt is rejected.
	_, err = m.Handle(Event{Kind: EventResumeRun})
	require.Error(t, err)

	rs, err = m.Handle(Event{Kind: EventApproveReview})
	require.NoError(t, err)
	require.Equal(t, model.StatusComplete, rs.Status)
}

func TestMachine_PauseResumeCycle(t *testing.T) {
	m := newTestMachine(t)
	defer m.Stop()

	_, _ = m.Handle(Event{Kind: EventStartRun})
	rs, err := m.Handle(Event{Kind: EventPauseRun})
	require.NoError(t, err)
	require.Equal(t, model.StatusPaused, rs.Status)

	rs, err = m.Handle(Event{Kind: EventResumeRun})
	require.NoError(t, err)
	require.Equal(t, model.StatusRunning, rs.Status)
}

func TestMachine_RecoveryNeededSetOnLoadWhenRunning(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	require.NoError(t, err)

	require.NoError(t, st.SaveRunState(&model.RunState{RunID: "r1", Status: model.StatusRunning}))

	m := New(st, nil, time.Second)
	require.NoError(t, m.Load())
	require.True(t, m.State().RecoveryNeeded)
	m.Stop()
}

func TestMachine_EveryTransitionPersists(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	require.NoError(t, err)
	m := New(st, nil, time.Second)
	require.NoError(t, m.Load())

	_, err = m.Handle(Event{Kind: EventStartRun})
	require.NoError(t, err)
	m.Stop()

	reloaded, err := st.LoadRunState()
	require.NoError(t, err)
	require.Equal(t, model.StatusRunning, reloaded.Status)
}
