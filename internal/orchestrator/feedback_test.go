package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/store"
)

func TestSubmitReviewFeedback_RejectsReviewAndPersistsOverride(t *testing.T) {
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	m := New(st, nil, time.Second)
	require.NoError(t, m.Load())
	defer m.Stop()

	_, err = m.Handle(Event{Kind: EventStartRun})
	require.NoError(t, err)
	_, err = m.Handle(Event{Kind: EventReachReview})
	require.NoError(t, err)

	rs, err := m.SubmitReviewFeedback(st, "p1", model.OverrideNeverPrune, 0)
	require.NoError(t, err)
	require.Equal(t, model.StatusCancelled, rs.Status)

	ov, err := st.GetPreference("p1")
	require.NoError(t, err)
	require.Equal(t, model.OverrideNeverPrune, ov.Directive)

	// A new run may now start since cancelled is an inactive state.
	rs, err = m.Handle(Event{Kind: EventStartRun})
	require.NoError(t, err)
	require.Equal(t, model.StatusRunning, rs.Status)
}

func TestSweep_ForceCancelsStaleRunningState(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	require.NoError(t, err)

	stale := &model.RunState{RunID: "r1", Status: model.StatusRunning, UpdatedAt: time.Now().Add(-2 * time.Hour)}
	require.NoError(t, st.SaveRunState(stale))

	m := New(st, nil, time.Second)
	require.NoError(t, m.Load())
	defer m.Stop()

	swept, err := m.Sweep(time.Hour)
	require.NoError(t, err)
	require.True(t, swept)
	require.Equal(t, model.StatusCancelled, m.State().Status)
}

func TestSweep_LeavesFreshRunAlone(t *testing.T) {
	dir := t.TempDir()
	st, err := store.New(dir)
	require.NoError(t, err)
	require.NoError(t, st.SaveRunState(&model.RunState{RunID: "r1", Status: model.StatusRunning, UpdatedAt: time.Now()}))

	m := New(st, nil, time.Second)
	require.NoError(t, m.Load())
	defer m.Stop()

	swept, err := m.Sweep(time.Hour)
	require.NoError(t, err)
	require.False(t, swept)
	require.Equal(t, model.StatusRunning, m.State().Status)
}

func TestResolveSettings_RunOverrideWinsOverHouseholdAndGlobal(t *testing.T) {
	global := RunSettings{ConservativeMode: false, MinPruneConfidence: 0.5, LLMReviewEnabled: false}
	householdConservative := true
	household := HouseholdSettings{ConservativeMode: &householdConservative}
	runLLM := true
	run := RunOverride{LLMReviewEnabled: &runLLM}

	resolved := ResolveSettings(global, household, run)
	require.True(t, resolved.ConservativeMode) // from household
	require.True(t, resolved.LLMReviewEnabled) // from run override
	require.Equal(t, 0.5, resolved.MinPruneConfidence) // from global
}
