package orchestrator

import (
	"time"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// Sweep is the janitor reconciliation pass: a run stuck in running/paused
// past maxAge is force-transitioned to cancelled with a recoverable error,
// the same way the teacher's cleanupStaleAgents force-stops agents stuck in
// CREATING/RUNNING past staleAgentMaxAge. Returns true if a stale run was
// force-cancelled.
func (m *Machine) Sweep(maxAge time.Duration) (bool, error) {
	m.mu.Lock()
	state := m.state
	m.mu.Unlock()

	if state == nil {
		return false, nil
	}
	if state.Status != model.StatusRunning && state.Status != model.StatusPaused {
		return false, nil
	}
	if time.Since(state.UpdatedAt) <= maxAge {
		return false, nil
	}

	if m.log != nil {
		m.log.Warnw("orchestrator janitor: force-cancelling stale run",
			"runId", state.RunID, "status", state.Status, "age", time.Since(state.UpdatedAt).String())
	}

	m.mu.Lock()
	if m.state != nil {
		m.state.Error = &model.RunError{
			Message:     "run exceeded staleness threshold and was force-cancelled by the janitor sweep",
			Recoverable: true,
		}
	}
	m.mu.Unlock()

	_, err := m.Handle(Event{Kind: EventCancelRun})
	return true, err
}
