// Package orchestrator implements the §4.7 Run State Machine: the single
// cooperative scheduler that drives one run at a time through
// idle -> running -> {paused, review, cancelled}; review -> {complete,
// cancelled}, persisting a checkpoint before every event-loop yield and
// honouring the review state's purchase-safety invariant.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/store"
)

// EventKind names one of the §4.7 events.
type EventKind string

const (
	EventStartRun          EventKind = "START_RUN"
	EventPauseRun          EventKind = "PAUSE_RUN"
	EventResumeRun         EventKind = "RESUME_RUN"
	EventCancelRun         EventKind = "CANCEL_RUN"
	EventPhaseComplete     EventKind = "PHASE_COMPLETE"
	EventError             EventKind = "ERROR"
	EventRecoveryComplete  EventKind = "RECOVERY_COMPLETE"
	EventReachReview       EventKind = "REACH_REVIEW"
	EventApproveReview     EventKind = "APPROVE_REVIEW"
	EventRejectReview      EventKind = "REJECT_REVIEW"
)

// Event carries an EventKind plus whatever payload that event needs.
type Event struct {
	Kind        EventKind
	Phase       string // PHASE_COMPLETE
	Recoverable bool   // ERROR
	Message     string // ERROR
	OrderID     string // START_RUN

	ReviewPack *model.ReviewPack // REACH_REVIEW
}

// Logger is satisfied by *zap.SugaredLogger.
type Logger interface {
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

// transitions maps (current status, event kind) -> next status. Statuses
// absent from the map for a given event are rejected with ErrInvalidState.
var transitions = map[model.RunStatus]map[EventKind]model.RunStatus{
	model.StatusIdle: {
		EventStartRun: model.StatusRunning,
	},
	// complete and cancelled are inactive, not active: a new run may start
	// from either without violating §5's "no concurrent runs" rule, which
	// only forbids starting while one is running/paused/in review.
	model.StatusComplete: {
		EventStartRun: model.StatusRunning,
	},
	model.StatusCancelled: {
		EventStartRun: model.StatusRunning,
	},
	model.StatusRunning: {
		EventPauseRun:      model.StatusPaused,
		EventCancelRun:     model.StatusCancelled,
		EventReachReview:   model.StatusReview,
		EventPhaseComplete: model.StatusRunning, // phase advances, status unchanged
		EventError:         model.StatusPaused,  // recoverable errors pause; orchestrator may re-raise as cancel
	},
	model.StatusPaused: {
		EventResumeRun:        model.StatusRunning,
		EventCancelRun:        model.StatusCancelled,
		EventRecoveryComplete: model.StatusRunning,
	},
	model.StatusReview: {
		EventApproveReview: model.StatusComplete,
		EventRejectReview:  model.StatusCancelled,
	},
}

// ErrInvalidTransition reports an event rejected by the current state.
type ErrInvalidTransition struct {
	From  model.RunStatus
	Event EventKind
}

func (e *ErrInvalidTransition) Error() string {
	return "invalid transition: event " + string(e.Event) + " from state " + string(e.From)
}

// Machine is the run state machine. One Machine instance corresponds to the
// single run-at-a-time scheduler described in §5: starting a new run while
// one is running, paused or in review is rejected with INVALID_STATE.
type Machine struct {
	mu    sync.Mutex
	store *store.Store
	log   Logger

	state *model.RunState

	keepAliveCancel context.CancelFunc
	keepAliveEvery  time.Duration
}

// New constructs a Machine. Callers should call Load immediately after to
// recover any persisted state from a prior process.
func New(st *store.Store, log Logger, keepAliveEvery time.Duration) *Machine {
	return &Machine{store: st, log: log, keepAliveEvery: keepAliveEvery}
}

// Load recovers persisted state at process start. Per §4.7, recoveryNeeded
// is set when the last persisted status was running or paused, since the
// surrounding browser/tab handle has not yet been re-established.
func (m *Machine) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rs, err := m.store.LoadRunState()
	if err != nil {
		return errors.Wrap(err, "load persisted run state")
	}
	if rs == nil {
		m.state = &model.RunState{Status: model.StatusIdle, UpdatedAt: time.Now()}
		return nil
	}

	if rs.Status == model.StatusRunning || rs.Status == model.StatusPaused {
		rs.RecoveryNeeded = true
	}
	m.state = rs
	return nil
}

// State returns a copy of the current run state.
func (m *Machine) State() model.RunState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.state
}

// Handle applies one event to the state machine, persisting the resulting
// state before returning (every state change is persisted before the event
// loop yields, per §4.7's invariant).
func (m *Machine) Handle(ev Event) (model.RunState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		m.state = &model.RunState{Status: model.StatusIdle}
	}

	from := m.state.Status
	next, ok := transitions[from][ev.Kind]
	if !ok {
		return *m.state, &ErrInvalidTransition{From: from, Event: ev.Kind}
	}

	switch ev.Kind {
	case EventStartRun:
		m.state = &model.RunState{
			RunID:     uuid.NewString(),
			Status:    next,
			Phase:     "navigate",
			StartedAt: time.Now(),
		}
	case EventPhaseComplete:
		m.state.Phase = ev.Phase
	case EventError:
		m.state.Status = next
		m.state.Error = &model.RunError{Message: ev.Message, Recoverable: ev.Recoverable}
	case EventRecoveryComplete:
		m.state.Status = next
		m.state.RecoveryNeeded = false
	case EventReachReview:
		m.state.Status = next
		m.state.ReviewPack = ev.ReviewPack
	case EventCancelRun, EventApproveReview, EventRejectReview:
		m.state.Status = next
	default:
		m.state.Status = next
	}
	m.state.UpdatedAt = time.Now()

	if err := m.store.SaveRunState(m.state); err != nil {
		return *m.state, errors.Wrap(err, "persist run state checkpoint")
	}

	m.manageKeepAliveLocked()

	if m.log != nil {
		m.log.Infow("orchestrator transition", "from", from, "event", ev.Kind, "to", m.state.Status)
	}

	return *m.state, nil
}

// manageKeepAliveLocked starts or stops the keep-alive ticker based on the
// current status. Callers must hold m.mu.
func (m *Machine) manageKeepAliveLocked() {
	alive := m.state.Status == model.StatusRunning || m.state.Status == model.StatusPaused

	if alive && m.keepAliveCancel == nil {
		ctx, cancel := context.WithCancel(context.Background())
		m.keepAliveCancel = cancel
		interval := m.keepAliveEvery
		if interval <= 0 {
			interval = 20 * time.Second
		}
		go m.runKeepAlive(ctx, interval)
	} else if !alive && m.keepAliveCancel != nil {
		m.keepAliveCancel()
		m.keepAliveCancel = nil
	}
}

func (m *Machine) runKeepAlive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.log != nil {
				m.log.Infow("orchestrator keep-alive")
			}
		}
	}
}

// Stop cancels any running keep-alive ticker. Call on process shutdown.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keepAliveCancel != nil {
		m.keepAliveCancel()
		m.keepAliveCancel = nil
	}
}
