package server

import (
	"net/http"
	"sync"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// metricsRecorder tracks run counts by state and tool error-code counts,
// the orchestrator's analogue of the teacher's per-endpoint request
// counters.
type metricsRecorder struct {
	mu             sync.RWMutex
	runsByStatus   map[model.RunStatus]int
	errorsByCode   map[model.ErrorCode]int
}

func newMetricsRecorder() *metricsRecorder {
	return &metricsRecorder{
		runsByStatus: make(map[model.RunStatus]int),
		errorsByCode: make(map[model.ErrorCode]int),
	}
}

func (m *metricsRecorder) recordRunStatus(status model.RunStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runsByStatus[status]++
}

func (m *metricsRecorder) recordError(code model.ErrorCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorsByCode[code]++
}

// MetricsResponse is GET /api/v1/admin/metrics's payload.
type MetricsResponse struct {
	RunsByStatus map[model.RunStatus]int  `json:"runsByStatus"`
	ErrorsByCode map[model.ErrorCode]int  `json:"errorsByCode"`
}

func (m *metricsRecorder) snapshot() MetricsResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make(map[model.RunStatus]int, len(m.runsByStatus))
	for k, v := range m.runsByStatus {
		runs[k] = v
	}
	errs := make(map[model.ErrorCode]int, len(m.errorsByCode))
	for k, v := range m.errorsByCode {
		errs[k] = v
	}
	return MetricsResponse{RunsByStatus: runs, ErrorsByCode: errs}
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.snapshot())
}
