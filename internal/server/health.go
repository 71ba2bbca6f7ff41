package server

import (
	"encoding/json"
	"net/http"
	"time"
)

var startedAt = time.Now()

// HealthResponse is GET /api/v1/admin/health's payload: selector-registry
// load status, store reachability, and LLM reviewer reachability.
type HealthResponse struct {
	Status            string `json:"status"`
	Uptime            string `json:"uptime"`
	SelectorPageCount int    `json:"selectorPageCount"`
	StoreReachable    bool   `json:"storeReachable"`
	LLMReachable      *bool  `json:"llmReachable,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:            "ok",
		Uptime:            time.Since(startedAt).String(),
		SelectorPageCount: s.registry.PageCount(),
		StoreReachable:    s.storeReachable(),
	}

	if s.llm != nil {
		reachable := s.llm.CheckAvailable(r.Context()) == nil
		resp.LLMReachable = &reachable
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) storeReachable() bool {
	_, err := s.store.LoadRunState()
	return err == nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
