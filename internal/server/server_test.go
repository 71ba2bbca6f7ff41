package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/orchestrator"
	"github.com/rfermoselle/auchan-cart-copilot/internal/protocol"
	"github.com/rfermoselle/auchan-cart-copilot/internal/selector"
	"github.com/rfermoselle/auchan-cart-copilot/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	m := orchestrator.New(st, nil, time.Second)
	require.NoError(t, m.Load())
	t.Cleanup(m.Stop)

	return New(Config{}, m, st, selector.NewRegistry(), nil, nil, nil)
}

func postRequest(t *testing.T, srv *Server, req protocol.Request) protocol.Response {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)

	httpReq := httptest.NewRequest(http.MethodPost, "/api/v1/request", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httpReq)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp protocol.Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func TestHandleRequest_SystemPing(t *testing.T) {
	srv := newTestServer(t)
	resp := postRequest(t, srv, protocol.Request{ID: "1", Action: protocol.ActionSystemPing})
	require.True(t, resp.Success)
}

func TestHandleRequest_RunLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := postRequest(t, srv, protocol.Request{ID: "1", Action: protocol.ActionRunStart})
	require.True(t, resp.Success)

	var rs model.RunState
	require.NoError(t, json.Unmarshal(resp.Data, &rs))
	require.Equal(t, model.StatusRunning, rs.Status)

	resp = postRequest(t, srv, protocol.Request{ID: "2", Action: protocol.ActionRunStart})
	require.False(t, resp.Success)
	require.Equal(t, model.ErrInvalidState, resp.Error.Code)
}

func TestHandleRequest_ToolActionWithoutRunnerFails(t *testing.T) {
	srv := newTestServer(t)
	resp := postRequest(t, srv, protocol.Request{ID: "1", Action: protocol.ActionPageDetect})
	require.False(t, resp.Success)
	require.Equal(t, model.ErrUnknown, resp.Error.Code)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/health", nil)
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
}
