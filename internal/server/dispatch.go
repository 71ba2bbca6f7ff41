package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/orchestrator"
	"github.com/rfermoselle/auchan-cart-copilot/internal/protocol"
	"github.com/rfermoselle/auchan-cart-copilot/internal/store"
)

func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, protocol.Fail("", model.ErrInvalidRequest, "malformed request envelope", err, start))
		return
	}

	resp := s.dispatch(r.Context(), req, start)
	if !resp.Success && resp.Error != nil {
		s.metrics.recordError(resp.Error.Code)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) dispatch(ctx context.Context, req protocol.Request, start time.Time) protocol.Response {
	switch req.Action {
	case protocol.ActionSystemPing:
		return mustOK(req.ID, map[string]string{"pong": "ok"}, start)

	case protocol.ActionStateGet:
		return mustOK(req.ID, s.machine.State(), start)

	case protocol.ActionRunStart:
		var payload protocol.RunStartPayload
		_ = json.Unmarshal(req.Payload, &payload)
		if err := protocol.ValidatePayload(payload); err != nil {
			return protocol.Fail(req.ID, model.ErrInvalidRequest, "invalid run.start payload", err, start)
		}
		resp := s.handleTransition(req.ID, orchestrator.Event{Kind: orchestrator.EventStartRun, OrderID: payload.OrderID}, start)
		if resp.Success {
			rs := s.machine.State()
			override := orchestrator.RunOverride{
				ConservativeMode:   payload.ConservativeMode,
				MinPruneConfidence: payload.MinPruneConfidence,
				LLMReviewEnabled:   payload.LLMReviewEnabled,
			}
			go s.runConductor(rs.RunID, payload.OrderID, override)
		}
		return resp

	case protocol.ActionSettingsSetHousehold:
		var payload protocol.SettingsSetHouseholdPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return protocol.Fail(req.ID, model.ErrInvalidRequest, "malformed household settings payload", err, start)
		}
		if err := protocol.ValidatePayload(payload); err != nil {
			return protocol.Fail(req.ID, model.ErrInvalidRequest, "invalid household settings payload", err, start)
		}
		hs := store.HouseholdSettings{
			ConservativeMode:   payload.ConservativeMode,
			MinPruneConfidence: payload.MinPruneConfidence,
			LLMReviewEnabled:   payload.LLMReviewEnabled,
		}
		if err := s.store.SaveHouseholdSettings(hs); err != nil {
			return protocol.Fail(req.ID, model.ErrUnknown, "failed to persist household settings", err, start)
		}
		return mustOK(req.ID, hs, start)

	case protocol.ActionRunPause:
		return s.handleTransition(req.ID, orchestrator.Event{Kind: orchestrator.EventPauseRun}, start)

	case protocol.ActionRunResume:
		return s.handleTransition(req.ID, orchestrator.Event{Kind: orchestrator.EventResumeRun}, start)

	case protocol.ActionRunCancel:
		return s.handleTransition(req.ID, orchestrator.Event{Kind: orchestrator.EventCancelRun}, start)

	case protocol.ActionReviewApprove:
		return s.handleTransition(req.ID, orchestrator.Event{Kind: orchestrator.EventApproveReview}, start)

	case protocol.ActionReviewReject:
		return s.handleTransition(req.ID, orchestrator.Event{Kind: orchestrator.EventRejectReview}, start)

	case protocol.ActionReviewSetOverride:
		return s.handleSetOverride(req, start)

	case protocol.ActionLLMSetAPIKey:
		var payload protocol.LLMSetAPIKeyPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil || payload.APIKey == "" {
			return protocol.Fail(req.ID, model.ErrInvalidRequest, "apiKey is required", err, start)
		}
		s.store.SetAPIKey(payload.APIKey)
		return mustOK(req.ID, map[string]bool{"set": true}, start)

	case protocol.ActionLLMCheckAvailable:
		if s.llm == nil {
			return protocol.Fail(req.ID, model.ErrUnknown, "LLM review is not configured", nil, start)
		}
		if err := s.llm.CheckAvailable(ctx); err != nil {
			return protocol.Fail(req.ID, model.ErrAPIKeyInvalid, "LLM endpoint unreachable or key invalid", err, start)
		}
		return mustOK(req.ID, map[string]bool{"available": true}, start)

	case protocol.ActionPageDetect, protocol.ActionLoginCheck, protocol.ActionOrderExtractHist,
		protocol.ActionOrderReorder, protocol.ActionCartScan, protocol.ActionSlotsExtract:
		return s.dispatchToolAction(ctx, req, start)

	default:
		return protocol.Fail(req.ID, model.ErrInvalidRequest, "unknown action: "+string(req.Action), nil, start)
	}
}

func (s *Server) handleTransition(id string, ev orchestrator.Event, start time.Time) protocol.Response {
	rs, err := s.machine.Handle(ev)
	if err != nil {
		return protocol.Fail(id, model.ErrInvalidState, err.Error(), err, start)
	}
	s.metrics.recordRunStatus(rs.Status)
	s.hub.Broadcast(rs)
	return mustOK(id, rs, start)
}

func (s *Server) handleSetOverride(req protocol.Request, start time.Time) protocol.Response {
	var payload protocol.ReviewSetOverridePayload
	if err := json.Unmarshal(req.Payload, &payload); err != nil || payload.ProductID == "" {
		return protocol.Fail(req.ID, model.ErrInvalidRequest, "productId and directive are required", err, start)
	}

	rs, err := s.machine.SubmitReviewFeedback(s.store, payload.ProductID, model.OverrideDirective(payload.Directive), payload.CustomCadenceDays)
	if err != nil {
		return protocol.Fail(req.ID, model.ErrInvalidState, err.Error(), err, start)
	}
	s.hub.Broadcast(rs)
	return mustOK(req.ID, rs, start)
}

// dispatchToolAction delegates to the injected ToolRunner for every
// page-dependent action. When no ToolRunner is wired (e.g. running the
// server standalone without an attached browser host), these actions fail
// with UNKNOWN rather than silently no-op.
func (s *Server) dispatchToolAction(ctx context.Context, req protocol.Request, start time.Time) protocol.Response {
	if s.tools == nil {
		return protocol.Fail(req.ID, model.ErrUnknown, "no browser host attached to this server instance", nil, start)
	}

	switch req.Action {
	case protocol.ActionPageDetect:
		page, err := s.tools.DetectPage(ctx)
		return toolResult(req.ID, page, err, start)

	case protocol.ActionLoginCheck:
		ok, err := s.tools.CheckLogin(ctx)
		return toolResult(req.ID, ok, err, start)

	case protocol.ActionOrderExtractHist:
		var payload protocol.OrderExtractHistoryPayload
		_ = json.Unmarshal(req.Payload, &payload)
		out, err := s.tools.ExtractHistory(ctx, payload.Limit)
		return toolResult(req.ID, out, err, start)

	case protocol.ActionOrderReorder:
		var payload protocol.OrderReorderPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil || payload.OrderID == "" {
			return protocol.Fail(req.ID, model.ErrInvalidRequest, "orderId and mode are required", err, start)
		}
		out, err := s.tools.Reorder(ctx, payload.OrderID, payload.Mode)
		return toolResult(req.ID, out, err, start)

	case protocol.ActionCartScan:
		var payload protocol.CartScanPayload
		_ = json.Unmarshal(req.Payload, &payload)
		out, err := s.tools.ScanCart(ctx, payload.IncludeOutOfStock)
		return toolResult(req.ID, out, err, start)

	case protocol.ActionSlotsExtract:
		out, err := s.tools.ExtractSlots(ctx, nil)
		return toolResult(req.ID, out, err, start)

	default:
		return protocol.Fail(req.ID, model.ErrInvalidRequest, "unhandled tool action: "+string(req.Action), nil, start)
	}
}

func toolResult(id string, data any, err error, start time.Time) protocol.Response {
	if err != nil {
		return protocol.Fail(id, model.ErrUnknown, err.Error(), err, start)
	}
	return mustOK(id, data, start)
}

func mustOK(id string, data any, start time.Time) protocol.Response {
	resp, err := protocol.OK(id, data, start)
	if err != nil {
		return protocol.Fail(id, model.ErrUnknown, "failed to encode response", err, start)
	}
	return resp
}
