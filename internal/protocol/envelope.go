// Package protocol defines the UI<->orchestrator message envelopes and
// action names of §6: request/response pairs carrying {id, action,
// payload?, timestamp} / {id, success, data|error{code,message,cause?},
// timing}.
package protocol

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// validate is the shared struct-tag validator for payloads carrying
// numeric/range constraints beyond what json.Unmarshal's required-ness
// checks already express. A single package-level instance is safe for
// concurrent use, per the library's own documentation.
var validate = validator.New()

// ValidatePayload runs struct-tag validation against a decoded payload. Most
// payloads have no tags and this is a no-op for them; it only has teeth
// where a field carries a `validate:"..."` constraint, e.g. the settings
// cascade's confidence fields.
func ValidatePayload(payload any) error {
	return validate.Struct(payload)
}

// Action is one of the named protocol actions.
type Action string

const (
	ActionStateGet             Action = "state.get"
	ActionStateUpdate          Action = "state.update"
	ActionRunStart             Action = "run.start"
	ActionRunPause             Action = "run.pause"
	ActionRunResume            Action = "run.resume"
	ActionRunCancel            Action = "run.cancel"
	ActionLLMSetAPIKey         Action = "llm.setApiKey"
	ActionLLMCheckAvailable    Action = "llm.checkAvailable"
	ActionPageDetect           Action = "page.detect"
	ActionLoginCheck           Action = "login.check"
	ActionOrderExtractHist     Action = "order.extractHistory"
	ActionOrderReorder         Action = "order.reorder"
	ActionCartScan             Action = "cart.scan"
	ActionSlotsExtract         Action = "slots.extract"
	ActionSystemPing           Action = "system.ping"
	ActionReviewApprove        Action = "review.approve"
	ActionReviewReject         Action = "review.reject"
	ActionReviewSetOverride    Action = "review.setOverride"
	ActionSettingsSetHousehold Action = "settings.setHousehold"
)

// Request is the UI->orchestrator envelope.
type Request struct {
	ID        string          `json:"id"`
	Action    Action          `json:"action"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// ResponseError is the error half of a Response's data|error union.
type ResponseError struct {
	Code    model.ErrorCode `json:"code"`
	Message string          `json:"message"`
	Cause   string          `json:"cause,omitempty"`
}

// Response is the orchestrator->UI envelope.
type Response struct {
	ID      string          `json:"id"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
	Timing  time.Duration   `json:"timing"`
}

// OK builds a successful Response, marshaling data into the Data field.
func OK(id string, data any, start time.Time) (Response, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Response{}, err
	}
	return Response{ID: id, Success: true, Data: raw, Timing: time.Since(start)}, nil
}

// Fail builds a failed Response.
func Fail(id string, code model.ErrorCode, message string, cause error, start time.Time) Response {
	re := &ResponseError{Code: code, Message: message}
	if cause != nil {
		re.Cause = cause.Error()
	}
	return Response{ID: id, Success: false, Error: re, Timing: time.Since(start)}
}

// RunStartPayload is run.start's payload. The three settings fields are a
// per-run override of the §4.5 decision-tuning cascade, taking precedence
// over household and global config defaults for this run only.
type RunStartPayload struct {
	OrderID            string   `json:"orderId,omitempty"`
	ConservativeMode   *bool    `json:"conservativeMode,omitempty"`
	MinPruneConfidence *float64 `json:"minPruneConfidence,omitempty" validate:"omitempty,min=0,max=1"`
	LLMReviewEnabled   *bool    `json:"llmReviewEnabled,omitempty"`
}

// SettingsSetHouseholdPayload is settings.setHousehold's payload: a partial
// update to the persisted household-level override layer. Unset fields
// leave the existing persisted value unchanged.
type SettingsSetHouseholdPayload struct {
	ConservativeMode   *bool    `json:"conservativeMode,omitempty"`
	MinPruneConfidence *float64 `json:"minPruneConfidence,omitempty" validate:"omitempty,min=0,max=1"`
	LLMReviewEnabled   *bool    `json:"llmReviewEnabled,omitempty"`
}

// OrderExtractHistoryPayload is order.extractHistory's payload.
type OrderExtractHistoryPayload struct {
	Limit int `json:"limit,omitempty"`
}

// OrderReorderPayload is order.reorder's payload.
type OrderReorderPayload struct {
	OrderID string `json:"orderId"`
	Mode    string `json:"mode"` // "replace" | "merge"
}

// CartScanPayload is cart.scan's payload.
type CartScanPayload struct {
	IncludeOutOfStock bool `json:"includeOutOfStock,omitempty"`
}

// LLMSetAPIKeyPayload is llm.setApiKey's payload.
type LLMSetAPIKeyPayload struct {
	APIKey string `json:"apiKey"`
}

// ReviewSetOverridePayload is review.setOverride's payload.
type ReviewSetOverridePayload struct {
	ProductID         string `json:"productId"`
	Directive         string `json:"directive"`
	CustomCadenceDays int    `json:"customCadenceDays,omitempty"`
}
