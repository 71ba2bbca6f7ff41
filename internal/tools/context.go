// Package tools implements the CartBuilder surface (§4.3): the domain
// operations every Orchestrator phase drives — navigateToOrderHistory,
// loadOrderHistory, loadOrderDetail, reorder, scanCart, extractSlots.
//
// Every tool shares a ToolContext and returns a Result, the same
// uniform request/response shape the teacher's cursor.Client and
// ghclient.Client wrap their external HTTP calls in, generalized here to DOM
// operations instead of REST calls.
package tools

import (
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rfermoselle/auchan-cart-copilot/internal/browser"
	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/selector"
)

// ScreenshotSink receives screenshots captured in the course of a tool call,
// so the Orchestrator can attach them to the eventual ReviewPack without
// every tool needing to know about review-pack assembly.
type ScreenshotSink interface {
	Capture(label string, data []byte)
}

// Config is the subset of internal/config.Config every tool needs. Declared
// locally (rather than importing internal/config) to keep this package
// dependency-light and independently testable.
type Config struct {
	MaxOrders          int
	ElementTimeout     time.Duration
	NavigationTimeout  time.Duration
	ModalTimeout       time.Duration
	CartUpdateWindow   time.Duration
	PopupDismissRounds int
	BaseURL            string
}

// ToolContext is the mediator handle every tool receives — the page, a
// logger, a screenshot sink, and the tuning config — breaking the cyclic
// ownership between Orchestrator/tools/selector the same way the teacher
// plugin hands its host capabilities to the command handler and poller
// through narrow interfaces instead of a god object.
type ToolContext struct {
	Page       browser.Page
	Interactor *browser.Interactor
	Resolver   *selector.Resolver
	Logger     *zap.SugaredLogger
	Shots      ScreenshotSink
	Config     Config
}

// screenshot is a convenience that captures a page screenshot (best-effort;
// screenshot failures never fail the tool) and forwards it to the sink.
func (tc *ToolContext) screenshot(label string) []byte {
	if tc.Page == nil {
		return nil
	}
	data, err := tc.Page.Screenshot(noCtx())
	if err != nil || data == nil {
		return nil
	}
	if tc.Shots != nil {
		tc.Shots.Capture(label, data)
	}
	return data
}

// ToolError is the uniform error shape from §4.3:
// {code, recoverable, cause?}.
type ToolError struct {
	Code        model.ErrorCode
	Recoverable bool
	Cause       error
}

func (e *ToolError) Error() string {
	if e.Cause != nil {
		return string(e.Code) + ": " + e.Cause.Error()
	}
	return string(e.Code)
}

func (e *ToolError) Unwrap() error { return e.Cause }

// newError builds a *ToolError, wrapping cause with pkg/errors so the
// original call stack is preserved for diagnostics the way the teacher
// wraps KV-store and HTTP errors.
func newError(code model.ErrorCode, recoverable bool, cause error) *ToolError {
	var wrapped error
	if cause != nil {
		wrapped = errors.WithStack(cause)
	}
	return &ToolError{Code: code, Recoverable: recoverable, Cause: wrapped}
}

// Result is the uniform tool return shape: {success, data?, error?,
// screenshots[], duration}.
type Result[T any] struct {
	Success     bool
	Data        T
	Err         *ToolError
	Screenshots [][]byte
	Duration    time.Duration
}

// ok builds a successful Result, stamping Duration from start.
func ok[T any](data T, shots [][]byte, start time.Time) Result[T] {
	return Result[T]{Success: true, Data: data, Screenshots: shots, Duration: time.Since(start)}
}

// fail builds a failed Result.
func fail[T any](err *ToolError, shots [][]byte, start time.Time) Result[T] {
	var zero T
	return Result[T]{Success: false, Data: zero, Err: err, Screenshots: shots, Duration: time.Since(start)}
}
