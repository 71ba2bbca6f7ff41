// Package server binds the §6 message protocol to the orchestrator over
// HTTP + WebSocket, using gorilla/mux for routing and gorilla/websocket for
// the state.update broadcast channel, per the teacher's router/middleware
// idiom in api.go.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/rfermoselle/auchan-cart-copilot/internal/llmreview"
	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/orchestrator"
	"github.com/rfermoselle/auchan-cart-copilot/internal/selector"
	"github.com/rfermoselle/auchan-cart-copilot/internal/store"
)

// Logger is satisfied by *zap.SugaredLogger.
type Logger interface {
	Infow(msg string, keysAndValues ...any)
	Warnw(msg string, keysAndValues ...any)
	Errorw(msg string, keysAndValues ...any)
}

// ToolRunner executes the page-dependent protocol actions (page.detect,
// login.check, order.extractHistory, order.reorder, cart.scan,
// slots.extract) plus order.loadDetail, which the conductor (pipeline.go)
// uses internally to gather purchase history for the analytics/decision
// engines but which is not itself a UI-facing protocol action. It is
// implemented by whatever process owns the live browser.Page/Interactor
// pair (the extension host), and injected here so this package stays free
// of a concrete browser driver dependency, the same seam internal/tools
// uses.
type ToolRunner interface {
	DetectPage(ctx context.Context) (string, error)
	CheckLogin(ctx context.Context) (bool, error)
	ExtractHistory(ctx context.Context, limit int) ([]model.OrderSummary, error)
	LoadOrderDetail(ctx context.Context, orderID string) (model.OrderDetail, error)
	Reorder(ctx context.Context, orderID, mode string) (model.CartSnapshot, error)
	ScanCart(ctx context.Context, includeOutOfStock bool) (model.CartSnapshot, error)
	ExtractSlots(ctx context.Context, keys []string) (any, error)
}

// Config tunes the server's HTTP surface and the run conductor's behavior.
type Config struct {
	ListenAddr           string
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration

	// MaxOrders bounds how much order history the conductor extracts per
	// run (§4.3).
	MaxOrders int
	// ConservativeMode and MinPruneConfidence tune the §4.5 pruning ladder.
	ConservativeMode   bool
	MinPruneConfidence float64
	// LLMReviewEnabled and LLMConfidenceFloor tune the optional §4.5 LLM
	// blend step; LLMReviewEnabled is redundant with llm being non-nil but
	// kept explicit so a caller can wire a client without activating it.
	LLMReviewEnabled   bool
	LLMConfidenceFloor float64
}

// Server wires the protocol dispatch table, websocket broadcast hub, and
// admin endpoints together.
type Server struct {
	cfg      Config
	machine  *orchestrator.Machine
	store    *store.Store
	registry *selector.Registry
	llm      *llmreview.Client
	tools    ToolRunner
	log      Logger

	metrics *metricsRecorder
	hub     *broadcastHub
}

// New builds a Server. tools and llm may be nil; actions requiring them
// fail with UNKNOWN when absent rather than panicking.
func New(cfg Config, machine *orchestrator.Machine, st *store.Store, registry *selector.Registry, llm *llmreview.Client, tools ToolRunner, log Logger) *Server {
	return &Server{
		cfg:      cfg,
		machine:  machine,
		store:    st,
		registry: registry,
		llm:      llm,
		tools:    tools,
		log:      log,
		metrics:  newMetricsRecorder(),
		hub:      newBroadcastHub(),
	}
}

// Router builds the gorilla/mux router, grounded in the teacher's
// initRouter: a rate-limited protocol subrouter plus the admin and websocket
// endpoints, which sit outside the rate limit. No route is authenticated.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/v1/admin/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/admin/metrics", s.handleMetrics).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/ws", s.handleWebSocket).Methods(http.MethodGet)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	limiter := newInMemoryRateLimiter(s.rateLimitMax(), s.rateLimitWindow(), nil)
	apiRouter.Use(rateLimitMiddleware(limiter))
	apiRouter.HandleFunc("/request", s.handleRequest).Methods(http.MethodPost)

	return router
}

func (s *Server) rateLimitMax() int {
	if s.cfg.RateLimitMaxRequests > 0 {
		return s.cfg.RateLimitMaxRequests
	}
	return 100
}

func (s *Server) rateLimitWindow() time.Duration {
	if s.cfg.RateLimitWindow > 0 {
		return s.cfg.RateLimitWindow
	}
	return time.Minute
}

func (s *Server) maxOrders() int {
	if s.cfg.MaxOrders > 0 {
		return s.cfg.MaxOrders
	}
	return 50
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.ListenAddr
	if addr == "" {
		addr = ":8787"
	}
	return http.ListenAndServe(addr, s.Router())
}
