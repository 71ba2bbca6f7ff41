package server

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfermoselle/auchan-cart-copilot/internal/analytics"
	"github.com/rfermoselle/auchan-cart-copilot/internal/decision"
	"github.com/rfermoselle/auchan-cart-copilot/internal/llmreview"
	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/orchestrator"
	"github.com/rfermoselle/auchan-cart-copilot/internal/review"
)

// runConductor sequences one run the way §4.7 describes it: "Orchestrator
// sequences phases -> each phase invokes one or more Tools via the
// Interactor -> ... -> extracted data feeds Analytics/Decisions -> Assembler
// produces the review pack -> state machine halts in review." It runs in
// its own goroutine so the run.start handler returns immediately with the
// running state; every phase boundary is checkpointed through
// m.Handle(EventPhaseComplete) before moving on, and any failure pauses the
// run with a human-readable, recoverable-flagged error rather than
// silently stopping, per §7.
func (s *Server) runConductor(runID, orderID string, override orchestrator.RunOverride) {
	ctx := context.Background()

	settings := s.resolveRunSettings(override)

	orders, cart, err := s.runExtraction(ctx, runID, orderID)
	if err != nil {
		return
	}

	records := s.gatherPurchaseRecords(ctx, runID, orders)
	s.advancePhase(runID, "analyze")

	pack := s.buildReviewPack(runID, cart, records, settings)

	rs := s.machine.State()
	rs.ReviewPack = &pack
	// Persist the pack on the checkpoint directly; there is no separate
	// reviewPack store file, so the assembled pack rides along with the run
	// state it belongs to.
	if err := s.store.SaveRunState(&rs); err != nil {
		s.failRun(runID, "failed to persist review pack: "+err.Error(), true)
		return
	}

	next, err := s.machine.Handle(orchestrator.Event{Kind: orchestrator.EventReachReview, ReviewPack: &pack})
	if err != nil {
		s.warnw("failed to reach review state", "runId", runID, "error", err)
		return
	}
	next.ReviewPack = &pack
	s.metrics.recordRunStatus(next.Status)
	s.hub.Broadcast(next)
}

// runExtraction drives page detection, login check, order-history
// extraction, reorder, and cart scan -- the CartBuilder half of the
// pipeline -- returning the order summaries and the resulting cart.
func (s *Server) runExtraction(ctx context.Context, runID, orderID string) ([]model.OrderSummary, model.CartSnapshot, error) {
	if s.tools == nil {
		return nil, model.CartSnapshot{}, s.failRun(runID, "no browser host attached to this server instance", false)
	}

	if _, err := s.tools.DetectPage(ctx); err != nil {
		return nil, model.CartSnapshot{}, s.failRun(runID, "page detection failed: "+err.Error(), true)
	}
	s.advancePhase(runID, "login")

	loggedIn, err := s.tools.CheckLogin(ctx)
	if err != nil || !loggedIn {
		return nil, model.CartSnapshot{}, s.failRun(runID, "not logged in to the storefront", true)
	}
	s.advancePhase(runID, "history")

	orders, err := s.tools.ExtractHistory(ctx, s.maxOrders())
	if err != nil {
		return nil, model.CartSnapshot{}, s.failRun(runID, "order history extraction failed: "+err.Error(), true)
	}
	if len(orders) == 0 {
		return nil, model.CartSnapshot{}, s.failRun(runID, "no order history available to reconstruct a cart from", false)
	}
	s.advancePhase(runID, "reorder")

	target := orderID
	if target == "" {
		target = orders[0].OrderID
	}
	if _, err := s.tools.Reorder(ctx, target, "replace"); err != nil {
		return nil, model.CartSnapshot{}, s.failRun(runID, "reorder failed: "+err.Error(), true)
	}
	s.advancePhase(runID, "scan")

	cart, err := s.tools.ScanCart(ctx, false)
	if err != nil {
		return nil, model.CartSnapshot{}, s.failRun(runID, "cart scan failed: "+err.Error(), true)
	}

	return orders, cart, nil
}

// gatherPurchaseRecords loads each historical order's detail and flattens
// its line items into PurchaseRecords, the analytics engine's input. A
// single order's detail failing to load is skipped with a warning rather
// than aborting the run, matching §7's "skip the malformed record" policy
// for validation failures.
func (s *Server) gatherPurchaseRecords(ctx context.Context, runID string, orders []model.OrderSummary) []model.PurchaseRecord {
	var records []model.PurchaseRecord
	for _, o := range orders {
		detail, err := s.tools.LoadOrderDetail(ctx, o.OrderID)
		if err != nil {
			s.warnw("skipping order detail for analytics", "runId", runID, "orderId", o.OrderID, "error", err)
			continue
		}
		for _, item := range detail.Items {
			records = append(records, model.PurchaseRecord{
				ProductID:    item.ProductID,
				ProductName:  item.Name,
				PurchaseDate: detail.Date,
				Quantity:     item.Quantity,
				OrderID:      o.OrderID,
			})
		}
	}
	return records
}

// buildReviewPack is the StockPruner half of the pipeline: it derives
// per-product analytics, runs the §4.5 pruning decision ladder (blended
// with the optional LLM reviewer), and assembles the §4.6 ReviewPack.
func (s *Server) buildReviewPack(runID string, cart model.CartSnapshot, records []model.PurchaseRecord, settings orchestrator.RunSettings) model.ReviewPack {
	now := time.Now()
	engine := analytics.NewEngine(analytics.DefaultConfig())
	byIdentity := engine.Build(records, now)

	lastPurchase := lastPurchaseDates(records)

	seen := make(map[string]bool, len(cart.Items))
	decisions := make([]model.PruneDecision, 0, len(cart.Items))
	analyticsConfidence := make(map[string]float64, len(cart.Items))

	for _, item := range cart.Items {
		identity := item.Identity(analytics.Normalize)
		duplicate := seen[identity]
		seen[identity] = true

		pa, hasHistory := byIdentity[identity]
		if hasHistory {
			analyticsConfidence[item.ProductID] = pa.AnalyticsConfidence
		}

		category, _ := decision.DetectCategory(item.Name)

		var timing decision.Timing
		var urgencyRatio float64
		if hasHistory {
			last, hasLast := lastPurchase[identity]
			intervals := purchaseIntervalsDays(records, identity)
			cadence := decision.CalculateCadence(intervals, len(intervals)+1, category)
			daysSince := 0.0
			if hasLast {
				daysSince = now.Sub(last).Hours() / 24
			}
			timing, urgencyRatio = decision.ClassifyTiming(daysSince, cadence.CadenceDays, hasLast)
		} else {
			timing = decision.TimingUnknown
		}

		var override *model.UserOverride
		if ov, err := s.store.GetPreference(item.ProductID); err == nil {
			override = ov
		}

		heuristic := decision.Decide(decision.PruneInput{
			ProductID:          item.ProductID,
			Override:           override,
			IsDuplicateInCart:  duplicate,
			HasHistory:         hasHistory,
			Timing:             timing,
			UrgencyRatio:       urgencyRatio,
			ConservativeMode:   settings.ConservativeMode,
			MinPruneConfidence: settings.MinPruneConfidence,
		})
		decisions = append(decisions, heuristic)
	}

	if settings.LLMReviewEnabled && s.llm != nil {
		decisions = s.applyLLMReview(cart, decisions, byIdentity, settings)
	}

	after := applyPruneDecisions(cart, decisions)

	assembler := review.NewAssembler(review.DefaultConfig())
	return assembler.Build(review.BuildInput{
		RunID:               runID,
		Before:              cart,
		After:               after,
		Decisions:           decisions,
		AnalyticsConfidence: analyticsConfidence,
		Normalize:           analytics.Normalize,
	})
}

// applyLLMReview sends candidate prune decisions through the optional
// batch reviewer and blends the result, per §4.5.
func (s *Server) applyLLMReview(cart model.CartSnapshot, decisions []model.PruneDecision, byIdentity map[string]model.ProductAnalytics, settings orchestrator.RunSettings) []model.PruneDecision {
	itemByID := make(map[string]model.CartItem, len(cart.Items))
	for _, item := range cart.Items {
		itemByID[item.ProductID] = item
	}

	req := llmreview.BatchRequest{}
	for _, item := range cart.Items {
		req.CartProductIDs = append(req.CartProductIDs, item.ProductID)
	}

	for _, d := range decisions {
		item, ok := itemByID[d.ProductID]
		if !ok {
			continue
		}
		if !d.Prune {
			req.AlreadyKept = append(req.AlreadyKept, d.ProductID)
			continue
		}
		identity := item.Identity(analytics.Normalize)
		category, _ := decision.DetectCategory(item.Name)
		pa := byIdentity[identity]
		req.UnderReview = append(req.UnderReview, llmreview.ItemContext{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Category:       category.Name,
			CadenceDays:    pa.Interval.Median,
			HeuristicPrune: d.Prune,
			HeuristicConf:  d.Confidence,
		})
	}

	if len(req.UnderReview) == 0 {
		return decisions
	}

	llmDecisions, err := s.llm.ReviewBatch(context.Background(), req)
	if err != nil {
		s.warnw("llm batch review failed; falling back to heuristic decisions", "error", err)
		return decisions
	}
	byID := llmreview.IndexByProductID(llmDecisions)

	out := make([]model.PruneDecision, len(decisions))
	for i, d := range decisions {
		out[i] = llmreview.Blend(d, byID[d.ProductID], s.cfg.LLMConfidenceFloor)
	}
	return out
}

// resolveRunSettings implements the §4.5 per-run -> household -> global
// settings cascade (orchestrator.ResolveSettings), grounded in the
// teacher's per-mention -> user-settings -> global-config resolution for
// HITL flags. A household-settings read failure falls back to the global
// config defaults rather than failing the run over a non-critical read.
func (s *Server) resolveRunSettings(override orchestrator.RunOverride) orchestrator.RunSettings {
	global := orchestrator.RunSettings{
		ConservativeMode:   s.cfg.ConservativeMode,
		MinPruneConfidence: s.cfg.MinPruneConfidence,
		LLMReviewEnabled:   s.cfg.LLMReviewEnabled,
	}

	hs, err := s.store.LoadHouseholdSettings()
	if err != nil {
		s.warnw("failed to load household settings; using global config defaults", "error", err)
		return orchestrator.ResolveSettings(global, orchestrator.HouseholdSettings{}, override)
	}

	household := orchestrator.HouseholdSettings{
		ConservativeMode:   hs.ConservativeMode,
		MinPruneConfidence: hs.MinPruneConfidence,
		LLMReviewEnabled:   hs.LLMReviewEnabled,
	}
	return orchestrator.ResolveSettings(global, household, override)
}

// applyPruneDecisions returns the cart with every item decided prune=true
// removed, simulating what the run would propose -- nothing is ever
// actually removed from the live cart by this step; that only happens if
// the human reviewer approves.
func applyPruneDecisions(cart model.CartSnapshot, decisions []model.PruneDecision) model.CartSnapshot {
	prune := make(map[string]bool, len(decisions))
	for _, d := range decisions {
		prune[d.ProductID] = d.Prune
	}

	kept := make([]model.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if prune[item.ProductID] {
			continue
		}
		kept = append(kept, item)
	}

	after := model.CartSnapshot{Timestamp: time.Now(), Items: kept, ItemCount: len(kept), TotalPrice: decimal.Zero}
	for _, item := range kept {
		after.TotalPrice = after.TotalPrice.Add(item.LineTotal())
	}
	return after
}

func lastPurchaseDates(records []model.PurchaseRecord) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, r := range records {
		identity := r.Identity(analytics.Normalize)
		if existing, ok := out[identity]; !ok || r.PurchaseDate.After(existing) {
			out[identity] = r.PurchaseDate
		}
	}
	return out
}

// purchaseIntervalsDays returns the sorted inter-purchase gaps, in days,
// for one product identity -- decision.CalculateCadence's raw input, the
// same computation analytics/intervals.go performs internally for
// ProductAnalytics.Interval, recomputed here since that helper is
// unexported.
func purchaseIntervalsDays(records []model.PurchaseRecord, identity string) []float64 {
	var dates []time.Time
	for _, r := range records {
		if r.Identity(analytics.Normalize) == identity {
			dates = append(dates, r.PurchaseDate)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	intervals := make([]float64, 0, len(dates))
	for i := 1; i < len(dates); i++ {
		intervals = append(intervals, dates[i].Sub(dates[i-1]).Hours()/24)
	}
	return intervals
}

// advancePhase checkpoints a phase boundary without changing run status.
func (s *Server) advancePhase(runID, phase string) {
	if _, err := s.machine.Handle(orchestrator.Event{Kind: orchestrator.EventPhaseComplete, Phase: phase}); err != nil {
		s.warnw("failed to checkpoint phase", "runId", runID, "phase", phase, "error", err)
	}
}

// failRun pauses the run with a human-readable, recoverable-flagged error
// and broadcasts the result, per §7's "a failed run never silently
// proceeds." It always returns a non-nil error so callers can short-circuit.
func (s *Server) failRun(runID, message string, recoverable bool) error {
	rs, err := s.machine.Handle(orchestrator.Event{Kind: orchestrator.EventError, Message: message, Recoverable: recoverable})
	if err != nil {
		s.warnw("failed to transition run to error state", "runId", runID, "error", err)
	} else {
		s.metrics.recordRunStatus(rs.Status)
		s.hub.Broadcast(rs)
	}
	s.errorw("run failed", "runId", runID, "message", message, "recoverable", recoverable)
	return errConductorFailed{message}
}

// warnw and errorw guard s.log being nil, which a Server built without a
// logger (as in unit tests) leaves unset.
func (s *Server) warnw(msg string, keysAndValues ...any) {
	if s.log != nil {
		s.log.Warnw(msg, keysAndValues...)
	}
}

func (s *Server) errorw(msg string, keysAndValues ...any) {
	if s.log != nil {
		s.log.Errorw(msg, keysAndValues...)
	}
}

type errConductorFailed struct{ message string }

func (e errConductorFailed) Error() string { return e.message }
