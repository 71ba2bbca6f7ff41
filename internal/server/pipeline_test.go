package server

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/orchestrator"
	"github.com/rfermoselle/auchan-cart-copilot/internal/protocol"
	"github.com/rfermoselle/auchan-cart-copilot/internal/selector"
	"github.com/rfermoselle/auchan-cart-copilot/internal/store"
)

// fakeToolRunner is a canned ToolRunner standing in for the extension host,
// returning a cart with a frequently-bought staple (milk, bought weekly and
// last two days ago, so recently purchased by cadence) and a fresh-produce
// item with no history at all.
type fakeToolRunner struct {
	history []model.OrderSummary
	details map[string]model.OrderDetail
	cart    model.CartSnapshot
}

func (f *fakeToolRunner) DetectPage(context.Context) (string, error)  { return "order-history", nil }
func (f *fakeToolRunner) CheckLogin(context.Context) (bool, error)    { return true, nil }
func (f *fakeToolRunner) ExtractSlots(context.Context, []string) (any, error) {
	return map[string]string{}, nil
}

func (f *fakeToolRunner) ExtractHistory(_ context.Context, limit int) ([]model.OrderSummary, error) {
	if limit > 0 && limit < len(f.history) {
		return f.history[:limit], nil
	}
	return f.history, nil
}

func (f *fakeToolRunner) LoadOrderDetail(_ context.Context, orderID string) (model.OrderDetail, error) {
	return f.details[orderID], nil
}

func (f *fakeToolRunner) Reorder(context.Context, string, string) (model.CartSnapshot, error) {
	return f.cart, nil
}

func (f *fakeToolRunner) ScanCart(context.Context, bool) (model.CartSnapshot, error) {
	return f.cart, nil
}

func newFakeToolRunner(now time.Time) *fakeToolRunner {
	milkLine := model.OrderLineItem{ProductID: "milk-1", Name: "Leite Meio Gordo", Quantity: 2, UnitPrice: decimal.NewFromFloat(0.79)}
	orders := []model.OrderSummary{
		{OrderID: "o3", Date: now.AddDate(0, 0, -2)},
		{OrderID: "o2", Date: now.AddDate(0, 0, -9)},
		{OrderID: "o1", Date: now.AddDate(0, 0, -16)},
	}
	details := map[string]model.OrderDetail{
		"o3": {OrderSummary: orders[0], Items: []model.OrderLineItem{milkLine}},
		"o2": {OrderSummary: orders[1], Items: []model.OrderLineItem{milkLine}},
		"o1": {OrderSummary: orders[2], Items: []model.OrderLineItem{milkLine}},
	}
	cart := model.CartSnapshot{
		Timestamp: now,
		Items: []model.CartItem{
			{ProductID: "milk-1", Name: "Leite Meio Gordo", Quantity: 2, UnitPrice: decimal.NewFromFloat(0.79), Available: true},
			{ProductID: "basil-1", Name: "Manjericao Fresco", Quantity: 1, UnitPrice: decimal.NewFromFloat(1.29), Available: true},
		},
		ItemCount:  2,
		TotalPrice: decimal.NewFromFloat(2.87),
	}
	return &fakeToolRunner{history: orders, details: details, cart: cart}
}

func newConductorTestServer(t *testing.T, tools ToolRunner) *Server {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	m := orchestrator.New(st, nil, time.Second)
	require.NoError(t, m.Load())
	t.Cleanup(m.Stop)

	cfg := Config{MaxOrders: 10, MinPruneConfidence: 0.5}
	return New(cfg, m, st, selector.NewRegistry(), nil, tools, nil)
}

func TestRunConductor_ReachesReviewWithPopulatedPack(t *testing.T) {
	now := time.Now()
	tools := newFakeToolRunner(now)
	srv := newConductorTestServer(t, tools)

	resp := postRequest(t, srv, protocol.Request{ID: "1", Action: protocol.ActionRunStart})
	require.True(t, resp.Success)

	require.Eventually(t, func() bool {
		return srv.machine.State().Status == model.StatusReview
	}, 2*time.Second, 10*time.Millisecond)

	rs := srv.machine.State()
	require.NotNil(t, rs.ReviewPack)
	require.Len(t, rs.ReviewPack.Decisions, 2)

	var milkDecision, basilDecision *model.PruneDecision
	for i := range rs.ReviewPack.Decisions {
		switch rs.ReviewPack.Decisions[i].ProductID {
		case "milk-1":
			milkDecision = &rs.ReviewPack.Decisions[i]
		case "basil-1":
			basilDecision = &rs.ReviewPack.Decisions[i]
		}
	}
	require.NotNil(t, milkDecision)
	require.NotNil(t, basilDecision)

	// No purchase history at all for basil -> conservative keep.
	require.False(t, basilDecision.Prune)
}

func TestRunConductor_NoToolRunnerPausesWithError(t *testing.T) {
	srv := newConductorTestServer(t, nil)

	resp := postRequest(t, srv, protocol.Request{ID: "1", Action: protocol.ActionRunStart})
	require.True(t, resp.Success)

	require.Eventually(t, func() bool {
		return srv.machine.State().Status == model.StatusPaused
	}, 2*time.Second, 10*time.Millisecond)

	rs := srv.machine.State()
	require.NotNil(t, rs.Error)
	require.False(t, rs.Error.Recoverable)
}
