package tools

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/browser"
	"github.com/rfermoselle/auchan-cart-copilot/internal/browser/fake"
	"github.com/rfermoselle/auchan-cart-copilot/internal/selector"
)

type fakeCounter struct {
	count int
	total decimal.Decimal
}

func (c *fakeCounter) CountAndTotal(context.Context, *ToolContext) (int, decimal.Decimal, error) {
	return c.count, c.total, nil
}

func newTestContext(t *testing.T, page *fake.Page) (*ToolContext, *selector.Registry) {
	t.Helper()
	reg := selector.NewRegistry()
	require.NoError(t, reg.Load(&selector.SelectorDef{
		PageID:  "order-detail",
		Version: 1,
		Selectors: map[string]selector.SelectorEntry{
			"reorderButton": {Primary: "#reorder-btn"},
		},
	}))

	resolver := selector.NewResolver(reg, nil, nil)
	interactor := browser.NewInteractor(page, nil, nil)
	return &ToolContext{
		Page:       page,
		Interactor: interactor,
		Resolver:   resolver,
		Config: Config{
			ElementTimeout:     time.Second,
			ModalTimeout:       time.Second,
			CartUpdateWindow:   10 * time.Millisecond,
			PopupDismissRounds: 3,
		},
	}, reg
}

func TestReorder_HappyPath_VerifiedByCount(t *testing.T) {
	reorderBtn := &fake.Node{Selectors: []string{"#reorder-btn"}, Visible: true, Box: browser.Rect{Width: 1, Height: 1}}
	page := fake.NewPage("https://www.auchan.pt/encomendas/002915480", reorderBtn)

	// Clicking the reorder button "opens" a modal — represent by adding the
	// modal node up front (the fake has no event wiring) with confirm text.
	modal := &fake.Node{Selectors: []string{".modal"}, Visible: true, TextValue: "Encomendar de novo?", Box: browser.Rect{}}
	confirmBtn := &fake.Node{Selectors: []string{"button"}, Visible: true, TextValue: "Encomendar de novo", Box: browser.Rect{}}
	page.AddNode(modal)
	page.AddNode(confirmBtn)

	tc, _ := newTestContext(t, page)
	counter := &fakeCounter{count: 0, total: decimal.Zero}

	var calls int
	countingCounter := countFn(func() (int, decimal.Decimal, error) {
		calls++
		if calls == 1 {
			return counter.count, counter.total, nil
		}
		return 38, decimal.RequireFromString("162.51"), nil
	})

	result := Reorder(context.Background(), tc, ReorderInput{
		OrderID:   "002915480",
		DetailURL: "https://www.auchan.pt/encomendas/002915480",
		MergeMode: MergeReplace,
	}, countingCounter, []string{".modal"})

	require.True(t, result.Success)
	require.Equal(t, "count", result.Data.VerifiedBy)
	require.Equal(t, 38, result.Data.CountAfter)
	require.Equal(t, 1, reorderBtn.Clicked)
}

func TestReorder_DangerModal_NeverClicksConfirm(t *testing.T) {
	reorderBtn := &fake.Node{Selectors: []string{"#reorder-btn"}, Visible: true, Box: browser.Rect{Width: 1, Height: 1}}
	page := fake.NewPage("https://www.auchan.pt/encomendas/1", reorderBtn)

	modal := &fake.Node{Selectors: []string{".modal"}, Visible: true, TextValue: "Remover produtos do carrinho?"}
	cancelBtn := &fake.Node{Selectors: []string{"button"}, Visible: true, TextValue: "Cancelar"}
	page.AddNode(modal)
	page.AddNode(cancelBtn)

	tc, _ := newTestContext(t, page)
	counter := &fakeCounter{count: 2, total: decimal.RequireFromString("10.00")}

	result := Reorder(context.Background(), tc, ReorderInput{
		OrderID:   "1",
		DetailURL: "https://www.auchan.pt/encomendas/1",
		MergeMode: MergeMerge,
	}, counter, []string{".modal"})

	require.False(t, result.Success)
	require.Equal(t, 1, cancelBtn.Clicked)
}

type countFn func() (int, decimal.Decimal, error)

func (f countFn) CountAndTotal(context.Context, *ToolContext) (int, decimal.Decimal, error) {
	return f()
}
