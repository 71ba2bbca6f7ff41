package selector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/browser"
	"github.com/rfermoselle/auchan-cart-copilot/internal/browser/fake"
)

func loadedRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	require.NoError(t, reg.Load(&SelectorDef{
		PageID:     "order-history",
		Version:    1,
		URLPattern: "/conta/encomendas",
		Selectors: map[string]SelectorEntry{
			"search": {
				Primary:        "#search-input",
				Fallbacks:      []string{"input[type='search']"},
				StabilityScore: ScoreID,
			},
		},
	}))
	return reg
}

func TestTryResolve_PrimaryWins(t *testing.T) {
	reg := loadedRegistry(t)
	page := fake.NewPage("https://www.auchan.pt/conta/encomendas", &fake.Node{
		Selectors: []string{"#search-input"},
		Visible:   true,
		Box:       browser.Rect{Width: 10, Height: 10},
	})

	var warnings int
	r := NewResolver(reg, nil, func(Warning) { warnings++ })

	result, err := r.TryResolve(context.Background(), page, "order-history", "search", time.Second)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.False(t, result.UsedFallback)
	require.Equal(t, 0, warnings)
}

func TestTryResolve_FallbackWins(t *testing.T) {
	reg := loadedRegistry(t)
	// Primary selector present in no node; fallback is unique and visible.
	page := fake.NewPage("https://www.auchan.pt/conta/encomendas", &fake.Node{
		Selectors: []string{"input[type='search']"},
		Visible:   true,
		Box:       browser.Rect{Width: 10, Height: 10},
	})

	var got Warning
	r := NewResolver(reg, nil, func(w Warning) { got = w })

	result, err := r.TryResolve(context.Background(), page, "order-history", "search", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.True(t, result.UsedFallback)
	require.Equal(t, 0, result.FallbackIndex)
	require.Equal(t, "input[type='search']", got.Selector)
}

func TestTryResolve_NoneVisible_ReturnsNilNotPartial(t *testing.T) {
	reg := loadedRegistry(t)
	page := fake.NewPage("https://www.auchan.pt/conta/encomendas")

	r := NewResolver(reg, nil, nil)
	result, err := r.TryResolve(context.Background(), page, "order-history", "search", 20*time.Millisecond)
	require.NoError(t, err)
	require.Nil(t, result)
}

func TestTryResolve_UnknownPage(t *testing.T) {
	reg := NewRegistry()
	r := NewResolver(reg, nil, nil)

	_, err := r.TryResolve(context.Background(), fake.NewPage(""), "missing-page", "x", time.Second)
	require.Error(t, err)
	var pageErr *ErrSelectorPage
	require.ErrorAs(t, err, &pageErr)
}

func TestSelectorDef_ValidateRejectsEmptyChain(t *testing.T) {
	def := &SelectorDef{
		PageID:    "cart",
		Version:   1,
		Selectors: map[string]SelectorEntry{"total": {}},
	}
	require.Error(t, def.Validate())
}

func TestRegistry_RefusesOlderVersion(t *testing.T) {
	reg := loadedRegistry(t)
	err := reg.Load(&SelectorDef{
		PageID:  "order-history",
		Version: 0,
		Selectors: map[string]SelectorEntry{
			"search": {Primary: "#x"},
		},
	})
	require.Error(t, err)
}
