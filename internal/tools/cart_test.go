package tools

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/browser/fake"
)

func TestScanCart_EmptyCart(t *testing.T) {
	page := fake.NewPage("https://www.auchan.pt/carrinho")
	tc, _ := newTestContext(t, page)

	isEmpty := func(context.Context, *ToolContext) (bool, error) { return true, nil }

	result := ScanCart(context.Background(), tc, ScanCartInput{}, nil, isEmpty, nil, nil)
	require.True(t, result.Success)
	require.Equal(t, 0, result.Data.ItemCount)
	require.True(t, result.Data.TotalPrice.IsZero())
}

func TestScanCart_LayeredStrategyFallsThrough(t *testing.T) {
	page := fake.NewPage("https://www.auchan.pt/carrinho")
	tc, _ := newTestContext(t, page)

	isEmpty := func(context.Context, *ToolContext) (bool, error) { return false, nil }
	firstStrategyEmpty := func(context.Context, *ToolContext) ([]RawCartRow, error) { return nil, nil }
	secondStrategy := func(context.Context, *ToolContext) ([]RawCartRow, error) {
		return []RawCartRow{
			{ProductID: "p1", Name: "Leite", QtyText: "2", PriceText: "1,50 €"},
			{ProductID: "p2", Name: "Skip", QtyText: "1", PriceText: "9,99 €", Unavailable: true},
		}, nil
	}

	result := ScanCart(context.Background(), tc, ScanCartInput{}, nil, isEmpty,
		[]CartExtractStrategy{firstStrategyEmpty, secondStrategy}, nil)

	require.True(t, result.Success)
	require.Equal(t, 1, result.Data.ItemCount) // unavailable row excluded by default
	require.True(t, result.Data.TotalPrice.Equal(decimal.RequireFromString("3.00")))
}
