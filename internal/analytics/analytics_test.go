package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

func day(offset int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func TestEngine_Build_ConfidenceInRange(t *testing.T) {
	records := []model.PurchaseRecord{
		{ProductID: "skip", PurchaseDate: day(-92), Quantity: 1, OrderID: "o1"},
		{ProductID: "skip", PurchaseDate: day(-47), Quantity: 1, OrderID: "o2"},
		{ProductID: "skip", PurchaseDate: day(-2), Quantity: 1, OrderID: "o3"},
	}

	e := NewEngine(DefaultConfig())
	out := e.Build(records, day(0))

	pa, ok := out["skip"]
	require.True(t, ok)
	require.GreaterOrEqual(t, pa.AnalyticsConfidence, 0.1)
	require.LessOrEqual(t, pa.AnalyticsConfidence, 0.99)
	require.GreaterOrEqual(t, pa.Interval.CV, 0.0)
	require.GreaterOrEqual(t, pa.Seasonality.Score, 0.0)
	require.LessOrEqual(t, pa.Seasonality.Score, 1.0)
}

func TestEngine_Build_RespectsAsOfCutoff(t *testing.T) {
	records := []model.PurchaseRecord{
		{ProductID: "skip", PurchaseDate: day(-10), Quantity: 1, OrderID: "o1"},
		{ProductID: "skip", PurchaseDate: day(10), Quantity: 1, OrderID: "o2"}, // future relative to asOf
	}

	e := NewEngine(DefaultConfig())
	out := e.Build(records, day(0))

	pa := out["skip"]
	require.Equal(t, 0, pa.Interval.Count) // only one eligible record -> no intervals
}

func TestCoPurchaseGraph_LiftAboveOne(t *testing.T) {
	records := []model.PurchaseRecord{
		{ProductID: "bread", PurchaseDate: day(-10), Quantity: 1, OrderID: "o1"},
		{ProductID: "butter", PurchaseDate: day(-10), Quantity: 1, OrderID: "o1"},
		{ProductID: "bread", PurchaseDate: day(-20), Quantity: 1, OrderID: "o2"},
		{ProductID: "butter", PurchaseDate: day(-20), Quantity: 1, OrderID: "o2"},
		{ProductID: "milk", PurchaseDate: day(-30), Quantity: 1, OrderID: "o3"},
	}

	e := NewEngine(DefaultConfig())
	out := e.Build(records, day(0))

	bread := out["bread"]
	require.NotEmpty(t, bread.FrequentlyBoughtWith)
	require.Equal(t, "butter", bread.FrequentlyBoughtWith[0].ProductID)
	require.Greater(t, bread.FrequentlyBoughtWith[0].Lift, 1.0)
}

func TestNormalize_FoldsAccentsAndCase(t *testing.T) {
	require.Equal(t, "detergente", Normalize("  DETERGENTE  "))
	require.Equal(t, "remocao", Normalize("Remoção"))
}
