package review

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/analytics"
	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

func item(name string, qty int, price string) model.CartItem {
	return model.CartItem{Name: name, Quantity: qty, UnitPrice: decimal.RequireFromString(price), Available: true}
}

func TestDiff_ClassifiesAddedRemovedChangedUnchanged(t *testing.T) {
	before := model.CartSnapshot{
		Items:      []model.CartItem{item("Leite", 2, "1.00"), item("Arroz", 1, "2.00")},
		TotalPrice: decimal.RequireFromString("4.00"),
	}
	after := model.CartSnapshot{
		Items:      []model.CartItem{item("Leite", 1, "1.00"), item("Pao", 1, "1.50")},
		TotalPrice: decimal.RequireFromString("2.50"),
	}

	diff := Diff(before, after, analytics.Normalize)

	require.Len(t, diff.Added, 1)
	require.Equal(t, "Pao", diff.Added[0].Name)
	require.Len(t, diff.Removed, 1)
	require.Equal(t, "Arroz", diff.Removed[0].Name)
	require.Len(t, diff.QuantityChanged, 1)
	require.Equal(t, 2, diff.QuantityChanged[0].BeforeQty)
	require.Equal(t, 1, diff.QuantityChanged[0].AfterQty)
	require.True(t, diff.Summary.PriceDifference.Equal(decimal.RequireFromString("1.50")))
}

func TestAssembler_Build_BlendsConfidence(t *testing.T) {
	a := NewAssembler(Config{AnalyticsWeight: 0.5})

	in := BuildInput{
		RunID:               "r1",
		Before:              model.CartSnapshot{},
		After:               model.CartSnapshot{},
		Decisions:           []model.PruneDecision{{ProductID: "p1", Confidence: 0.8}, {ProductID: "p2", Confidence: 0.4}},
		AnalyticsConfidence: map[string]float64{"p1": 0.9, "p2": 0.5},
	}

	pack := a.Build(in)
	require.Equal(t, "r1", pack.RunID)
	require.InDelta(t, (0.7*0.5)+(0.6*0.5), pack.Confidence, 0.001)
	require.WithinDuration(t, time.Now(), pack.GeneratedAt, time.Minute)
}

func TestAssembler_Build_FallsBackWhenNoAnalytics(t *testing.T) {
	a := NewAssembler(DefaultConfig())
	pack := a.Build(BuildInput{
		Decisions: []model.PruneDecision{{ProductID: "p1", Confidence: 0.6}},
	})
	require.InDelta(t, 0.6, pack.Confidence, 0.001)
}
