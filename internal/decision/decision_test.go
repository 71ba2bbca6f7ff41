package decision

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

func TestDetectCategory_DetergenteResolvesToLaundryNotCleaning(t *testing.T) {
	cat, confidence := DetectCategory("Detergente para a Roupa Skip 40 doses")
	require.Equal(t, CategoryLaundry.Name, cat.Name)
	require.Greater(t, confidence, 0.0)
}

func TestCalculateCadence_BelowFloorFallsBackToCategoryDefault(t *testing.T) {
	result := CalculateCadence(nil, 1, CategoryDairy)
	require.True(t, result.FromDefault)
	require.Equal(t, float64(CategoryDairy.DefaultCadenceDays), result.CadenceDays)
	require.LessOrEqual(t, result.Confidence, 0.5)
}

func TestCalculateCadence_UsesMedianAboveFloor(t *testing.T) {
	result := CalculateCadence([]float64{7, 7, 7, 7}, 5, CategoryDairy)
	require.False(t, result.FromDefault)
	require.InDelta(t, 7, result.CadenceDays, 0.001)
	require.Greater(t, result.Confidence, 0.5)
}

func TestClassifyTiming_Thresholds(t *testing.T) {
	timing, _ := ClassifyTiming(2, 10, true)
	require.Equal(t, TimingRecentlyPurchased, timing)

	timing, _ = ClassifyTiming(6, 10, true)
	require.Equal(t, TimingAdequate, timing)

	timing, _ = ClassifyTiming(10, 10, true)
	require.Equal(t, TimingDueSoon, timing)

	timing, _ = ClassifyTiming(15, 10, true)
	require.Equal(t, TimingOverdue, timing)

	timing, _ = ClassifyTiming(15, 10, false)
	require.Equal(t, TimingUnknown, timing)
}

func TestDecide_UserOverrideWinsOverEverything(t *testing.T) {
	d := Decide(PruneInput{
		ProductID:         "p1",
		Override:          &model.UserOverride{ProductID: "p1", Directive: model.OverrideNeverPrune},
		IsDuplicateInCart: true,
		HasHistory:        true,
		Timing:            TimingRecentlyPurchased,
	})
	require.False(t, d.Prune)
	require.Equal(t, 1.0, d.Confidence)
}

func TestDecide_DuplicateInCartBeatsTiming(t *testing.T) {
	d := Decide(PruneInput{
		ProductID:         "p1",
		IsDuplicateInCart: true,
		HasHistory:        true,
		Timing:            TimingOverdue,
	})
	require.True(t, d.Prune)
	require.GreaterOrEqual(t, d.Confidence, 0.9)
}

func TestDecide_NoHistoryKeepsConservatively(t *testing.T) {
	d := Decide(PruneInput{ProductID: "p1", HasHistory: false})
	require.False(t, d.Prune)
	require.Less(t, d.Confidence, 0.5)
}

func TestDecide_RecentlyPurchasedCandidatePrune(t *testing.T) {
	d := Decide(PruneInput{
		ProductID:    "p1",
		HasHistory:   true,
		Timing:       TimingRecentlyPurchased,
		UrgencyRatio: 0.1,
	})
	require.True(t, d.Prune)
}

func TestDecide_ConservativeModeDowngradesLowConfidencePrune(t *testing.T) {
	in := PruneInput{
		ProductID:          "p1",
		HasHistory:         true,
		Timing:             TimingRecentlyPurchased,
		UrgencyRatio:       0.49, // near the boundary -> low confidence prune
		ConservativeMode:   true,
		MinPruneConfidence: 0.99, // force downgrade regardless of computed confidence
	}
	d := Decide(in)
	require.False(t, d.Prune)
	require.Contains(t, d.Reason, "conservative mode")
}

func TestDecide_OverdueNeverPrunes(t *testing.T) {
	d := Decide(PruneInput{
		ProductID:    "p1",
		HasHistory:   true,
		Timing:       TimingOverdue,
		UrgencyRatio: 2.0,
	})
	require.False(t, d.Prune)
}
