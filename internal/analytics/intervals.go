package analytics

import (
	"time"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// computeIntervals returns the inter-purchase intervals in days between
// consecutive (already date-sorted) records.
func computeIntervals(sortedRecs []model.PurchaseRecord) []float64 {
	if len(sortedRecs) < 2 {
		return nil
	}
	intervals := make([]float64, 0, len(sortedRecs)-1)
	for i := 1; i < len(sortedRecs); i++ {
		d := sortedRecs[i].PurchaseDate.Sub(sortedRecs[i-1].PurchaseDate)
		intervals = append(intervals, d.Hours()/24)
	}
	return intervals
}

func buildIntervalStats(intervalsDays []float64) model.IntervalStats {
	m := mean(intervalsDays)
	sd := stdDev(intervalsDays, m)
	lo, hi := minMax(intervalsDays)

	var cv float64
	if m != 0 {
		cv = sd / m
	}

	return model.IntervalStats{
		Count:  len(intervalsDays),
		Mean:   m,
		StdDev: sd,
		Min:    lo,
		Max:    hi,
		Median: median(intervalsDays),
		CV:     cv,
	}
}

func buildQuantityStats(quantities []float64) model.QuantityStats {
	m := mean(quantities)
	sd := stdDev(quantities, m)
	var total float64
	for _, q := range quantities {
		total += q
	}
	return model.QuantityStats{
		Mean:   m,
		StdDev: sd,
		Mode:   mode(quantities),
		Total:  total,
	}
}

// buildTrend implements §4.4's trend classification: over the last
// recentWindowSize intervals, delta = (recentMean - historicalMean) /
// historicalMean; fit y = a + bx to the full interval sequence; classify
// accelerating (slope < -0.5 and R² > 0.3), decelerating (slope > 0.5 and
// R² > 0.3), else stable.
func buildTrend(intervalsDays []float64, recentWindowSize int) model.TrendStats {
	if len(intervalsDays) == 0 {
		return model.TrendStats{VelocityTrend: model.TrendStable}
	}

	slope, rSquared := linearFit(intervalsDays)

	window := recentWindowSize
	if window <= 0 || window > len(intervalsDays) {
		window = len(intervalsDays)
	}
	recent := intervalsDays[len(intervalsDays)-window:]
	recentMean := mean(recent)
	historicalMean := mean(intervalsDays)

	var delta float64
	if historicalMean != 0 {
		delta = (recentMean - historicalMean) / historicalMean
	}

	trend := model.TrendStable
	switch {
	case slope < -0.5 && rSquared > 0.3:
		trend = model.TrendAccelerating
	case slope > 0.5 && rSquared > 0.3:
		trend = model.TrendDecelerating
	}

	return model.TrendStats{
		Delta:         delta,
		Slope:         slope,
		RSquared:      rSquared,
		VelocityTrend: trend,
	}
}

// buildSeasonality implements §4.4's seasonality block: χ² of the
// month-of-purchase histogram against uniform, normalized to [0,1], with
// peak/trough months and an isCurrentlyPeakSeason flag.
func buildSeasonality(recs []model.PurchaseRecord) model.SeasonalityStats {
	var histogram [12]int
	for _, r := range recs {
		histogram[int(r.PurchaseDate.Month())-1]++
	}

	observed := histogram[:]
	chi2 := chiSquareUniform(observed)
	// Normalize against the maximum possible χ² for this sample size: all
	// mass concentrated in a single bin out of 12, with the same total
	// count, which is (total)*(11) when evenly spread otherwise — guard
	// division by zero for an empty or single-purchase history.
	total := 0
	for _, c := range observed {
		total += c
	}
	maxChi2 := float64(total) * 11
	var score float64
	if maxChi2 > 0 {
		score = clamp(chi2/maxChi2, 0, 1)
	}

	peak, trough := 0, 0
	for m := 1; m < 12; m++ {
		if histogram[m] > histogram[peak] {
			peak = m
		}
		if histogram[m] < histogram[trough] {
			trough = m
		}
	}

	isPeak := total > 0 && int(time.Now().Month())-1 == peak

	return model.SeasonalityStats{
		Score:                 score,
		PeakMonth:             peak + 1,
		TroughMonth:           trough + 1,
		IsCurrentlyPeakSeason: isPeak,
	}
}
