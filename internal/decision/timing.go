package decision

// Timing is the §4.5 urgency classification.
type Timing string

const (
	TimingRecentlyPurchased Timing = "recently-purchased"
	TimingAdequate          Timing = "adequate"
	TimingDueSoon           Timing = "due-soon"
	TimingOverdue           Timing = "overdue"
	TimingUnknown           Timing = "unknown"
)

// ClassifyTiming implements §4.5's timing classifier: urgencyRatio r =
// daysSincePurchase/cadenceDays, classified r<0.5 recently-purchased,
// 0.5<=r<0.9 adequate, 0.9<=r<1.2 due-soon, r>=1.2 overdue. Unknown when the
// last purchase date is missing (hasLastPurchase=false).
func ClassifyTiming(daysSincePurchase float64, cadenceDays float64, hasLastPurchase bool) (Timing, float64) {
	if !hasLastPurchase || cadenceDays <= 0 {
		return TimingUnknown, 0
	}

	r := daysSincePurchase / cadenceDays

	switch {
	case r < 0.5:
		return TimingRecentlyPurchased, r
	case r < 0.9:
		return TimingAdequate, r
	case r < 1.2:
		return TimingDueSoon, r
	default:
		return TimingOverdue, r
	}
}
