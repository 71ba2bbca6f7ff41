package decision

import (
	"fmt"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// PruneInput carries everything the precedence ladder in §4.5 needs for one
// cart item.
type PruneInput struct {
	ProductID          string
	Override           *model.UserOverride
	IsDuplicateInCart  bool // a later duplicate of an item identity already seen this run
	HasHistory         bool
	Timing             Timing
	UrgencyRatio       float64
	ConservativeMode   bool
	MinPruneConfidence float64
}

// Decide implements §4.5's pruning decision precedence ladder, highest wins:
//  1. User override (alwaysPrune/neverPrune -> confidence 1.0)
//  2. Duplicate in the same cart -> prune, confidence >= 0.9
//  3. No history -> conservative keep, low confidence
//  4. Timing -> recently-purchased candidates prune; due-soon/overdue keep
//     with rising confidence
//  5. Conservative mode -> any candidate-prune below MinPruneConfidence is
//     downgraded to keep
func Decide(in PruneInput) model.PruneDecision {
	if in.Override != nil {
		switch in.Override.Directive {
		case model.OverrideAlwaysPrune:
			return model.PruneDecision{
				ProductID: in.ProductID, Prune: true, Confidence: 1.0,
				Reason: "user override: always prune",
			}
		case model.OverrideNeverPrune:
			return model.PruneDecision{
				ProductID: in.ProductID, Prune: false, Confidence: 1.0,
				Reason: "user override: never prune",
			}
		}
	}

	if in.IsDuplicateInCart {
		return model.PruneDecision{
			ProductID: in.ProductID, Prune: true, Confidence: 0.9,
			Reason: "duplicate of an item already present in the rebuilt cart",
		}
	}

	if !in.HasHistory {
		return model.PruneDecision{
			ProductID: in.ProductID, Prune: false, Confidence: 0.2,
			Reason: "no purchase history for this product; keeping conservatively",
		}
	}

	decision := decideByTiming(in.ProductID, in.Timing, in.UrgencyRatio)

	if in.ConservativeMode && decision.Prune && decision.Confidence < in.MinPruneConfidence {
		decision.Prune = false
		decision.Reason = fmt.Sprintf("%s (downgraded to keep: conservative mode, confidence %.2f < threshold %.2f)",
			decision.Reason, decision.Confidence, in.MinPruneConfidence)
	}

	return decision
}

func decideByTiming(productID string, timing Timing, urgencyRatio float64) model.PruneDecision {
	switch timing {
	case TimingRecentlyPurchased:
		// Lower urgencyRatio -> more confidently "still have it".
		confidence := clamp(0.5+(0.5-urgencyRatio), 0.5, 0.95)
		return model.PruneDecision{
			ProductID: productID, Prune: true, Confidence: confidence,
			Reason: "recently purchased relative to cadence",
		}
	case TimingAdequate:
		return model.PruneDecision{
			ProductID: productID, Prune: false, Confidence: 0.55,
			Reason: "purchased within adequate window of cadence",
		}
	case TimingDueSoon:
		confidence := clamp(0.6+(urgencyRatio-0.9), 0.6, 0.9)
		return model.PruneDecision{
			ProductID: productID, Prune: false, Confidence: confidence,
			Reason: "due soon relative to cadence",
		}
	case TimingOverdue:
		confidence := clamp(0.7+(urgencyRatio-1.2)*0.2, 0.7, 0.97)
		return model.PruneDecision{
			ProductID: productID, Prune: false, Confidence: confidence,
			Reason: "overdue relative to cadence",
		}
	default:
		return model.PruneDecision{
			ProductID: productID, Prune: false, Confidence: 0.3,
			Reason: "timing unknown; keeping conservatively",
		}
	}
}
