// Package review assembles the §4.6 diff and human review pack: the
// before/after cart comparison, merged decisions and warnings, attached
// screenshots, and a run-level confidence blend. It is emitted only when
// the orchestrator reaches the review state.
package review

import (
	"github.com/rfermoselle/auchan-cart-copilot/internal/analytics"
	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// Diff computes a CartDiff between before and after snapshots using
// identity keys (§3), so a renamed-but-identical product doesn't read as
// both a removal and an addition.
func Diff(before, after model.CartSnapshot, normalize func(string) string) model.CartDiff {
	if normalize == nil {
		normalize = analytics.Normalize
	}

	beforeByIdentity := indexByIdentity(before.Items, normalize)
	afterByIdentity := indexByIdentity(after.Items, normalize)

	var diff model.CartDiff

	for identity, afterItem := range afterByIdentity {
		beforeItem, existed := beforeByIdentity[identity]
		switch {
		case !existed:
			diff.Added = append(diff.Added, afterItem)
		case beforeItem.Quantity != afterItem.Quantity:
			diff.QuantityChanged = append(diff.QuantityChanged, model.DiffLine{
				ProductID: afterItem.ProductID,
				Name:      afterItem.Name,
				BeforeQty: beforeItem.Quantity,
				AfterQty:  afterItem.Quantity,
			})
		default:
			diff.Unchanged = append(diff.Unchanged, afterItem)
		}
	}

	for identity, beforeItem := range beforeByIdentity {
		if _, stillPresent := afterByIdentity[identity]; !stillPresent {
			diff.Removed = append(diff.Removed, beforeItem)
		}
	}

	diff.Summary = summarize(diff, before, after)
	return diff
}

func indexByIdentity(items []model.CartItem, normalize func(string) string) map[string]model.CartItem {
	out := make(map[string]model.CartItem, len(items))
	for _, item := range items {
		out[item.Identity(normalize)] = item
	}
	return out
}

func summarize(diff model.CartDiff, before, after model.CartSnapshot) model.DiffSummary {
	return model.DiffSummary{
		// §8 scenario 5 defines this as before minus after (before=€8, after=€9
		// ⇒ priceDifference=−1), not the more obvious after-minus-before delta.
		PriceDifference: before.TotalPrice.Sub(after.TotalPrice),
		ItemsAdded:      len(diff.Added),
		ItemsRemoved:    len(diff.Removed),
		ItemsChanged:    len(diff.QuantityChanged),
	}
}
