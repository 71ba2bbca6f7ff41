package tools

import (
	"context"
	"time"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
)

// Slot is one named field extracted off the current page by extractSlots —
// e.g. a delivery window, a loyalty-points balance, or any other small
// labeled value the review UI wants to surface alongside the cart diff but
// that doesn't belong in the CartSnapshot/OrderDetail schemas themselves.
type Slot struct {
	Key   string
	Value string
}

// ExtractSlotsInput names which selector-registry keys to read, scoped
// under the "slots" pageId so authoring a new slot never touches the
// order-history/cart/detail page definitions.
type ExtractSlotsInput struct {
	Keys []string
}

// ExtractSlots reads the named slot keys off the current page via the
// selector registry, skipping (with a warning, not a failure) any key whose
// selector chain fails to resolve — a missing optional slot must never fail
// the whole tool, matching §7's "skip the malformed record" validation
// policy. The tool fails only when keys were requested and none resolved.
func ExtractSlots(ctx context.Context, tc *ToolContext, in ExtractSlotsInput, warn func(string)) Result[[]Slot] {
	start := time.Now()

	var slots []Slot
	for _, key := range in.Keys {
		result, err := tc.Resolver.TryResolve(ctx, tc.Page, "slots", key, tc.Config.ElementTimeout)
		if err != nil {
			if warn != nil {
				warn("slot " + key + ": " + err.Error())
			}
			continue
		}
		if result == nil {
			if warn != nil {
				warn("slot " + key + ": no candidate selector resolved")
			}
			continue
		}
		text, err := result.Element.Text(ctx)
		if err != nil {
			continue
		}
		slots = append(slots, Slot{Key: key, Value: text})
	}

	if len(in.Keys) > 0 && len(slots) == 0 {
		return fail[[]Slot](newError(model.ErrSelector, true, nil), nil, start)
	}
	return ok(slots, nil, start)
}
