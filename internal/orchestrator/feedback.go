package orchestrator

import (
	"time"

	"github.com/pkg/errors"

	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/store"
)

// SubmitReviewFeedback implements the review-session feedback loop: a user
// may leave a directive on a specific product from the review pack instead
// of approving outright. This rejects the current review (no transition out
// of review ever invokes a purchase-like tool) and persists the directive
// as a UserOverride so the next run incorporates it.
func (m *Machine) SubmitReviewFeedback(st *store.Store, productID string, directive model.OverrideDirective, customCadenceDays int) (model.RunState, error) {
	rs, err := m.Handle(Event{Kind: EventRejectReview})
	if err != nil {
		return rs, errors.Wrap(err, "reject review for feedback")
	}

	ov := model.UserOverride{
		ProductID:         productID,
		Directive:         directive,
		CustomCadenceDays: customCadenceDays,
		UpdatedAt:         time.Now(),
	}
	if err := st.SavePreference(ov); err != nil {
		return rs, errors.Wrap(err, "persist review feedback override")
	}

	return rs, nil
}
