package tools

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rfermoselle/auchan-cart-copilot/internal/browser"
	"github.com/rfermoselle/auchan-cart-copilot/internal/model"
	"github.com/rfermoselle/auchan-cart-copilot/internal/safety"
)

// MergeMode selects how Reorder combines an order's items into the current
// cart.
type MergeMode string

const (
	MergeReplace MergeMode = "replace"
	MergeMerge   MergeMode = "merge"
)

// ReorderInput parameterizes the hardest Tool Layer operation (§4.3).
type ReorderInput struct {
	OrderID   string
	DetailURL string
	MergeMode MergeMode
}

// ReorderOutput reports the before/after cart counters and which
// verification method confirmed the change.
type ReorderOutput struct {
	CountBefore    int
	TotalBefore    decimal.Decimal
	CountAfter     int
	TotalAfter     decimal.Decimal
	RedirectedCart bool
	VerifiedBy     string
}

// CartCounter reads the lightweight cart counters (header badge / running
// total) without doing a full scanCart extraction — reorder only needs
// these two numbers to verify the mutation, per §4.3.
type CartCounter interface {
	CountAndTotal(ctx context.Context, tc *ToolContext) (count int, total decimal.Decimal, err error)
}

// modalClassification is the outcome of classifying a reorder modal's
// visible text, per §4.3.
type modalClassification int

const (
	modalCartRemovalWarning modalClassification = iota
	modalMergeConfirm
	modalReplaceConfirm
	modalUnrecognized
)

var mergeButtonTexts = []string{"juntar", "adicionar"}
var confirmButtonTexts = []string{"encomendar de novo", "confirmar"}

// classifyModal implements §4.3's modal classification rules:
//   - text containing "remover produtos do carrinho" -> cart-removal warning
//   - mergeMode=merge and a non-danger {juntar, adicionar} button -> merge
//   - otherwise a non-danger {encomendar de novo, confirmar} button -> replace
//
// "confirmar" is deliberately still eligible here (per §9's open question)
// because it is excluded from the danger list itself, but only reachable
// once the cart-removal-warning branch has already been ruled out above.
func classifyModal(modalText string, mergeMode MergeMode) modalClassification {
	if safety.IsCartRemovalWarning(modalText) {
		return modalCartRemovalWarning
	}
	if mergeMode == MergeMerge {
		return modalMergeConfirm
	}
	return modalReplaceConfirm
}

// Reorder drives the reorder state machine from §4.3:
//
//	navigate -> locate reorder button -> click -> wait-for-modal ->
//	classify modal -> act -> wait-cart-update -> verify -> done|fail
func Reorder(ctx context.Context, tc *ToolContext, in ReorderInput, counter CartCounter, modalSelectors []string) Result[ReorderOutput] {
	start := time.Now()
	var shots [][]byte

	if err := tc.Page.Goto(ctx, in.DetailURL); err != nil {
		return fail[ReorderOutput](newError(model.ErrTimeout, true, err), shots, start)
	}

	countBefore, totalBefore, err := counter.CountAndTotal(ctx, tc)
	if err != nil {
		return fail[ReorderOutput](newError(model.ErrSelector, true, err), shots, start)
	}

	reorderSel, ok := tc.Resolver.ResolveOnly("order-detail", "reorderButton")
	if !ok {
		return fail[ReorderOutput](newError(model.ErrSelector, true, nil), shots, start)
	}
	button, err := tc.Page.WaitForVisible(ctx, reorderSel, tc.Config.ElementTimeout)
	if err != nil {
		return fail[ReorderOutput](newError(model.ErrSelector, true, err), shots, start)
	}
	if button == nil {
		return fail[ReorderOutput](newError(model.ErrSelector, true, nil), shots, start)
	}

	modal, err := clickAndAwaitModal(ctx, tc, button, modalSelectors)
	if err != nil {
		return fail[ReorderOutput](newError(model.ErrTimeout, true, err), shots, start)
	}
	if modal == nil {
		// Retry the click exactly once. No popup patterns reach Reorder, so
		// this DismissPopups call dismisses nothing before the retry.
		if _, derr := tc.Interactor.DismissPopups(ctx, nil, tc.Config.PopupDismissRounds); derr != nil {
			return fail[ReorderOutput](newError(model.ErrTimeout, true, derr), shots, start)
		}
		modal, err = clickAndAwaitModal(ctx, tc, button, modalSelectors)
		if err != nil {
			return fail[ReorderOutput](newError(model.ErrTimeout, true, err), shots, start)
		}
		if modal == nil {
			return fail[ReorderOutput](newError(model.ErrValidation, true, nil), shots, start)
		}
	}

	modalText, err := modal.Text(ctx)
	if err != nil {
		return fail[ReorderOutput](newError(model.ErrSelector, true, err), shots, start)
	}

	class := classifyModal(modalText, in.MergeMode)
	if class == modalCartRemovalWarning {
		if err := clickCancelEquivalent(ctx, tc, modal); err != nil {
			return fail[ReorderOutput](newError(model.ErrSelector, true, err), shots, start)
		}
		tc.screenshot("reorder-danger-modal")
		return fail[ReorderOutput](
			newError(model.ErrValidation, false, nil),
			shots, start,
		)
	}

	var candidateTexts []string
	switch class {
	case modalMergeConfirm:
		candidateTexts = mergeButtonTexts
	default:
		candidateTexts = confirmButtonTexts
	}

	actionEl, matchedText, err := tc.Interactor.FindButtonByText(ctx, modal, candidateTexts)
	if err != nil {
		return fail[ReorderOutput](newError(model.ErrSelector, true, err), shots, start)
	}
	if actionEl == nil && class == modalMergeConfirm {
		// No merge control on this modal: fall back to the confirm control.
		actionEl, matchedText, err = tc.Interactor.FindButtonByText(ctx, modal, confirmButtonTexts)
		if err != nil {
			return fail[ReorderOutput](newError(model.ErrSelector, true, err), shots, start)
		}
	}
	if actionEl == nil {
		return fail[ReorderOutput](newError(model.ErrValidation, true, nil), shots, start)
	}

	// The chosen text must never itself be on the danger list, even if it
	// matched one of the allowed candidate phrases above (defense in depth:
	// a mislabeled button on the live site must not be clicked regardless of
	// which candidate list it happened to match).
	danger := safety.NewMatcher()
	if danger.IsDangerous(matchedText) {
		return fail[ReorderOutput](newError(model.ErrValidation, false, nil), shots, start)
	}

	if err := tc.Interactor.SimulateRealClick(ctx, actionEl); err != nil {
		return fail[ReorderOutput](newError(model.ErrSelector, true, err), shots, start)
	}

	select {
	case <-ctx.Done():
		return fail[ReorderOutput](newError(model.ErrTimeout, true, ctx.Err()), shots, start)
	case <-time.After(tc.Config.CartUpdateWindow):
	}

	countAfter, totalAfter, err := counter.CountAndTotal(ctx, tc)
	if err != nil {
		return fail[ReorderOutput](newError(model.ErrSelector, true, err), shots, start)
	}
	redirected := strings.Contains(tc.Page.URL(), "/carrinho")

	verifiedBy := verify(countBefore, countAfter, totalBefore, totalAfter, redirected, in.MergeMode)
	if verifiedBy == "" {
		return fail[ReorderOutput](newError(model.ErrValidation, true, nil), shots, start)
	}

	return ok(ReorderOutput{
		CountBefore:    countBefore,
		TotalBefore:    totalBefore,
		CountAfter:     countAfter,
		TotalAfter:     totalAfter,
		RedirectedCart: redirected,
		VerifiedBy:     verifiedBy,
	}, shots, start)
}

// verify implements §4.3/§8's change-verification precedence: count delta >
// 0, else total delta > 0, else redirect to cart page, else (last resort) a
// non-zero total on a previously-zero cart when mergeMode=replace.
func verify(countBefore, countAfter int, totalBefore, totalAfter decimal.Decimal, redirected bool, mode MergeMode) string {
	if countAfter > countBefore {
		return "count"
	}
	if totalAfter.GreaterThan(totalBefore) {
		return "total"
	}
	if redirected {
		return "redirect"
	}
	if mode == MergeReplace && totalBefore.IsZero() && !totalAfter.IsZero() {
		return "zero-to-nonzero"
	}
	return ""
}

func clickAndAwaitModal(ctx context.Context, tc *ToolContext, button browser.Element, modalSelectors []string) (browser.Element, error) {
	if err := tc.Interactor.SimulateRealClick(ctx, button); err != nil {
		return nil, err
	}
	return tc.Interactor.WaitForModal(ctx, modalSelectors, tc.Config.ModalTimeout)
}

// clickCancelEquivalent finds and clicks the cancel-equivalent control
// within a modal whenever danger text is encountered on the reorder action
// path (§7). When the modal has no cancel control it clicks nothing and
// returns nil.
func clickCancelEquivalent(ctx context.Context, tc *ToolContext, modal browser.Element) error {
	cancelEl, _, err := tc.Interactor.FindButtonByText(ctx, modal, []string{"cancelar", "fechar"})
	if err != nil {
		return err
	}
	if cancelEl == nil {
		return nil
	}
	return tc.Interactor.SimulateRealClick(ctx, cancelEl)
}
