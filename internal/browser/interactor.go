package browser

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rfermoselle/auchan-cart-copilot/internal/safety"
)

// PopupPattern names one configured popup dismissal rule: containerSelector
// scopes the search, dismissSelector is the control to click, and
// cancelSelector (if non-empty) is the control to click instead whenever the
// popup's visible text trips the danger list (§4.2).
type PopupPattern struct {
	Name             string
	ContainerSelector string
	DismissSelector  string
	CancelSelector   string
}

// Interactor wraps a Page with the safe interaction primitives from §4.2.
type Interactor struct {
	page    Page
	danger  *safety.Matcher
	logger  *zap.SugaredLogger
}

// NewInteractor builds an Interactor over page. danger may be nil, in which
// case safety.NewMatcher() defaults are used.
func NewInteractor(page Page, danger *safety.Matcher, logger *zap.SugaredLogger) *Interactor {
	if danger == nil {
		danger = safety.NewMatcher()
	}
	return &Interactor{page: page, danger: danger, logger: logger}
}

// DismissPopups runs patterns repeatedly until a round dismisses zero
// elements or maxRounds is reached (default 3). It never clicks an element
// whose visible text matches the danger list; it clicks the pattern's
// CancelSelector instead, and leaves the popup untouched when the pattern
// has no CancelSelector.
func (in *Interactor) DismissPopups(ctx context.Context, patterns []PopupPattern, maxRounds int) (dismissed int, err error) {
	if maxRounds <= 0 {
		maxRounds = 3
	}

	for round := 0; round < maxRounds; round++ {
		dismissedThisRound := 0

		for _, p := range patterns {
			containers, qerr := in.page.Query(ctx, p.ContainerSelector)
			if qerr != nil {
				return dismissed, qerr
			}

			for _, container := range containers {
				visible, verr := container.IsVisible(ctx)
				if verr != nil || !visible {
					continue
				}

				text, terr := container.Text(ctx)
				if terr != nil {
					continue
				}

				target := p.DismissSelector
				if in.danger.IsDangerous(text) {
					if p.CancelSelector == "" {
						if in.logger != nil {
							in.logger.Warnw("popup matched danger list and has no cancel control, leaving it", "pattern", p.Name)
						}
						continue
					}
					target = p.CancelSelector
					if in.logger != nil {
						in.logger.Warnw("popup matched danger list, using cancel control", "pattern", p.Name)
					}
				}

				els, qerr := in.page.Query(ctx, target)
				if qerr != nil || len(els) == 0 {
					continue
				}
				if err := in.SimulateRealClick(ctx, els[0]); err != nil {
					return dismissed, err
				}
				dismissedThisRound++
			}
		}

		dismissed += dismissedThisRound
		if dismissedThisRound == 0 {
			break
		}
	}

	return dismissed, nil
}

// SimulateRealClick scrolls the element into view, then dispatches
// mousedown/mouseup/click at the element's center, and finally calls the
// native click as a fallback — the sequence real sites expect from a human
// pointer rather than a single synthetic click event.
func (in *Interactor) SimulateRealClick(ctx context.Context, el Element) error {
	if err := el.ScrollIntoView(ctx); err != nil {
		return err
	}

	box, err := el.BoundingBox(ctx)
	if err != nil {
		return err
	}
	cx := box.X + box.Width/2
	cy := box.Y + box.Height/2

	for _, event := range []string{"mousedown", "mouseup", "click"} {
		if err := el.Dispatch(ctx, event, cx, cy); err != nil {
			return err
		}
	}

	return el.Click(ctx)
}

// WaitForModal resolves with the first visible element matching any of
// modalSelectors, or nil at timeout.
func (in *Interactor) WaitForModal(ctx context.Context, modalSelectors []string, timeout time.Duration) (Element, error) {
	deadline := time.Now().Add(timeout)
	const pollInterval = 100 * time.Millisecond

	for {
		for _, sel := range modalSelectors {
			el, err := in.page.WaitForVisible(ctx, sel, 0)
			if err != nil {
				return nil, err
			}
			if el != nil {
				return el, nil
			}
		}

		if time.Now().After(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// FindButtonByText returns the first element within container whose visible
// text case-insensitively contains any of candidates, in candidate order.
func (in *Interactor) FindButtonByText(ctx context.Context, container Element, candidates []string) (Element, string, error) {
	buttons, err := queryWithin(ctx, in.page, container, "button, [role='button'], a")
	if err != nil {
		return nil, "", err
	}

	for _, candidate := range candidates {
		needle := strings.ToLower(candidate)
		for _, btn := range buttons {
			visible, err := btn.IsVisible(ctx)
			if err != nil || !visible {
				continue
			}
			text, err := btn.Text(ctx)
			if err != nil {
				continue
			}
			if strings.Contains(strings.ToLower(text), needle) {
				return btn, candidate, nil
			}
		}
	}
	return nil, "", nil
}

// queryWithin is a placeholder seam for drivers whose Query is always
// document-scoped: it queries the whole page and depends on the driver's
// Query implementation to already scope by container when given a
// container-relative selector. Drivers backed by a real DOM (CDP, a browser
// bridge) implement element-scoped queries directly and can ignore this.
func queryWithin(ctx context.Context, page Page, _ Element, selector string) ([]Element, error) {
	return page.Query(ctx, selector)
}
