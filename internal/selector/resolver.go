package selector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rfermoselle/auchan-cart-copilot/internal/browser"
)

// ErrSelectorPage is returned when a resolve is attempted against a pageId
// with no loaded SelectorDef. It maps to the SELECTOR_ERROR code at the tool
// boundary: non-recoverable for the operation, recoverable at run level.
type ErrSelectorPage struct{ PageID string }

func (e *ErrSelectorPage) Error() string {
	return fmt.Sprintf("selector: no definition loaded for page %q", e.PageID)
}

// ResolveResult is the per-call, transient outcome of a successful resolve.
type ResolveResult struct {
	Element       browser.Element
	Selector      string
	UsedFallback  bool
	FallbackIndex int
}

// Warning is emitted whenever a fallback wins, per §4.1's "emit a structured
// warning" requirement.
type Warning struct {
	PageID        string
	Key           string
	FallbackIndex int
	Selector      string
}

// Resolver resolves logical (pageId, key) pairs against a live Page.
type Resolver struct {
	registry *Registry
	logger   *zap.SugaredLogger
	onFallback func(Warning)
}

// NewResolver builds a Resolver over registry. onFallback, if non-nil, is
// called synchronously whenever a fallback candidate wins — callers can use
// it to decay the registry entry's stability score (advisory; §4.1 is
// explicit this is never done automatically) or to surface the warning on
// the review pack.
func NewResolver(registry *Registry, logger *zap.SugaredLogger, onFallback func(Warning)) *Resolver {
	return &Resolver{registry: registry, logger: logger, onFallback: onFallback}
}

// TryResolve races "wait until visible and unique" for each candidate in
// [primary, ...fallbacks], in order, against timeout. It accepts the first
// candidate whose match count is exactly 1 within the timeout. If every
// candidate fails, it returns (nil, nil) — never a partial result, satisfying
// the §8 resolver invariant.
func (r *Resolver) TryResolve(ctx context.Context, page browser.Page, pageID, key string, timeout time.Duration) (*ResolveResult, error) {
	entry, ok := r.registry.entry(pageID, key)
	if !ok {
		if !r.registry.HasPage(pageID) {
			return nil, &ErrSelectorPage{PageID: pageID}
		}
		return nil, fmt.Errorf("selector: page %q has no key %q", pageID, key)
	}

	candidates := entry.candidates()
	if len(candidates) == 0 {
		return nil, fmt.Errorf("selector: page %q key %q has no candidates", pageID, key)
	}

	deadline := time.Now().Add(timeout)

	for i, sel := range candidates {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			remaining = 0
		}

		el, err := page.WaitForVisible(ctx, sel, remaining)
		if err != nil {
			return nil, err
		}
		if el == nil {
			continue
		}

		result := &ResolveResult{
			Element:       el,
			Selector:      sel,
			UsedFallback:  i > 0,
			FallbackIndex: i - 1,
		}
		if i == 0 {
			result.FallbackIndex = 0
		}

		if result.UsedFallback {
			warning := Warning{PageID: pageID, Key: key, FallbackIndex: result.FallbackIndex, Selector: sel}
			if r.logger != nil {
				r.logger.Warnw("selector resolved via fallback", "pageId", pageID, "key", key, "fallbackIndex", result.FallbackIndex, "selector", sel)
			}
			if r.onFallback != nil {
				r.onFallback(warning)
			}
		}

		return result, nil
	}

	return nil, nil
}

// ResolveOnly returns the primary selector string for (pageId, key) without
// touching a live page, for callers that only need the locator text (e.g.
// to build a container-relative query) rather than a resolved element.
func (r *Resolver) ResolveOnly(pageID, key string) (string, bool) {
	return r.registry.Resolve(pageID, key)
}
