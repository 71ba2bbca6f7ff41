// Package browser defines the driver contract automation runs against and
// the safe interaction primitives built on top of it.
//
// No Go browser-automation library (chromedp, playwright-go, rod, ...) turned
// up anywhere in the example corpus this project was grounded on; the closest
// analogue — a headless-browser devtools bridge — drives its target over a
// raw JSON/HTTP connection it owns itself (internal/bridge in the gasoline
// devtools server), not through an imported driver package. Page is this
// project's equivalent seam: a narrow interface any concrete driver (a CDP
// client, a remote-control bridge, or a test fake) can satisfy, injected the
// same way the teacher plugin injects its *pluginapi.Client host surface.
package browser

import (
	"context"
	"time"
)

// Rect is a DOM element's bounding box in viewport coordinates.
type Rect struct {
	X, Y, Width, Height float64
}

// Element is a single resolved DOM node.
type Element interface {
	// Text returns the element's visible (rendered) text content.
	Text(ctx context.Context) (string, error)
	// Attribute returns a named attribute's value and whether it was present.
	Attribute(ctx context.Context, name string) (string, bool, error)
	// IsVisible reports whether the element currently renders on screen.
	IsVisible(ctx context.Context) (bool, error)
	// BoundingBox returns the element's current viewport rectangle.
	BoundingBox(ctx context.Context) (Rect, error)
	// Click performs the simplest possible click: a single synthetic click
	// event at the element's center. Higher-level code should generally
	// prefer Interactor.SimulateRealClick, which adds the scroll+multi-event
	// sequence real UIs expect.
	Click(ctx context.Context) error
	// Dispatch fires a named DOM event ("mousedown", "mouseup", "click", ...)
	// at the given viewport coordinates.
	Dispatch(ctx context.Context, event string, x, y float64) error
	// ScrollIntoView scrolls the element into the visible viewport.
	ScrollIntoView(ctx context.Context) error
}

// Page is the minimal navigable-document surface every Tool is built on.
type Page interface {
	// Goto navigates to url, waiting for the load event.
	Goto(ctx context.Context, url string) error
	// URL returns the page's current address, used to detect auth redirects
	// and post-reorder redirects to the cart page.
	URL() string
	// Query returns every element matching selector, in document order. An
	// empty, non-nil slice means "selector is syntactically valid but
	// matched nothing" — callers must not confuse this with a query error.
	Query(ctx context.Context, selector string) ([]Element, error)
	// WaitForVisible polls selector until exactly one match is visible, or
	// timeout elapses. Returns (nil, nil) on timeout — never returns a
	// partial/ambiguous result, per §8's resolver invariant.
	WaitForVisible(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	// Screenshot captures the current viewport for the review pack.
	Screenshot(ctx context.Context) ([]byte, error)
}
