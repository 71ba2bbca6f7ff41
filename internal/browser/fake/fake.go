// Package fake provides an in-memory browser.Page implementation for tests,
// standing in for a real CDP/bridge driver the way testify/mock stands in
// for the teacher's cursor.Client and ghclient.Client in their test suites.
package fake

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rfermoselle/auchan-cart-copilot/internal/browser"
)

// Node is a single fake DOM node, addressable by CSS-like selector matching
// implemented as exact/prefix string comparisons — enough to exercise the
// resolver, interactor, and tool logic without a real layout engine.
type Node struct {
	Selectors  []string // every selector string this node should match
	TextValue  string
	Attrs      map[string]string
	Visible    bool
	Box        browser.Rect
	Clicked    int
	Dispatched []string
}

// Page is the fake browser.Page.
type Page struct {
	mu    sync.Mutex
	url   string
	nodes []*Node
	shots int
}

// NewPage builds a fake Page starting at url with the given nodes.
func NewPage(url string, nodes ...*Node) *Page {
	return &Page{url: url, nodes: nodes}
}

// AddNode appends a node, useful for simulating DOM mutations mid-test (e.g.
// a modal appearing after a click).
func (p *Page) AddNode(n *Node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nodes = append(p.nodes, n)
}

func (p *Page) Goto(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	return nil
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

func (p *Page) Query(_ context.Context, selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []browser.Element
	for _, n := range p.nodes {
		if matches(n, selector) {
			out = append(out, &element{node: n})
		}
	}
	return out, nil
}

func (p *Page) WaitForVisible(ctx context.Context, selector string, timeout time.Duration) (browser.Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		els, err := p.Query(ctx, selector)
		if err != nil {
			return nil, err
		}
		var visible []browser.Element
		for _, el := range els {
			ok, _ := el.IsVisible(ctx)
			if ok {
				visible = append(visible, el)
			}
		}
		if len(visible) == 1 {
			return visible[0], nil
		}
		if timeout == 0 || time.Now().After(deadline) {
			return nil, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (p *Page) Screenshot(_ context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shots++
	return []byte("fake-screenshot"), nil
}

// ScreenshotCount reports how many screenshots have been taken.
func (p *Page) ScreenshotCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shots
}

func matches(n *Node, selector string) bool {
	for _, part := range strings.Split(selector, ",") {
		part = strings.TrimSpace(part)
		for _, s := range n.Selectors {
			if s == part {
				return true
			}
		}
	}
	return false
}

type element struct{ node *Node }

func (e *element) Text(context.Context) (string, error) { return e.node.TextValue, nil }

func (e *element) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.node.Attrs[name]
	return v, ok, nil
}

func (e *element) IsVisible(context.Context) (bool, error) { return e.node.Visible, nil }

func (e *element) BoundingBox(context.Context) (browser.Rect, error) { return e.node.Box, nil }

func (e *element) Click(context.Context) error {
	e.node.Clicked++
	return nil
}

func (e *element) Dispatch(_ context.Context, event string, _, _ float64) error {
	e.node.Dispatched = append(e.node.Dispatched, event)
	return nil
}

func (e *element) ScrollIntoView(context.Context) error { return nil }

// FindText is a test helper returning the first node whose TextValue
// contains needle, case-insensitively.
func FindText(nodes []*Node, needle string) *Node {
	needle = strings.ToLower(needle)
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.TextValue), needle) {
			return n
		}
	}
	return nil
}
