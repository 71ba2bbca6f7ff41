// Package selector implements the resilient selector registry and resolver
// from spec §4.1: a versioned map from (pageId, key) to a DOM locator chain,
// insulating every Tool from markup churn on the live site.
package selector

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Scoring guidance from §4.1; authoring tools should prefer these bands, but
// nothing in the resolver enforces them — they're advisory metadata carried
// on each entry.
const (
	ScoreTestID    = 95
	ScoreAriaLabel = 85
	ScoreID        = 75
	ScoreSemantic  = 60
	ScoreText      = 50
)

// SelectorEntry is one logical key's candidate chain within a SelectorDef.
type SelectorEntry struct {
	Description    string   `json:"description"`
	ElementType    string   `json:"elementType"`
	Primary        string   `json:"primary"`
	Fallbacks      []string `json:"fallbacks"`
	Strategy       string   `json:"strategy"`
	StabilityScore int      `json:"stabilityScore"`
}

// candidates returns [primary, ...fallbacks] in resolution order.
func (e SelectorEntry) candidates() []string {
	out := make([]string, 0, 1+len(e.Fallbacks))
	if e.Primary != "" {
		out = append(out, e.Primary)
	}
	out = append(out, e.Fallbacks...)
	return out
}

// SelectorDef is one authored, versioned page definition. Per §3: exactly one
// active version per pageId, every key has at least one non-empty selector,
// and a SelectorDef is never mutated in place — authoring a change produces a
// new version.
type SelectorDef struct {
	PageID     string                   `json:"pageId"`
	Version    int                      `json:"version"`
	URLPattern string                   `json:"urlPattern"`
	CreatedAt  time.Time                `json:"createdAt"`
	CreatedBy  string                   `json:"createdBy"`
	Selectors  map[string]SelectorEntry `json:"selectors"`
}

// Validate enforces §3's SelectorDef invariants.
func (d *SelectorDef) Validate() error {
	if d.PageID == "" {
		return fmt.Errorf("selector def: pageId is required")
	}
	if len(d.Selectors) == 0 {
		return fmt.Errorf("selector def %s: must define at least one key", d.PageID)
	}
	for key, entry := range d.Selectors {
		if len(entry.candidates()) == 0 {
			return fmt.Errorf("selector def %s: key %q has no non-empty selector", d.PageID, key)
		}
	}
	return nil
}

// Registry holds, per pageId, the single active SelectorDef version.
// Authoring a new version replaces the active one; history is retained by
// the caller (the persisted store keeps every version file), not by Registry
// itself.
type Registry struct {
	mu    sync.RWMutex
	pages map[string]*SelectorDef
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pages: make(map[string]*SelectorDef)}
}

// Load installs def as the active version for its pageId, replacing any
// earlier version. It is an error to load an invalid def or to load an older
// version over a newer one already active.
func (r *Registry) Load(def *SelectorDef) error {
	if err := def.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.pages[def.PageID]; ok && existing.Version > def.Version {
		return fmt.Errorf("selector def %s: refusing to load version %d over active version %d",
			def.PageID, def.Version, existing.Version)
	}
	r.pages[def.PageID] = def
	return nil
}

// HasPage reports whether pageId has an active selector definition.
func (r *Registry) HasPage(pageID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pages[pageID]
	return ok
}

// PageCount returns the number of pageIds with an active selector
// definition loaded, used by the health endpoint to report registry status.
func (r *Registry) PageCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.pages)
}

// GetKeys returns every key defined for pageId, sorted for determinism.
func (r *Registry) GetKeys(pageID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.pages[pageID]
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(def.Selectors))
	for k := range def.Selectors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve returns the primary selector string for (pageId, key) without
// touching a live page — used by callers that only need the locator text
// (e.g. to build a CSS query elsewhere), not a resolved element.
func (r *Registry) Resolve(pageID, key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.pages[pageID]
	if !ok {
		return "", false
	}
	entry, ok := def.Selectors[key]
	if !ok || entry.Primary == "" {
		return "", false
	}
	return entry.Primary, true
}

// entry returns the full candidate entry for (pageId, key).
func (r *Registry) entry(pageID, key string) (SelectorEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.pages[pageID]
	if !ok {
		return SelectorEntry{}, false
	}
	entry, ok := def.Selectors[key]
	return entry, ok
}
