// Package safety holds the one absolute invariant of this project: automation
// must never click a control that could submit, pay for, or clear a cart
// without explicit human review.
package safety

import (
	"strings"
	"unicode"
)

// DangerList is the normative set from spec §7. Every entry is matched
// case-insensitively and accent-insensitively against visible control text.
// Equivalents configured by the safety policy are passed to NewMatcher as
// extra phrases.
var DangerList = []string{
	"remover produtos",
	"confirmar remoção",
	"eliminar carrinho",
}

// CartRemovalWarningMarker is the modal-classification marker from §4.3: a
// modal whose text contains this phrase is a cart-removal warning, never a
// reorder confirmation, regardless of what other text it contains.
const CartRemovalWarningMarker = "remover produtos do carrinho"

// Matcher tests visible control text against the danger list.
type Matcher struct {
	terms []string
}

// NewMatcher builds a Matcher from DangerList plus any site- or
// deployment-specific extra phrases.
func NewMatcher(extra ...string) *Matcher {
	terms := make([]string, 0, len(DangerList)+len(extra))
	for _, t := range DangerList {
		terms = append(terms, fold(t))
	}
	for _, t := range extra {
		terms = append(terms, fold(t))
	}
	return &Matcher{terms: terms}
}

// IsDangerous reports whether text visibly matches any danger-list entry.
func (m *Matcher) IsDangerous(text string) bool {
	folded := fold(text)
	for _, t := range m.terms {
		if strings.Contains(folded, t) {
			return true
		}
	}
	return false
}

// IsCartRemovalWarning reports whether modal text identifies the
// cart-removal warning modal classified in §4.3.
func IsCartRemovalWarning(modalText string) bool {
	return strings.Contains(fold(modalText), fold(CartRemovalWarningMarker))
}

// fold lowercases and strips diacritics so "remoção" and "remocao" compare
// equal — the same normalization the analytics name-identity rules use.
func fold(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range stripCombining(s) {
		b.WriteRune(r)
	}
	return b.String()
}

// stripCombining removes NFD combining marks without requiring golang.org/x/text's
// full normalization tables — a small accent map covers the Portuguese text
// this project ever parses.
func stripCombining(s string) []rune {
	replacer := strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a", "ä", "a",
		"é", "e", "è", "e", "ê", "e", "ë", "e",
		"í", "i", "ì", "i", "î", "i", "ï", "i",
		"ó", "o", "ò", "o", "ô", "o", "õ", "o", "ö", "o",
		"ú", "u", "ù", "u", "û", "u", "ü", "u",
		"ç", "c", "ñ", "n",
	)
	out := []rune(replacer.Replace(s))
	filtered := out[:0]
	for _, r := range out {
		if !unicode.Is(unicode.Mn, r) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
