package analytics

import (
	"strings"
	"unicode"
)

// Normalize implements §4.4's name normalization rule: lowercase, NFD-fold
// (strip combining marks), collapse whitespace, trim. Product identity is
// productId when present, else this normalized name.
func Normalize(name string) string {
	folded := stripDiacritics(strings.ToLower(name))
	fields := strings.Fields(folded)
	return strings.Join(fields, " ")
}

// stripDiacritics removes combining marks from common Portuguese
// characters — the same small accent table internal/safety uses, kept
// independent here since the two packages model different concerns (danger
// text matching vs. product-identity normalization) even though the
// technique is identical.
func stripDiacritics(s string) string {
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
	return string(filtered)
}
