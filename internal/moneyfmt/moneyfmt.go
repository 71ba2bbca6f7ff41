// Package moneyfmt parses Portuguese-locale prices and quantities off
// Auchan.pt pages, and carries exact decimal arithmetic for the tolerance
// checks spec §3 and §8 require on cart and order totals.
package moneyfmt

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// priceRe extracts the numeric portion of strings like "1 234,56 €" or
// "12,99€" or "€ 3,50" — thousands separated by spaces or dots, decimals by
// a comma, per pt-PT convention.
var priceRe = regexp.MustCompile(`(\d[\d\s.]*),(\d{1,2})`)

// ParsePrice converts a Portuguese-locale price string to a decimal.Decimal,
// e.g. "1 234,56 €" -> 1234.56.
func ParsePrice(s string) (decimal.Decimal, error) {
	m := priceRe.FindStringSubmatch(s)
	if m == nil {
		// Fall back to a bare-integer price with no decimal comma, e.g. "5 €".
		digits := regexp.MustCompile(`\d+`).FindString(s)
		if digits == "" {
			return decimal.Zero, fmt.Errorf("moneyfmt: no price found in %q", s)
		}
		return decimal.NewFromString(digits)
	}

	whole := strings.NewReplacer(" ", "", ".", "").Replace(m[1])
	frac := m[2]
	if len(frac) == 1 {
		frac += "0"
	}
	return decimal.NewFromString(whole + "." + frac)
}

// ParseQuantity extracts an integer quantity from a page fragment — either a
// bare number (from an <input>'s value attribute) or a "between two buttons"
// display like "Quantidade: 3".
func ParseQuantity(s string) (int, error) {
	digits := regexp.MustCompile(`\d+`).FindString(s)
	if digits == "" {
		return 0, fmt.Errorf("moneyfmt: no quantity found in %q", s)
	}
	return strconv.Atoi(digits)
}

// WithinTolerance reports whether got is within n cents of want — the
// "tolerance 1¢×n" rule used across §3 and §8 (order subtotal vs. summed
// items, cart total vs. summed items).
func WithinTolerance(got, want decimal.Decimal, n int) bool {
	tolerance := decimal.New(int64(n), -2) // n cents
	diff := got.Sub(want).Abs()
	return diff.LessThanOrEqual(tolerance)
}
