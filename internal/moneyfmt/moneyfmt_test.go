package moneyfmt

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	cases := map[string]string{
		"1 234,56 €": "1234.56",
		"12,99€":     "12.99",
		"€ 3,50":     "3.50",
		"2,5 €":      "2.50",
	}
	for in, want := range cases {
		got, err := ParsePrice(in)
		require.NoError(t, err, in)
		require.True(t, got.Equal(decimal.RequireFromString(want)), "in=%q got=%s want=%s", in, got, want)
	}
}

func TestParseQuantity(t *testing.T) {
	got, err := ParseQuantity("Quantidade: 3")
	require.NoError(t, err)
	require.Equal(t, 3, got)
}

func TestWithinTolerance(t *testing.T) {
	got := decimal.RequireFromString("10.02")
	want := decimal.RequireFromString("10.00")
	require.True(t, WithinTolerance(got, want, 2))
	require.False(t, WithinTolerance(got, want, 1))
}
