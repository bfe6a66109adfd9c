package service

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"currencyalert/internal/provider"
)

var usdEUR = provider.CurrencyPair{Base: "USD", Quote: "EUR"}

func comparisonRates(t *testing.T, current, previous float64) *provider.Rates {
	t.Helper()
	cmp, err := provider.NewComparison(current, previous)
	require.NoError(t, err)
	return &provider.Rates{
		Sample:     provider.RateSample{Base: "USD", Quote: "EUR", Rate: current},
		Previous:   &provider.RateSample{Base: "USD", Quote: "EUR", Rate: previous},
		Comparison: &cmp,
	}
}

func TestComposeMessage(t *testing.T) {
	t.Run("reference scenario keeps the unscaled percentage", func(t *testing.T) {
		msg := ComposeMessage(usdEUR, comparisonRates(t, 0.92, 0.90), false)
		assert.Equal(t, "The conversion rate between USD and EUR is 0.92, up 0.02% from 0.9.", msg)
	})

	t.Run("scaled percentage", func(t *testing.T) {
		msg := ComposeMessage(usdEUR, comparisonRates(t, 0.92, 0.90), true)
		assert.Equal(t, "The conversion rate between USD and EUR is 0.92, up 2.22% from 0.9.", msg)
	})

	t.Run("down move prints the magnitude", func(t *testing.T) {
		msg := ComposeMessage(usdEUR, comparisonRates(t, 0.5, 1), false)
		assert.Equal(t, "The conversion rate between USD and EUR is 0.5, down 0.50% from 1.", msg)
	})

	t.Run("unchanged rate is up", func(t *testing.T) {
		msg := ComposeMessage(usdEUR, comparisonRates(t, 1.1, 1.1), false)
		assert.Equal(t, "The conversion rate between USD and EUR is 1.1, up 0.00% from 1.1.", msg)
	})

	t.Run("single rate", func(t *testing.T) {
		rates := &provider.Rates{Sample: provider.RateSample{Base: "USD", Quote: "EUR", Rate: 0.9187}}
		msg := ComposeMessage(usdEUR, rates, false)
		assert.Equal(t, "The conversion rate between USD and EUR is 0.9187.", msg)
	})
}

func TestDirection(t *testing.T) {
	pairs := [][2]float64{
		{0.92, 0.90}, {0.90, 0.92}, {1, 1}, {18.7543, 18.75}, {150.2, 151.9}, {1e-4, 2e-4},
	}
	for _, p := range pairs {
		cmp, err := provider.NewComparison(p[0], p[1])
		require.NoError(t, err)
		assert.Equal(t, (p[0]-p[1])/p[1], cmp.PercentChange)

		want := "up"
		if cmp.PercentChange < 0 {
			want = "down"
		}
		assert.Equal(t, want, Direction(cmp.PercentChange))
	}
	assert.Equal(t, "up", Direction(0))
	assert.Equal(t, "down", Direction(-math.SmallestNonzeroFloat64))
}

func TestComposeSubject(t *testing.T) {
	assert.Equal(t, "Currency Alert: USD to EUR", ComposeSubject(usdEUR))
}

func TestIsValidCurrencyCode(t *testing.T) {
	tests := []struct {
		code  string
		valid bool
	}{
		{"USD", true},
		{"usd", true},
		{"US", false},   // too short
		{"USDA", false}, // too long
		{"US1", false},  // contains number
		{"US$", false},  // contains special char
		{"", false},     // empty
	}

	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			if got := IsValidCurrencyCode(tc.code); got != tc.valid {
				t.Errorf("IsValidCurrencyCode(%q) = %v, want %v", tc.code, got, tc.valid)
			}
		})
	}
}
