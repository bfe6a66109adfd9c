package service

import (
	"fmt"
	"math"
	"strconv"

	"currencyalert/internal/provider"
)

// ComposeSubject returns the email subject for an alert on pair.
func ComposeSubject(pair provider.CurrencyPair) string {
	return fmt.Sprintf("Currency Alert: %s to %s", pair.Base, pair.Quote)
}

// ComposeMessage renders the alert text for the fetched rates.
//
// The relative change is printed as-is with a "%" suffix unless scalePercent
// is set, so a move from 0.9 to 0.92 reads "up 0.02%".
func ComposeMessage(pair provider.CurrencyPair, rates *provider.Rates, scalePercent bool) string {
	if rates.Comparison == nil {
		return fmt.Sprintf("The conversion rate between %s and %s is %s.",
			pair.Base, pair.Quote, formatRate(rates.Sample.Rate))
	}

	cmp := rates.Comparison
	pct := math.Abs(cmp.PercentChange)
	if scalePercent {
		pct *= 100
	}
	return fmt.Sprintf("The conversion rate between %s and %s is %s, %s %.2f%% from %s.",
		pair.Base, pair.Quote, formatRate(cmp.Current), Direction(cmp.PercentChange), pct, formatRate(cmp.Previous))
}

// Direction returns "up" for a non-negative change and "down" otherwise.
func Direction(change float64) string {
	if change < 0 {
		return "down"
	}
	return "up"
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
