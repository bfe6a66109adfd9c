package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var _ RatesProvider = (*FrankfurterProvider)(nil)

// FrankfurterProvider fetches a two-day rate window from the Frankfurter API.
type FrankfurterProvider struct {
	baseURL string
	client  *http.Client
}

// NewFrankfurterProvider creates a new FrankfurterProvider.
func NewFrankfurterProvider(baseURL string, timeoutSec int) *FrankfurterProvider {
	if baseURL == "" {
		baseURL = "https://api.frankfurter.dev/v1"
	}
	return &FrankfurterProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

type frankfurterRangeResponse struct {
	Amount    float64                       `json:"amount"`
	Base      string                        `json:"base"`
	StartDate string                        `json:"start_date"`
	EndDate   string                        `json:"end_date"`
	Rates     map[string]map[string]float64 `json:"rates"`
}

func (p *FrankfurterProvider) rangeURL(pair CurrencyPair, from, to time.Time) string {
	q := url.Values{}
	q.Set("base", pair.Base)
	q.Set("symbols", pair.Quote)
	return fmt.Sprintf("%s/%s..%s?%s", p.baseURL, from.Format(dateLayout), to.Format(dateLayout), q.Encode())
}

// Fetch requests the [day before, referenceDate] window and compares the two
// observed rates. Both days must be present in the response.
func (p *FrankfurterProvider) Fetch(ctx context.Context, pair CurrencyPair, referenceDate time.Time) (*Rates, error) {
	today := referenceDay(referenceDate)
	yesterday := today.AddDate(0, 0, -1)

	var result frankfurterRangeResponse
	if err := getJSON(ctx, p.client, "frankfurter", p.rangeURL(pair, yesterday, today), &result); err != nil {
		return nil, err
	}
	if len(result.Rates) == 0 {
		return nil, fmt.Errorf("%w: no rates in frankfurter response", ErrData)
	}

	todayRate, err := rateOn(result.Rates, today, pair.Quote, false)
	if err != nil {
		return nil, err
	}
	// A zero previous rate is left for NewComparison to report.
	yesterdayRate, err := rateOn(result.Rates, yesterday, pair.Quote, true)
	if err != nil {
		return nil, err
	}

	current := RateSample{Base: pair.Base, Quote: pair.Quote, Rate: todayRate, AsOf: today}
	previous := RateSample{Base: pair.Base, Quote: pair.Quote, Rate: yesterdayRate, AsOf: yesterday}
	return newRates(current, &previous)
}

func rateOn(byDate map[string]map[string]float64, day time.Time, quote string, allowZero bool) (float64, error) {
	key := day.Format(dateLayout)
	rates, ok := byDate[key]
	if !ok || len(rates) == 0 {
		return 0, fmt.Errorf("%w: no rates for %s in frankfurter response", ErrData, key)
	}
	where := "frankfurter response for " + key
	if allowZero {
		return lookupRate(rates, quote, where)
	}
	return lookupPositiveRate(rates, quote, where)
}

// lookupRate returns rates[code], rejecting absent and negative values.
func lookupRate(rates map[string]float64, code, where string) (float64, error) {
	v, ok := rates[code]
	if !ok {
		return 0, fmt.Errorf("%w: no rate for %s in %s", ErrData, code, where)
	}
	if v < 0 {
		return 0, fmt.Errorf("%w: negative rate %v for %s in %s", ErrData, v, code, where)
	}
	return v, nil
}

// lookupPositiveRate is lookupRate that also rejects zero.
func lookupPositiveRate(rates map[string]float64, code, where string) (float64, error) {
	v, err := lookupRate(rates, code, where)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: zero rate for %s in %s", ErrData, code, where)
	}
	return v, nil
}
