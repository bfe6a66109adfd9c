// Package provider implements external rate providers for fetching currency exchange rates.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ErrProvider matches any non-success HTTP response from a rate provider.
var ErrProvider = errors.New("provider error")

// ErrData indicates that a successful provider response did not carry the expected rates.
var ErrData = errors.New("unexpected provider data")

// ErrZeroRate indicates a zero previous rate, for which no relative change exists.
var ErrZeroRate = errors.New("previous rate is zero")

// StatusError is returned when a provider answers with a non-200 status.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Is reports ErrProvider as the error class.
func (e *StatusError) Is(target error) bool {
	return target == ErrProvider
}

// RatesProvider defines an interface for fetching exchange rates from external sources.
//
// A zero referenceDate means today. Implementations that have access to
// history return a comparison against the day before referenceDate.
type RatesProvider interface {
	Fetch(ctx context.Context, pair CurrencyPair, referenceDate time.Time) (*Rates, error)
}

// CurrencyPair is a source/target currency pair. Codes are passed to the
// provider as given.
type CurrencyPair struct {
	Base  string
	Quote string
}

func (p CurrencyPair) String() string {
	return p.Base + "/" + p.Quote
}

// RateSample is a single observed rate.
type RateSample struct {
	Base  string
	Quote string
	Rate  float64
	AsOf  time.Time
}

// RateComparison relates a current rate to the previous one.
type RateComparison struct {
	Current       float64
	Previous      float64
	PercentChange float64 // relative change, not multiplied by 100
}

// NewComparison computes (current - previous) / previous.
func NewComparison(current, previous float64) (RateComparison, error) {
	if previous == 0 {
		return RateComparison{}, fmt.Errorf("%w: %w", ErrData, ErrZeroRate)
	}
	return RateComparison{
		Current:       current,
		Previous:      previous,
		PercentChange: (current - previous) / previous,
	}, nil
}

// Rates is the result of one fetch. Previous and Comparison are nil for
// providers that only expose the latest table.
type Rates struct {
	Sample     RateSample
	Previous   *RateSample
	Comparison *RateComparison
}

// newRates builds a Rates value, attaching a comparison when previous is set.
func newRates(current RateSample, previous *RateSample) (*Rates, error) {
	r := &Rates{Sample: current, Previous: previous}
	if previous == nil {
		return r, nil
	}
	cmp, err := NewComparison(current.Rate, previous.Rate)
	if err != nil {
		return nil, err
	}
	r.Comparison = &cmp
	return r, nil
}

// referenceDay truncates t to its UTC calendar day, defaulting to today.
func referenceDay(t time.Time) time.Time {
	if t.IsZero() {
		t = time.Now()
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// getJSON performs a GET and decodes a 200 response body into out.
func getJSON(ctx context.Context, client *http.Client, name, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return fmt.Errorf("%s API request creation failed: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s API request failed: %w", name, err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &StatusError{Provider: name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode %s API response: %w", ErrData, name, err)
	}
	return nil
}
