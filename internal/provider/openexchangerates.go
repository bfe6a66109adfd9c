package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"currencyalert/internal/config"
)

var _ RatesProvider = (*OpenExchangeRatesProvider)(nil)

// OpenExchangeRatesProvider fetches USD-based tables from openexchangerates.org
// and rebases them onto the requested source currency.
type OpenExchangeRatesProvider struct {
	baseURL string
	appID   string
	client  *http.Client
	now     func() time.Time
}

// NewOpenExchangeRatesProvider creates a new OpenExchangeRatesProvider.
func NewOpenExchangeRatesProvider(baseURL, appID string, timeoutSec int) *OpenExchangeRatesProvider {
	if baseURL == "" {
		baseURL = "https://openexchangerates.org/api"
	}
	return &OpenExchangeRatesProvider{
		baseURL: baseURL,
		appID:   appID,
		client:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		now:     time.Now,
	}
}

type oxrResponse struct {
	Error       bool               `json:"error"`
	Status      int                `json:"status"`
	Message     string             `json:"message"`
	Description string             `json:"description"`
	Timestamp   int64              `json:"timestamp"`
	Base        string             `json:"base"`
	Rates       map[string]float64 `json:"rates"`
}

func (p *OpenExchangeRatesProvider) latestURL() string {
	return fmt.Sprintf("%s/latest.json?app_id=%s", p.baseURL, url.QueryEscape(p.appID))
}

func (p *OpenExchangeRatesProvider) historicalURL(day time.Time) string {
	return fmt.Sprintf("%s/historical/%s.json?app_id=%s", p.baseURL, day.Format(dateLayout), url.QueryEscape(p.appID))
}

// GetRate returns the rate of the pair on day, or the latest rate when day is zero.
// A zero quote rate is a data error.
func (p *OpenExchangeRatesProvider) GetRate(ctx context.Context, pair CurrencyPair, day time.Time) (RateSample, error) {
	return p.getRate(ctx, pair, day, false)
}

func (p *OpenExchangeRatesProvider) getRate(ctx context.Context, pair CurrencyPair, day time.Time, allowZero bool) (RateSample, error) {
	if p.appID == "" {
		return RateSample{}, fmt.Errorf("openexchangerates: %w: OPENEXCHANGERATES_APP_ID is not set", config.ErrMissingCredential)
	}

	reqURL := p.latestURL()
	if !day.IsZero() {
		reqURL = p.historicalURL(day)
	}

	var result oxrResponse
	if err := getJSON(ctx, p.client, "openexchangerates", reqURL, &result); err != nil {
		return RateSample{}, err
	}
	if result.Error {
		return RateSample{}, fmt.Errorf("%w: openexchangerates error %d %s: %s",
			ErrData, result.Status, result.Message, result.Description)
	}

	where := "openexchangerates response"
	lookup := lookupPositiveRate
	if allowZero {
		lookup = lookupRate
	}
	quoteRate, err := lookup(result.Rates, pair.Quote, where)
	if err != nil {
		return RateSample{}, err
	}
	baseRate, err := lookupRate(result.Rates, pair.Base, where)
	if err != nil {
		return RateSample{}, err
	}
	if baseRate == 0 {
		return RateSample{}, fmt.Errorf("%w: %s rate is zero in %s", ErrData, pair.Base, where)
	}

	asOf := day
	if asOf.IsZero() {
		asOf = p.now().UTC()
		if result.Timestamp > 0 {
			asOf = time.Unix(result.Timestamp, 0).UTC()
		}
	}

	return RateSample{
		Base:  pair.Base,
		Quote: pair.Quote,
		Rate:  quoteRate / baseRate,
		AsOf:  asOf,
	}, nil
}

// Fetch calls GetRate for the reference day and the day before and compares them.
// Without a reference date the first call uses the latest endpoint.
func (p *OpenExchangeRatesProvider) Fetch(ctx context.Context, pair CurrencyPair, referenceDate time.Time) (*Rates, error) {
	var currentDay time.Time
	anchor := p.now()
	if !referenceDate.IsZero() {
		currentDay = referenceDay(referenceDate)
		anchor = referenceDate
	}
	previousDay := referenceDay(anchor).AddDate(0, 0, -1)

	current, err := p.GetRate(ctx, pair, currentDay)
	if err != nil {
		return nil, err
	}
	// A zero previous rate is left for NewComparison to report.
	previous, err := p.getRate(ctx, pair, previousDay, true)
	if err != nil {
		return nil, err
	}
	return newRates(current, &previous)
}
