package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"currencyalert/internal/config"
)

var _ RatesProvider = (*ExchangeRateAPIProvider)(nil)

// ExchangeRateAPIProvider fetches the latest conversion table from exchangerate-api.com.
// It has no history, so Fetch never returns a comparison.
type ExchangeRateAPIProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewExchangeRateAPIProvider creates a new ExchangeRateAPIProvider with the given configuration.
func NewExchangeRateAPIProvider(baseURL, apiKey string, timeoutSec int) *ExchangeRateAPIProvider {
	if baseURL == "" {
		baseURL = "https://v6.exchangerate-api.com/v6"
	}
	return &ExchangeRateAPIProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
	}
}

// getLatestURL forms the API URL for fetching the table of base.
func (p *ExchangeRateAPIProvider) getLatestURL(base string) string {
	return fmt.Sprintf("%s/%s/latest/%s", p.baseURL, url.PathEscape(p.apiKey), url.PathEscape(base))
}

// exchangerate-api.com latest API response structure
type erAPIResponse struct {
	Result             string             `json:"result"`
	ErrorType          string             `json:"error-type"`
	BaseCode           string             `json:"base_code"`
	TimeLastUpdateUnix int64              `json:"time_last_update_unix"`
	ConversionRates    map[string]float64 `json:"conversion_rates"`
}

// Fetch returns the latest rate for the pair. referenceDate is ignored.
func (p *ExchangeRateAPIProvider) Fetch(ctx context.Context, pair CurrencyPair, _ time.Time) (*Rates, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("exchangerate_api: %w: EXCHANGE_RATE_API_KEY is not set", config.ErrMissingCredential)
	}

	var result erAPIResponse
	if err := getJSON(ctx, p.client, "exchangerate_api", p.getLatestURL(pair.Base), &result); err != nil {
		return nil, err
	}
	if result.Result != "success" {
		return nil, fmt.Errorf("%w: exchangerate_api returned result=%q error-type=%q for %s",
			ErrData, result.Result, result.ErrorType, pair)
	}

	rate, err := lookupPositiveRate(result.ConversionRates, pair.Quote, "exchangerate_api response")
	if err != nil {
		return nil, err
	}

	asOf := time.Now().UTC()
	if result.TimeLastUpdateUnix > 0 {
		asOf = time.Unix(result.TimeLastUpdateUnix, 0).UTC()
	}
	return newRates(RateSample{Base: pair.Base, Quote: pair.Quote, Rate: rate, AsOf: asOf}, nil)
}
