package provider

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedRatesProviderDecorator wraps a RatesProvider with Redis caching.
type CachedRatesProviderDecorator struct {
	provider     RatesProvider
	cache        *redis.Client
	ttl          time.Duration
	providerName string
}

// NewCachedRatesProvider creates a new CachedRatesProviderDecorator.
func NewCachedRatesProvider(provider RatesProvider, cache *redis.Client, ttl time.Duration, providerName string) *CachedRatesProviderDecorator {
	return &CachedRatesProviderDecorator{
		provider:     provider,
		cache:        cache,
		ttl:          ttl,
		providerName: providerName,
	}
}

func (p *CachedRatesProviderDecorator) cacheKey(pair CurrencyPair, day time.Time) string {
	return fmt.Sprintf("provider_cache:%s:{%s:%s}:%s", p.providerName, pair.Base, pair.Quote, day.Format(dateLayout))
}

// Fetch attempts to read the rates from cache before calling the underlying provider.
func (p *CachedRatesProviderDecorator) Fetch(ctx context.Context, pair CurrencyPair, referenceDate time.Time) (*Rates, error) {
	if p.cache == nil {
		return p.provider.Fetch(ctx, pair, referenceDate)
	}

	key := p.cacheKey(pair, referenceDay(referenceDate))

	// check cache
	vals, err := p.cache.HMGet(ctx, key, "rate", "as_of", "previous", "previous_as_of").Result()
	if err == nil {
		if rates, ok := ratesFromCache(pair, vals); ok {
			return rates, nil
		}
	}

	rates, err := p.provider.Fetch(ctx, pair, referenceDate)
	if err != nil {
		return nil, err
	}

	fields := []any{
		"rate", formatRate(rates.Sample.Rate),
		"as_of", rates.Sample.AsOf.Format(time.RFC3339),
	}
	if rates.Previous != nil {
		fields = append(fields,
			"previous", formatRate(rates.Previous.Rate),
			"previous_as_of", rates.Previous.AsOf.Format(time.RFC3339))
	}

	pipe := p.cache.Pipeline()
	pipe.HSet(ctx, key, fields...)
	pipe.Expire(ctx, key, p.ttl)
	_, _ = pipe.Exec(ctx)

	return rates, nil
}

func ratesFromCache(pair CurrencyPair, vals []any) (*Rates, bool) {
	if len(vals) != 4 {
		return nil, false
	}
	current, ok := sampleFromCache(pair, vals[0], vals[1])
	if !ok {
		return nil, false
	}

	var previous *RateSample
	if vals[2] != nil {
		prev, ok := sampleFromCache(pair, vals[2], vals[3])
		if !ok {
			return nil, false
		}
		previous = &prev
	}

	rates, err := newRates(current, previous)
	if err != nil {
		return nil, false
	}
	return rates, true
}

func sampleFromCache(pair CurrencyPair, rateVal, tsVal any) (RateSample, bool) {
	rateStr, ok1 := rateVal.(string)
	tsStr, ok2 := tsVal.(string)
	if !ok1 || !ok2 {
		return RateSample{}, false
	}
	rate, err := strconv.ParseFloat(rateStr, 64)
	if err != nil {
		return RateSample{}, false
	}
	ts, err := time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return RateSample{}, false
	}
	return RateSample{Base: pair.Base, Quote: pair.Quote, Rate: rate, AsOf: ts}, true
}

func formatRate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var _ RatesProvider = (*CachedRatesProviderDecorator)(nil)
