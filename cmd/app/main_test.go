package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"currencyalert/internal/config"
	"currencyalert/internal/provider"
)

func TestRun_ExitCodes(t *testing.T) {
	t.Setenv("CURRENCYALERT_PROVIDER_NAME", "")

	t.Run("usage error", func(t *testing.T) {
		var stderr bytes.Buffer
		assert.Equal(t, exitUsage, run([]string{"currency", "-s", "USD"}, &stderr))
	})

	t.Run("help", func(t *testing.T) {
		var stderr bytes.Buffer
		assert.Equal(t, exitOK, run([]string{"--help"}, &stderr))
	})

	t.Run("invalid config", func(t *testing.T) {
		t.Setenv("CURRENCYALERT_PROVIDER_NAME", "nope")
		var stderr bytes.Buffer
		envFile := filepath.Join(t.TempDir(), "missing.env")
		assert.Equal(t, exitStartup, run([]string{"currency", "-s", "USD", "-t", "EUR", "--env-file", envFile}, &stderr))
		assert.Contains(t, stderr.String(), "Failed to load config")
	})

	t.Run("failed fetch still exits cleanly", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()
		t.Setenv("CURRENCYALERT_FRANKFURTER_BASE_URL", srv.URL)

		var stderr bytes.Buffer
		envFile := filepath.Join(t.TempDir(), "missing.env")
		code := run([]string{"currency", "-s", "USD", "-t", "EUR", "--env-file", envFile}, &stderr)

		assert.Equal(t, exitOK, code)
		assert.Equal(t, int32(1), hits.Load())
	})
}

func TestNewRateProvider(t *testing.T) {
	cfg := &config.Config{
		Frankfurter:       config.FrankfurterConfig{BaseURL: "http://f", Timeout: 5},
		ExchangeRateAPI:   config.ExchangeRateAPIConfig{BaseURL: "http://e", APIKey: "k", Timeout: 5},
		OpenExchangeRates: config.OpenExchangeRatesConfig{BaseURL: "http://o", AppID: "a", Timeout: 5},
		Cache:             config.CacheConfig{TTLSec: 60},
	}

	tests := []struct {
		name string
		want provider.RatesProvider
	}{
		{config.ProviderFrankfurter, &provider.FrankfurterProvider{}},
		{config.ProviderExchangeRateAPI, &provider.ExchangeRateAPIProvider{}},
		{config.ProviderOpenExchangeRates, &provider.OpenExchangeRatesProvider{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg.Provider.Name = tc.name
			p, err := newRateProvider(cfg, nil)
			require.NoError(t, err)
			assert.IsType(t, tc.want, p)
		})
	}

	t.Run("unknown", func(t *testing.T) {
		cfg.Provider.Name = "nope"
		_, err := newRateProvider(cfg, nil)
		assert.Error(t, err)
	})
}

func TestNewApp_Cache(t *testing.T) {
	base := config.Config{
		Provider:    config.ProviderConfig{Name: config.ProviderFrankfurter},
		Frankfurter: config.FrankfurterConfig{BaseURL: "http://f", Timeout: 5},
		SMTP:        config.SMTPConfig{Host: "smtp.example.com", Port: 587, TimeoutSec: 5},
		Cache:       config.CacheConfig{TTLSec: 60},
	}

	t.Run("connected cache wraps the provider", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := base
		cfg.Cache.RedisAddr = mr.Addr()

		app, err := NewApp(t.Context(), &cfg, zap.NewNop().Sugar())
		require.NoError(t, err)
		defer func() { _ = app.close() }()

		assert.NotNil(t, app.rdbCache)
		p, err := newRateProvider(&cfg, app.rdbCache)
		require.NoError(t, err)
		assert.IsType(t, &provider.CachedRatesProviderDecorator{}, p)
	})

	t.Run("unreachable cache is skipped", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()
		cfg := base
		cfg.Cache.RedisAddr = addr

		app, err := NewApp(t.Context(), &cfg, zap.NewNop().Sugar())
		require.NoError(t, err)
		defer func() { _ = app.close() }()

		assert.Nil(t, app.rdbCache)
		assert.NotNil(t, app.alerts)
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("level applied", func(t *testing.T) {
		l, err := newLogger(config.LogConfig{Level: "warn"})
		require.NoError(t, err)
		assert.False(t, l.Core().Enabled(zap.InfoLevel))
		assert.True(t, l.Core().Enabled(zap.WarnLevel))
	})

	t.Run("development logger", func(t *testing.T) {
		l, err := newLogger(config.LogConfig{Level: "debug", Development: true})
		require.NoError(t, err)
		assert.True(t, l.Core().Enabled(zap.DebugLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		_, err := newLogger(config.LogConfig{Level: "loud"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log.level")
	})
}
