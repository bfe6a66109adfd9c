// Package main is the entry point for the currency alert command.
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"currencyalert/internal/config"
	"currencyalert/internal/mail"
	"currencyalert/internal/provider"
	"currencyalert/internal/service"
)

// App holds all application dependencies and manages their lifecycle.
type App struct {
	cfg      *config.Config
	logger   *zap.SugaredLogger
	rdbCache *redis.Client
	alerts   service.AlertServiceInterface
}

// NewApp initializes all dependencies and returns a ready-to-run App.
func NewApp(ctx context.Context, cfg *config.Config, logger *zap.SugaredLogger) (*App, error) {
	app := &App{
		cfg:    cfg,
		logger: logger,
	}

	app.initCache(ctx)

	if err := app.initServices(); err != nil {
		_ = app.close()
		return nil, err
	}

	return app, nil
}

// close releases the Redis connection.
func (app *App) close() error {
	var errs []error
	if app.rdbCache != nil {
		if err := app.rdbCache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis cache close: %w", err))
		}
		app.rdbCache = nil
	}
	return errors.Join(errs...)
}

// initCache connects the optional rate cache. An unreachable Redis disables
// the cache instead of failing the alert.
func (app *App) initCache(ctx context.Context) {
	if app.cfg.Cache.RedisAddr == "" {
		return
	}

	rdb := redis.NewClient(&redis.Options{Addr: app.cfg.Cache.RedisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		app.logger.Warnw("Redis cache unavailable, continuing without it", "addr", app.cfg.Cache.RedisAddr, "error", err)
		_ = rdb.Close()
		return
	}
	app.rdbCache = rdb
	app.logger.Infow("Connected to Redis cache", "addr", app.cfg.Cache.RedisAddr)
}

func (app *App) initServices() error {
	rateProvider, err := newRateProvider(app.cfg, app.rdbCache)
	if err != nil {
		return err
	}
	sender := mail.NewSMTPSender(app.cfg.SMTP, app.logger)
	app.alerts = service.NewAlertService(rateProvider, sender, app.logger, app.cfg.Alert)
	app.logger.Infow("Rate provider configured", "provider", app.cfg.Provider.Name, "cache", app.rdbCache != nil)
	return nil
}

// newRateProvider builds the single configured provider, wrapped in the
// Redis cache when one is connected.
func newRateProvider(cfg *config.Config, cache *redis.Client) (provider.RatesProvider, error) {
	var p provider.RatesProvider
	switch cfg.Provider.Name {
	case config.ProviderFrankfurter:
		p = provider.NewFrankfurterProvider(cfg.Frankfurter.BaseURL, cfg.Frankfurter.Timeout)
	case config.ProviderExchangeRateAPI:
		p = provider.NewExchangeRateAPIProvider(cfg.ExchangeRateAPI.BaseURL, cfg.ExchangeRateAPI.APIKey, cfg.ExchangeRateAPI.Timeout)
	case config.ProviderOpenExchangeRates:
		p = provider.NewOpenExchangeRatesProvider(cfg.OpenExchangeRates.BaseURL, cfg.OpenExchangeRates.AppID, cfg.OpenExchangeRates.Timeout)
	default:
		return nil, fmt.Errorf("unknown rate provider %q", cfg.Provider.Name)
	}

	if cache == nil {
		return p, nil
	}
	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	return provider.NewCachedRatesProvider(p, cache, ttl, cfg.Provider.Name), nil
}

// Run sends one alert. The outcome is informational; failures have already
// been logged.
func (app *App) Run(ctx context.Context, req service.AlertRequest) service.Outcome {
	return app.alerts.SendAlert(ctx, req)
}
