// Package service implements the alert workflow: fetch, compose, deliver.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"currencyalert/internal/config"
	"currencyalert/internal/mail"
	"currencyalert/internal/provider"
)

// Status is the terminal state of one alert attempt.
type Status string

// Status values for an alert attempt.
const (
	StatusSent           Status = "SENT"
	StatusLogged         Status = "LOGGED"
	StatusFetchFailed    Status = "FETCH_FAILED"
	StatusDeliveryFailed Status = "DELIVERY_FAILED"
)

// AlertRequest describes one alert. Recipient and ReferenceDate are optional.
type AlertRequest struct {
	Pair          provider.CurrencyPair
	Recipient     string
	ReferenceDate time.Time
}

// Outcome reports what happened to an alert. Err is set for the failed states.
type Outcome struct {
	AlertID string
	Status  Status
	Message string
	Err     error
}

// AlertServiceInterface defines the alert operation.
type AlertServiceInterface interface {
	SendAlert(ctx context.Context, req AlertRequest) Outcome
}

// AlertService fetches rates and emails or logs the resulting message.
type AlertService struct {
	provider     provider.RatesProvider
	sender       mail.Sender
	log          *zap.SugaredLogger
	scalePercent bool
}

// NewAlertService creates a new AlertService
func NewAlertService(prov provider.RatesProvider, sender mail.Sender, logger *zap.SugaredLogger, alertCfg config.AlertConfig) *AlertService {
	return &AlertService{
		provider:     prov,
		sender:       sender,
		log:          logger,
		scalePercent: alertCfg.ScalePercent,
	}
}

// SendAlert runs one best-effort alert. Failures are logged and reported in
// the Outcome; they are never returned as errors.
func (s *AlertService) SendAlert(ctx context.Context, req AlertRequest) Outcome {
	out := Outcome{AlertID: uuid.New().String()}
	log := s.log.With("alert_id", out.AlertID, "pair", req.Pair.String())

	log.Infow("Sending exchange rate alert")
	s.warnUnusualCodes(log, req.Pair)

	rates, err := s.provider.Fetch(ctx, req.Pair, req.ReferenceDate)
	if err != nil {
		log.Errorw("Failed to get exchange rate", "error", err)
		out.Status, out.Err = StatusFetchFailed, err
		return out
	}
	s.logRates(log, rates)

	out.Message = ComposeMessage(req.Pair, rates, s.scalePercent)

	if req.Recipient == "" {
		log.Infow("No email provided, skipping email send")
		log.Infow(out.Message)
		out.Status = StatusLogged
		return out
	}

	if err := s.sender.Send(ctx, ComposeSubject(req.Pair), out.Message, req.Recipient); err != nil {
		log.Errorw("Failed to send email", "error", err)
		out.Status, out.Err = StatusDeliveryFailed, err
		return out
	}

	log.Infow("Sent currency alert successfully")
	out.Status = StatusSent
	return out
}

func (s *AlertService) logRates(log *zap.SugaredLogger, rates *provider.Rates) {
	if rates.Comparison == nil {
		log.Infow("Exchange rate fetched", "rate", rates.Sample.Rate, "as_of", rates.Sample.AsOf)
		return
	}
	log.Infow("Exchange rate fetched",
		"today", rates.Comparison.Current,
		"yesterday", rates.Comparison.Previous,
		"diff", rates.Comparison.PercentChange)
}

// warnUnusualCodes logs codes that do not look like ISO 4217. They are still
// sent to the provider unchanged.
func (s *AlertService) warnUnusualCodes(log *zap.SugaredLogger, pair provider.CurrencyPair) {
	for _, code := range []string{pair.Base, pair.Quote} {
		if !IsValidCurrencyCode(code) {
			log.Warnw("Currency code is not a 3-letter code; passing it through", "code", code)
		}
	}
}
