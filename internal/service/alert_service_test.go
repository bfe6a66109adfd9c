package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"currencyalert/internal/config"
	"currencyalert/internal/mail"
	"currencyalert/internal/provider"
)

// Mock provider
type mockRatesProvider struct {
	fetchFunc func(ctx context.Context, pair provider.CurrencyPair, ref time.Time) (*provider.Rates, error)
}

func (m *mockRatesProvider) Fetch(ctx context.Context, pair provider.CurrencyPair, ref time.Time) (*provider.Rates, error) {
	return m.fetchFunc(ctx, pair, ref)
}

// Mock sender
type mockSender struct {
	sendFunc func(ctx context.Context, subject, body, to string) error
	calls    int
}

func (m *mockSender) Send(ctx context.Context, subject, body, to string) error {
	m.calls++
	if m.sendFunc == nil {
		return nil
	}
	return m.sendFunc(ctx, subject, body, to)
}

func observedLogger() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func fixedRates(rates *provider.Rates, err error) *mockRatesProvider {
	return &mockRatesProvider{
		fetchFunc: func(context.Context, provider.CurrencyPair, time.Time) (*provider.Rates, error) {
			return rates, err
		},
	}
}

const referenceMessage = "The conversion rate between USD and EUR is 0.92, up 0.02% from 0.9."

func TestSendAlert_NoRecipientLogsMessage(t *testing.T) {
	logger, logs := observedLogger()
	sender := &mockSender{}
	svc := NewAlertService(fixedRates(comparisonRates(t, 0.92, 0.90), nil), sender, logger, config.AlertConfig{})

	out := svc.SendAlert(context.Background(), AlertRequest{Pair: usdEUR})

	assert.Equal(t, StatusLogged, out.Status)
	assert.Equal(t, referenceMessage, out.Message)
	assert.NoError(t, out.Err)
	assert.NotEmpty(t, out.AlertID)
	assert.Zero(t, sender.calls)
	assert.Equal(t, 1, logs.FilterMessage(referenceMessage).Len())
	assert.Equal(t, 1, logs.FilterMessage("No email provided, skipping email send").Len())
}

func TestSendAlert_SendsEmail(t *testing.T) {
	logger, _ := observedLogger()
	var gotSubject, gotBody, gotTo string
	sender := &mockSender{
		sendFunc: func(_ context.Context, subject, body, to string) error {
			gotSubject, gotBody, gotTo = subject, body, to
			return nil
		},
	}
	svc := NewAlertService(fixedRates(comparisonRates(t, 0.92, 0.90), nil), sender, logger, config.AlertConfig{})

	out := svc.SendAlert(context.Background(), AlertRequest{Pair: usdEUR, Recipient: "test@example.com"})

	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, 1, sender.calls)
	assert.Equal(t, "Currency Alert: USD to EUR", gotSubject)
	assert.Equal(t, referenceMessage, gotBody)
	assert.Equal(t, "test@example.com", gotTo)
}

func TestSendAlert_PassesReferenceDate(t *testing.T) {
	ref := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	var gotRef time.Time
	var gotPair provider.CurrencyPair
	prov := &mockRatesProvider{
		fetchFunc: func(_ context.Context, pair provider.CurrencyPair, r time.Time) (*provider.Rates, error) {
			gotPair, gotRef = pair, r
			return comparisonRates(t, 0.92, 0.90), nil
		},
	}
	svc := NewAlertService(prov, &mockSender{}, zap.NewNop().Sugar(), config.AlertConfig{})

	svc.SendAlert(context.Background(), AlertRequest{Pair: usdEUR, ReferenceDate: ref})

	assert.Equal(t, usdEUR, gotPair)
	assert.Equal(t, ref, gotRef)
}

func TestSendAlert_FetchFailureSkipsDelivery(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"data error", errors.Join(provider.ErrData, errors.New("no rate for EUR"))},
		{"provider error", &provider.StatusError{Provider: "frankfurter", StatusCode: 500, Body: "boom"}},
		{"configuration error", config.ErrMissingCredential},
		{"zero previous rate", func() error { _, err := provider.NewComparison(0.92, 0); return err }()},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			logger, logs := observedLogger()
			sender := &mockSender{}
			svc := NewAlertService(fixedRates(nil, tc.err), sender, logger, config.AlertConfig{})

			var out Outcome
			require.NotPanics(t, func() {
				out = svc.SendAlert(context.Background(), AlertRequest{Pair: usdEUR, Recipient: "test@example.com"})
			})

			assert.Equal(t, StatusFetchFailed, out.Status)
			assert.ErrorIs(t, out.Err, tc.err)
			assert.Empty(t, out.Message)
			assert.Zero(t, sender.calls)
			assert.Equal(t, 1, logs.FilterMessage("Failed to get exchange rate").Len())
		})
	}
}

func TestSendAlert_DeliveryFailureIsLogged(t *testing.T) {
	logger, logs := observedLogger()
	sender := &mockSender{
		sendFunc: func(context.Context, string, string, string) error {
			return errors.Join(mail.ErrDelivery, errors.New("535 auth failed"))
		},
	}
	svc := NewAlertService(fixedRates(comparisonRates(t, 0.92, 0.90), nil), sender, logger, config.AlertConfig{})

	out := svc.SendAlert(context.Background(), AlertRequest{Pair: usdEUR, Recipient: "test@example.com"})

	assert.Equal(t, StatusDeliveryFailed, out.Status)
	assert.ErrorIs(t, out.Err, mail.ErrDelivery)
	assert.Equal(t, referenceMessage, out.Message)
	assert.Equal(t, 1, logs.FilterMessage("Failed to send email").Len())
	assert.Zero(t, logs.FilterMessage("Sent currency alert successfully").Len())
}

func TestSendAlert_SingleRateProvider(t *testing.T) {
	rates := &provider.Rates{Sample: provider.RateSample{Base: "USD", Quote: "EUR", Rate: 0.9187}}
	svc := NewAlertService(fixedRates(rates, nil), &mockSender{}, zap.NewNop().Sugar(), config.AlertConfig{})

	out := svc.SendAlert(context.Background(), AlertRequest{Pair: usdEUR})

	assert.Equal(t, StatusLogged, out.Status)
	assert.Equal(t, "The conversion rate between USD and EUR is 0.9187.", out.Message)
}

func TestSendAlert_UnusualCodeIsPassedThrough(t *testing.T) {
	logger, logs := observedLogger()
	pair := provider.CurrencyPair{Base: "usd", Quote: "EURO"}
	var got provider.CurrencyPair
	prov := &mockRatesProvider{
		fetchFunc: func(_ context.Context, p provider.CurrencyPair, _ time.Time) (*provider.Rates, error) {
			got = p
			return nil, provider.ErrData
		},
	}
	svc := NewAlertService(prov, &mockSender{}, logger, config.AlertConfig{})

	svc.SendAlert(context.Background(), AlertRequest{Pair: pair})

	assert.Equal(t, pair, got)
	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "EURO", warnings[0].ContextMap()["code"])
}

// A provider response without the target currency must end the alert quietly.
func TestSendAlert_FrankfurterMissingTargetCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"rates": {"2024-03-13": {"GBP": 0.78}, "2024-03-14": {"GBP": 0.79}}}`))
	}))
	defer srv.Close()

	sender := &mockSender{}
	svc := NewAlertService(provider.NewFrankfurterProvider(srv.URL, 5), sender, zap.NewNop().Sugar(), config.AlertConfig{})

	out := svc.SendAlert(context.Background(), AlertRequest{
		Pair:          usdEUR,
		Recipient:     "test@example.com",
		ReferenceDate: time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC),
	})

	assert.Equal(t, StatusFetchFailed, out.Status)
	assert.ErrorIs(t, out.Err, provider.ErrData)
	assert.Zero(t, sender.calls)
}
