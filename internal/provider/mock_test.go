package provider

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Fetch(ctx context.Context, pair CurrencyPair, referenceDate time.Time) (*Rates, error) {
	args := m.Called(ctx, pair, referenceDate)
	rates, _ := args.Get(0).(*Rates)
	return rates, args.Error(1)
}
