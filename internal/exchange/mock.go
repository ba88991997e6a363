package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MockConfig controls the deterministic mock exchange.
type MockConfig struct {
	// Price per BTC; defaults to 100000 when zero.
	Price decimal.Decimal
	// FillRatio is the fraction of the requested fiat that fills, in
	// (0, 1]; defaults to 1 (full fill).
	FillRatio decimal.Decimal
	// FailOrders makes the next N CreateMarketOrder calls fail with
	// OrderError before succeeding.
	FailOrders int
	// OrderError is the error returned while FailOrders > 0; defaults to a
	// transient network error.
	OrderError *Error
	// FailWithdrawals makes every Withdraw call fail.
	FailWithdrawals bool
}

// MockClient is a deterministic in-memory exchange used by tests and
// development environments. It is safe for concurrent use.
type MockClient struct {
	mu  sync.Mutex
	cfg MockConfig

	OrderCalls    int
	WithdrawCalls int
	PriceCalls    int
}

func NewMockClient(cfg MockConfig) *MockClient {
	if cfg.Price.IsZero() {
		cfg.Price = decimal.NewFromInt(100000)
	}
	if cfg.FillRatio.IsZero() {
		cfg.FillRatio = decimal.NewFromInt(1)
	}
	if cfg.OrderError == nil {
		cfg.OrderError = NewError(ProviderMock, CodeNetworkError, "injected network error", nil)
	}
	return &MockClient{cfg: cfg}
}

func (m *MockClient) Provider() string {
	return ProviderMock
}

func (m *MockClient) CreateMarketOrder(_ context.Context, fiatAmount decimal.Decimal, pair string) (*OrderResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.OrderCalls++
	if m.cfg.FailOrders > 0 {
		m.cfg.FailOrders--
		return nil, m.cfg.OrderError
	}

	if !fiatAmount.IsPositive() {
		return nil, NewError(ProviderMock, CodeOrderRejected, fmt.Sprintf("invalid order amount %s for %s", fiatAmount, pair), nil)
	}

	filledFiat := fiatAmount.Mul(m.cfg.FillRatio)
	return &OrderResult{
		OrderID:      uuid.New().String(),
		Status:       "executed",
		FilledFiat:   filledFiat,
		FilledCrypto: filledFiat.DivRound(m.cfg.Price, 8),
		PricePerUnit: m.cfg.Price,
	}, nil
}

func (m *MockClient) Withdraw(_ context.Context, cryptoAmount decimal.Decimal, address string) (*WithdrawalResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WithdrawCalls++
	if m.cfg.FailWithdrawals {
		return nil, NewError(ProviderMock, CodeOrderRejected, "injected withdrawal failure", nil)
	}
	if address == "" {
		return nil, NewError(ProviderMock, CodeOrderRejected, "empty withdrawal address", nil)
	}
	if !cryptoAmount.IsPositive() {
		return nil, NewError(ProviderMock, CodeOrderRejected, "invalid withdrawal amount "+cryptoAmount.String(), nil)
	}

	return &WithdrawalResult{
		WithdrawalID: uuid.New().String(),
		Status:       "pending",
	}, nil
}

func (m *MockClient) GetCurrentPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PriceCalls++
	return m.cfg.Price, nil
}
