// Package exchange abstracts the cryptocurrency exchanges the engine buys
// bitcoin on. The processing service is written against the Client
// interface and never against a concrete provider; providers are selected
// at runtime via the Factory using the tenant rule's exchange_provider
// identifier.
package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// OrderResult is the outcome of a market order. FilledFiat may be less than
// the requested amount (partial fill); the caller decides what that means.
type OrderResult struct {
	OrderID      string
	Status       string
	FilledFiat   decimal.Decimal
	FilledCrypto decimal.Decimal
	PricePerUnit decimal.Decimal
}

// Filled reports whether the order filled the full requested fiat amount.
func (r *OrderResult) Filled(requestedFiat decimal.Decimal) bool {
	return r.FilledFiat.GreaterThanOrEqual(requestedFiat)
}

// WithdrawalResult is the outcome of a withdrawal request.
type WithdrawalResult struct {
	WithdrawalID string
	Status       string
}

// Client is the capability interface one exchange provider implements. All
// calls are blocking I/O bounded by the client's request timeout; a timeout
// surfaces as a transient (retryable) error.
type Client interface {
	// CreateMarketOrder buys bitcoin for the given fiat amount on the given
	// pair (e.g. "BTC-AUD").
	CreateMarketOrder(ctx context.Context, fiatAmount decimal.Decimal, pair string) (*OrderResult, error)
	// Withdraw moves bitcoin to an external address. Never retried by the
	// engine: a failed withdrawal is recorded and left for operators.
	Withdraw(ctx context.Context, cryptoAmount decimal.Decimal, address string) (*WithdrawalResult, error)
	// GetCurrentPrice returns the current price for the pair.
	GetCurrentPrice(ctx context.Context, pair string) (decimal.Decimal, error)
	// Provider returns the provider identifier this client serves.
	Provider() string
}
