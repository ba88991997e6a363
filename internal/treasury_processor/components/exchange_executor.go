package components

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/exchange"
	"github.com/bitstash-treasury-engine/internal/treasury_processor/service"
)

// ClientResolver resolves a rule's exchange provider identifier to a client
type ClientResolver interface {
	ClientFor(provider string) (exchange.Client, error)
}

type ExchangeExecutorImpl struct {
	resolver ClientResolver
	policy   exchange.RetryPolicy
	pair     string
	logger   *slog.Logger
}

func NewExchangeExecutor(resolver ClientResolver, policy exchange.RetryPolicy, pair string, logger *slog.Logger) service.ExchangeExecutor {
	return &ExchangeExecutorImpl{
		resolver: resolver,
		policy:   policy,
		pair:     pair,
		logger:   logger,
	}
}

// ExecutePurchase places a market order for the given fiat amount on the
// rule's exchange provider and shapes the result into a purchase record.
// Transient exchange failures retry with backoff inside this call; any
// error returned is terminal for this delivery.
func (e *ExchangeExecutorImpl) ExecutePurchase(ctx context.Context, rule *treasury.Rule, txn *payment.Transaction, fiatAmount decimal.Decimal) (*treasury.BitcoinPurchase, error) {
	logger := e.logger
	if txn.CorrelationID != "" {
		logger = e.logger.With("correlation_id", txn.CorrelationID)
	}

	client, err := e.resolver.ClientFor(rule.ExchangeProvider)
	if err != nil {
		logger.Error("No exchange client for rule provider",
			"tenant_id", txn.TenantID.String(),
			"provider", rule.ExchangeProvider,
			"error", err,
		)
		return nil, err
	}

	result, err := exchange.PlaceOrderWithRetry(ctx, client, e.policy, fiatAmount, e.pair, logger)
	if err != nil {
		return nil, err
	}

	status := shared.PurchaseStatusFilled
	if !result.Filled(fiatAmount) {
		status = shared.PurchaseStatusPartiallyFilled
		logger.Warn("Market order partially filled",
			"transaction_id", txn.ID.String(),
			"requested_fiat", fiatAmount.String(),
			"filled_fiat", result.FilledFiat.String(),
		)
	}

	now := time.Now()
	return &treasury.BitcoinPurchase{
		ID:               uuid.New(),
		TenantID:         txn.TenantID,
		TransactionID:    txn.ID,
		AmountFiat:       result.FilledFiat,
		Currency:         txn.Currency,
		BitcoinAmount:    result.FilledCrypto,
		PricePerBTC:      result.PricePerUnit,
		ExchangeProvider: client.Provider(),
		ExchangeOrderID:  result.OrderID,
		Status:           status,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}
