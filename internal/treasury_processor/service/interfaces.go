package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
)

// ProcessingService defines the interface for processing payment transactions.
type ProcessingService interface {
	ProcessPayment(ctx context.Context, txn *payment.Transaction) error
}

// Decision is the outcome of evaluating a payment against the tenant's rule.
type Decision struct {
	// Convert reports whether a purchase should be executed.
	Convert bool
	// Amount is the fiat amount to convert when Convert is true.
	Amount decimal.Decimal
	// AccumulatorBalance is the running balance after this payment was
	// added, for threshold rules only.
	AccumulatorBalance decimal.Decimal
}

// RuleEvaluator resolves and applies the tenant's treasury rule
type RuleEvaluator interface {
	// ActiveRule returns the tenant's active, validated rule. Returns
	// treasury.ErrRuleNotFound when the tenant has none and a rule
	// validation error when the configuration is malformed.
	ActiveRule(ctx context.Context, tenantID uuid.UUID) (*treasury.Rule, error)
	// Decide computes the conversion decision inside the processing
	// transaction. For threshold rules this updates the accumulator under a
	// row lock and resets it when the trigger fires.
	Decide(ctx context.Context, tx pgx.Tx, rule *treasury.Rule, txn *payment.Transaction) (*Decision, error)
}

// IdempotencyGuard enforces exactly-once conversion per source transaction
type IdempotencyGuard interface {
	// AlreadyProcessed is the fast path check against committed claims.
	AlreadyProcessed(ctx context.Context, tenantID, transactionID uuid.UUID) (bool, error)
	// Claim inserts the idempotency claim inside the processing
	// transaction; false means a concurrent or earlier caller owns it.
	Claim(ctx context.Context, tx pgx.Tx, tenantID, transactionID uuid.UUID) (bool, error)
	// AttachPurchase links the claim to the purchase it produced.
	AttachPurchase(ctx context.Context, tx pgx.Tx, tenantID, transactionID, purchaseID uuid.UUID) error
}

// ExchangeExecutor places market orders on the tenant's exchange provider
type ExchangeExecutor interface {
	// ExecutePurchase buys bitcoin for the given fiat amount, retrying
	// transient exchange failures, and returns the purchase record to
	// persist. Errors are terminal: the in-call retry budget is exhausted.
	ExecutePurchase(ctx context.Context, rule *treasury.Rule, txn *payment.Transaction, fiatAmount decimal.Decimal) (*treasury.BitcoinPurchase, error)
}

// WithdrawalCoordinator moves purchased bitcoin to the tenant's address
type WithdrawalCoordinator interface {
	// ExecuteWithdrawal runs after the purchase has committed. It is a
	// single attempt; failures are recorded and returned but must never
	// invalidate the purchase.
	ExecuteWithdrawal(ctx context.Context, rule *treasury.Rule, purchase *treasury.BitcoinPurchase, correlationID string) (*treasury.Withdrawal, error)
}

// OutboxManager handles the creation of outbox entries for committed purchases
type OutboxManager interface {
	CreateOutboxEntry(ctx context.Context, tx pgx.Tx, purchase *treasury.BitcoinPurchase, correlationID string) error
}

// FailureRecorder handles recording terminal processing failures
type FailureRecorder interface {
	RecordFailure(ctx context.Context, txn *payment.Transaction, leg shared.ProcessingLeg, category shared.FailureCategory, message string) error
}
