package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/bitstash-treasury-engine/internal/domain/failure"
	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
)

// TreasuryQueryService defines read operations over a tenant's treasury
// state. Every operation is tenant-scoped.
type TreasuryQueryService interface {
	// GetPurchase retrieves one purchase. Returns nil if not found.
	GetPurchase(ctx context.Context, tenantID, purchaseID uuid.UUID) (*treasury.BitcoinPurchase, error)

	// GetPurchaseByTransaction retrieves the purchase produced by a source
	// transaction. Returns nil if the transaction never converted.
	GetPurchaseByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) (*treasury.BitcoinPurchase, error)

	// ListPurchases retrieves a paginated purchase history, newest first.
	// Returns purchases, total count, and any error.
	ListPurchases(ctx context.Context, tenantID uuid.UUID, page, perPage int) ([]*treasury.BitcoinPurchase, int64, error)

	// ListWithdrawals retrieves a tenant's withdrawal attempts, newest first.
	ListWithdrawals(ctx context.Context, tenantID uuid.UUID, page, perPage int) ([]*treasury.Withdrawal, error)

	// GetActiveRule returns the tenant's active treasury rule.
	// Returns nil if the tenant has none.
	GetActiveRule(ctx context.Context, tenantID uuid.UUID) (*treasury.Rule, error)

	// GetAccumulator returns the threshold accumulator for a rule.
	// Returns nil if no balance has accumulated yet.
	GetAccumulator(ctx context.Context, tenantID, ruleID uuid.UUID) (*treasury.Accumulator, error)
}

// FailureService defines operator workflows over processing failures
type FailureService interface {
	// GetFailure retrieves one failure record. Returns nil if not found.
	GetFailure(ctx context.Context, tenantID, failureID uuid.UUID) (*failure.ProcessingFailure, error)

	// ListFailures retrieves a paginated failure history, newest first.
	// Returns records, total count, and any error.
	ListFailures(ctx context.Context, tenantID uuid.UUID, unresolvedOnly bool, page, perPage int) ([]*failure.ProcessingFailure, int64, error)

	// ListFailuresByTransaction retrieves the failure history of one source
	// transaction, oldest first.
	ListFailuresByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) ([]*failure.ProcessingFailure, error)

	// ResolveFailure marks a failure record as handled.
	// Returns failure.ErrFailureNotFound if the record doesn't exist.
	ResolveFailure(ctx context.Context, tenantID, failureID uuid.UUID) error

	// RequeueTransaction republishes a payment transaction for
	// reprocessing after its failure cause has been fixed.
	RequeueTransaction(ctx context.Context, txn *payment.Transaction) error
}
