package treasury

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Claim is the idempotency placeholder for a processed transaction. A claim
// with a nil PurchaseID means the transaction was consumed without a
// conversion (threshold accumulation below the trigger).
type Claim struct {
	TenantID      uuid.UUID  `json:"tenant_id"`
	TransactionID uuid.UUID  `json:"transaction_id"`
	PurchaseID    *uuid.UUID `json:"purchase_id,omitempty"`
	ProcessedAt   time.Time  `json:"processed_at"`
}

// RuleRepository reads tenant treasury configuration. The engine never
// writes rules.
type RuleRepository interface {
	// GetActive returns the tenant's active rule. When several rules are
	// active the oldest wins, so the choice is stable across replicas.
	// Returns ErrRuleNotFound when the tenant has none.
	GetActive(ctx context.Context, tenantID uuid.UUID) (*Rule, error)
	GetByID(ctx context.Context, tenantID, ruleID uuid.UUID) (*Rule, error)
	WithTx(tx pgx.Tx) RuleRepository
}

// PurchaseRepository manages bitcoin purchase persistence. Every method is
// tenant-scoped; there is no query that can cross tenants.
type PurchaseRepository interface {
	// Create inserts a purchase row. The (tenant_id, transaction_id) unique
	// constraint is the last line of defence against duplicates; violations
	// surface as ErrDuplicatePurchase.
	Create(ctx context.Context, purchase *BitcoinPurchase) error
	GetByTransactionID(ctx context.Context, tenantID, transactionID uuid.UUID) (*BitcoinPurchase, error)
	GetByID(ctx context.Context, tenantID, purchaseID uuid.UUID) (*BitcoinPurchase, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*BitcoinPurchase, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error)
	UpdateStatus(ctx context.Context, tenantID, purchaseID uuid.UUID, status string) error
	WithTx(tx pgx.Tx) PurchaseRepository
}

// ClaimRepository backs the idempotency guard with an insert-if-absent
// claim table.
type ClaimRepository interface {
	// TryInsert atomically inserts a claim for (tenant, transaction) and
	// reports whether this caller won. A false return means a claim already
	// exists or is being committed by a concurrent caller.
	TryInsert(ctx context.Context, tenantID, transactionID uuid.UUID) (bool, error)
	// AttachPurchase links the winning claim to the purchase it produced.
	AttachPurchase(ctx context.Context, tenantID, transactionID, purchaseID uuid.UUID) error
	// Get returns the committed claim, or nil when none exists.
	Get(ctx context.Context, tenantID, transactionID uuid.UUID) (*Claim, error)
	WithTx(tx pgx.Tx) ClaimRepository
}

// AccumulatorRepository manages the threshold rule's running balance. Add
// must be called inside the processing transaction: it takes a row lock on
// (tenant, rule) so concurrent transactions for the same tenant serialize
// instead of losing updates.
type AccumulatorRepository interface {
	// Add locks the accumulator row, adds amount, and returns the new
	// balance. The row is created on first use.
	Add(ctx context.Context, tenantID, ruleID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	// Reset zeroes the balance after a triggered conversion.
	Reset(ctx context.Context, tenantID, ruleID uuid.UUID) error
	Get(ctx context.Context, tenantID, ruleID uuid.UUID) (*Accumulator, error)
	WithTx(tx pgx.Tx) AccumulatorRepository
}

// WithdrawalRepository manages withdrawal attempt records.
type WithdrawalRepository interface {
	Create(ctx context.Context, withdrawal *Withdrawal) error
	Update(ctx context.Context, withdrawal *Withdrawal) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*Withdrawal, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*Withdrawal, error)
	WithTx(tx pgx.Tx) WithdrawalRepository
}
