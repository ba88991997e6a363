package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/platform/persistence"
)

// ClaimRepository implements treasury.ClaimRepository on the
// processed_transactions table. The unique primary key
// (tenant_id, transaction_id) is what makes TryInsert an atomic
// claim: concurrent callers racing on the same transaction block on the
// index until the winner commits, then observe the conflict.
type ClaimRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewClaimRepository creates a new PostgreSQL idempotency claim repository
func NewClaimRepository(logger *slog.Logger, db *persistence.PostgresDB) treasury.ClaimRepository {
	return &ClaimRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *ClaimRepository) WithTx(tx pgx.Tx) treasury.ClaimRepository {
	return &ClaimRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// TryInsert claims (tenant, transaction) if no claim exists. Must run
// inside the processing transaction so a rolled-back attempt releases the
// claim for redelivery.
func (r *ClaimRepository) TryInsert(ctx context.Context, tenantID, transactionID uuid.UUID) (bool, error) {
	query := `
		INSERT INTO processed_transactions (tenant_id, transaction_id, processed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (tenant_id, transaction_id) DO NOTHING
	`

	result, err := r.querier.Exec(ctx, query, tenantID, transactionID)
	if err != nil {
		r.logger.Error("Failed to insert idempotency claim",
			"tenant_id", tenantID.String(),
			"transaction_id", transactionID.String(),
			"error", err,
		)
		return false, fmt.Errorf("failed to insert idempotency claim: %w", err)
	}

	return result.RowsAffected() == 1, nil
}

// AttachPurchase links the claim to the purchase it produced
func (r *ClaimRepository) AttachPurchase(ctx context.Context, tenantID, transactionID, purchaseID uuid.UUID) error {
	query := `
		UPDATE processed_transactions
		SET purchase_id = $1
		WHERE tenant_id = $2 AND transaction_id = $3
	`

	result, err := r.querier.Exec(ctx, query, purchaseID, tenantID, transactionID)
	if err != nil {
		r.logger.Error("Failed to attach purchase to claim",
			"tenant_id", tenantID.String(),
			"transaction_id", transactionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to attach purchase to claim: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no idempotency claim to attach purchase %s to", purchaseID.String())
	}

	return nil
}

// Get returns the committed claim for (tenant, transaction), or nil when
// the transaction has not been processed.
func (r *ClaimRepository) Get(ctx context.Context, tenantID, transactionID uuid.UUID) (*treasury.Claim, error) {
	query := `
		SELECT tenant_id, transaction_id, purchase_id, processed_at
		FROM processed_transactions
		WHERE tenant_id = $1 AND transaction_id = $2
	`

	var claim treasury.Claim
	err := r.querier.QueryRow(ctx, query, tenantID, transactionID).Scan(
		&claim.TenantID,
		&claim.TransactionID,
		&claim.PurchaseID,
		&claim.ProcessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get idempotency claim",
			"tenant_id", tenantID.String(),
			"transaction_id", transactionID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get idempotency claim: %w", err)
	}

	return &claim, nil
}
