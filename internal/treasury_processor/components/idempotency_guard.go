package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/treasury_processor/service"
)

type IdempotencyGuardImpl struct {
	claimRepo treasury.ClaimRepository
	logger    *slog.Logger
}

func NewIdempotencyGuard(claimRepo treasury.ClaimRepository, logger *slog.Logger) service.IdempotencyGuard {
	return &IdempotencyGuardImpl{
		claimRepo: claimRepo,
		logger:    logger,
	}
}

// AlreadyProcessed checks for a committed claim outside any transaction.
// This catches redeliveries cheaply; the authoritative check is the claim
// insert inside the processing transaction.
func (g *IdempotencyGuardImpl) AlreadyProcessed(ctx context.Context, tenantID, transactionID uuid.UUID) (bool, error) {
	claim, err := g.claimRepo.Get(ctx, tenantID, transactionID)
	if err != nil {
		g.logger.Error("Failed to check processed transaction claim",
			"tenant_id", tenantID.String(),
			"transaction_id", transactionID.String(),
			"error", err,
		)
		return false, fmt.Errorf("idempotency check failed for transaction %s: %w", transactionID.String(), err)
	}
	return claim != nil, nil
}

// Claim inserts the idempotency claim inside the processing transaction.
// A concurrent claimer blocks on the unique index until the winner commits
// or rolls back, so a false return means the transaction is genuinely taken.
func (g *IdempotencyGuardImpl) Claim(ctx context.Context, tx pgx.Tx, tenantID, transactionID uuid.UUID) (bool, error) {
	claimed, err := g.claimRepo.WithTx(tx).TryInsert(ctx, tenantID, transactionID)
	if err != nil {
		return false, fmt.Errorf("failed to claim transaction %s: %w", transactionID.String(), err)
	}
	return claimed, nil
}

// AttachPurchase links the claim to the purchase it produced
func (g *IdempotencyGuardImpl) AttachPurchase(ctx context.Context, tx pgx.Tx, tenantID, transactionID, purchaseID uuid.UUID) error {
	if err := g.claimRepo.WithTx(tx).AttachPurchase(ctx, tenantID, transactionID, purchaseID); err != nil {
		return fmt.Errorf("failed to attach purchase %s to claim: %w", purchaseID.String(), err)
	}
	return nil
}
