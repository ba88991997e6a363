package components

import (
	"context"
	"log/slog"

	"github.com/bitstash-treasury-engine/internal/domain/failure"
	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/treasury_processor/service"
)

type FailureRecorderImpl struct {
	failureRepo failure.Repository
	logger      *slog.Logger
}

func NewFailureRecorder(failureRepo failure.Repository, logger *slog.Logger) service.FailureRecorder {
	return &FailureRecorderImpl{
		failureRepo: failureRepo,
		logger:      logger,
	}
}

// RecordFailure writes a terminal processing failure to the audit store.
// The store is outside the processing transaction, so the record survives
// the rollback that accompanies it.
func (r *FailureRecorderImpl) RecordFailure(ctx context.Context, txn *payment.Transaction, leg shared.ProcessingLeg, category shared.FailureCategory, message string) error {
	logger := r.logger
	if txn.CorrelationID != "" {
		logger = r.logger.With("correlation_id", txn.CorrelationID)
	}

	logger.Info("Recording processing failure",
		"transaction_id", txn.ID.String(),
		"tenant_id", txn.TenantID.String(),
		"leg", string(leg),
		"category", string(category),
	)

	record := failure.NewProcessingFailure(txn.TenantID, txn.ID, leg, category, message, txn.CorrelationID)
	if err := r.failureRepo.Create(ctx, record); err != nil {
		logger.Error("Failed to create processing failure record",
			"transaction_id", txn.ID.String(),
			"error", err,
		)
		return err
	}

	return nil
}
