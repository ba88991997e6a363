package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bitstash-treasury-engine/internal/domain/failure"
	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/platform/messaging/producers"
)

// FailureServiceImpl implements the FailureService interface
type FailureServiceImpl struct {
	failureRepo failure.Repository
	producer    producers.MessagePublisher
	logger      *slog.Logger
}

// NewFailureService creates a new failure service
func NewFailureService(logger *slog.Logger, failureRepo failure.Repository, producer producers.MessagePublisher) FailureService {
	return &FailureServiceImpl{
		failureRepo: failureRepo,
		producer:    producer,
		logger:      logger,
	}
}

// GetFailure retrieves one failure record. Returns nil if not found
func (s *FailureServiceImpl) GetFailure(ctx context.Context, tenantID, failureID uuid.UUID) (*failure.ProcessingFailure, error) {
	record, err := s.failureRepo.GetByID(ctx, tenantID, failureID)
	if err != nil {
		if errors.Is(err, failure.ErrFailureNotFound{}) {
			s.logger.Info("Failure record not found", "tenant_id", tenantID.String(), "failure_id", failureID.String())
			return nil, nil
		}
		s.logger.Error("Failed to get failure record", "tenant_id", tenantID.String(), "failure_id", failureID.String(), "error", err)
		return nil, err
	}
	return record, nil
}

// ListFailures retrieves a paginated failure history, newest first
func (s *FailureServiceImpl) ListFailures(ctx context.Context, tenantID uuid.UUID, unresolvedOnly bool, page, perPage int) ([]*failure.ProcessingFailure, int64, error) {
	offset := (page - 1) * perPage

	records, err := s.failureRepo.ListByTenant(ctx, tenantID, unresolvedOnly, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.failureRepo.CountByTenant(ctx, tenantID, unresolvedOnly)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ListFailuresByTransaction retrieves one transaction's failure history
func (s *FailureServiceImpl) ListFailuresByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) ([]*failure.ProcessingFailure, error) {
	return s.failureRepo.GetByTransactionID(ctx, tenantID, transactionID)
}

// ResolveFailure marks a failure record as handled
func (s *FailureServiceImpl) ResolveFailure(ctx context.Context, tenantID, failureID uuid.UUID) error {
	if err := s.failureRepo.MarkResolved(ctx, tenantID, failureID); err != nil {
		if !errors.Is(err, failure.ErrFailureNotFound{}) {
			s.logger.Error("Failed to resolve failure record", "tenant_id", tenantID.String(), "failure_id", failureID.String(), "error", err)
		}
		return err
	}

	s.logger.Info("Failure record resolved", "tenant_id", tenantID.String(), "failure_id", failureID.String())
	return nil
}

// RequeueTransaction republishes a payment transaction onto the payment
// topic. The processor's idempotency guard makes a requeue of an already
// converted transaction a harmless no-op.
func (s *FailureServiceImpl) RequeueTransaction(ctx context.Context, txn *payment.Transaction) error {
	key := txn.ID.String()
	if err := s.producer.Publish(ctx, key, txn); err != nil {
		s.logger.Error("Failed to requeue payment transaction",
			"tenant_id", txn.TenantID.String(),
			"transaction_id", txn.ID.String(),
			"error", err,
		)
		return err
	}

	s.logger.Info("Payment transaction requeued",
		"tenant_id", txn.TenantID.String(),
		"transaction_id", txn.ID.String(),
	)
	return nil
}
