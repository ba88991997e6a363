package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/bitstash-treasury-engine/internal/domain/outbox"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/treasury_processor/service"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateOutboxEntry stages a purchase event in the same database
// transaction as the purchase row, so an event exists exactly when the
// purchase commits.
func (m *OutboxManagerImpl) CreateOutboxEntry(ctx context.Context, tx pgx.Tx, purchase *treasury.BitcoinPurchase, correlationID string) error {
	logger := m.logger
	if correlationID != "" {
		logger = m.logger.With("correlation_id", correlationID)
	}

	message, err := outbox.NewMessage(purchase, correlationID)
	if err != nil {
		logger.Error("Failed to create outbox message payload",
			"purchase_id", purchase.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for purchase %s: %w", purchase.ID.String(), err)
	}

	if err = m.outboxRepo.WithTx(tx).Create(ctx, message); err != nil {
		logger.Error("Failed to create outbox message",
			"purchase_id", purchase.ID.String(),
			"transaction_id", purchase.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for purchase %s: %w", purchase.ID.String(), err)
	}

	logger.Info("Outbox message created successfully",
		"purchase_id", purchase.ID.String(),
		"outbox_id", message.ID,
	)

	return nil
}
