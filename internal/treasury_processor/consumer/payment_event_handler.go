package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/platform/messaging/producers"
	"github.com/bitstash-treasury-engine/internal/treasury_processor/service"
)

// PaymentEventHandler handles incoming payment transaction messages from Kafka
type PaymentEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewPaymentEventHandler creates a new handler
func NewPaymentEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *PaymentEventHandler {
	return &PaymentEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *PaymentEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var txn payment.Transaction
	if err := json.Unmarshal(value, &txn); err != nil {
		return h.sendToDLQ(ctx, key, value, fmt.Sprintf("Failed to unmarshal payment transaction: %s", err.Error()), err)
	}

	// Structurally broken payloads can never process; park them instead of
	// redelivering forever.
	if txn.ID == uuid.Nil || txn.TenantID == uuid.Nil {
		reason := "Payment transaction is missing id or tenant_id"
		return h.sendToDLQ(ctx, key, value, reason, fmt.Errorf("%s", reason))
	}

	// Add correlation ID to logger
	logger := h.logger
	if txn.CorrelationID != "" {
		logger = h.logger.With("correlation_id", txn.CorrelationID)
	}

	logger.Info("Received payment transaction for processing",
		"transaction_id", txn.ID.String(),
		"tenant_id", txn.TenantID.String(),
		"amount", txn.Amount.String(),
		"currency", txn.Currency,
	)

	if err := h.processingService.ProcessPayment(ctx, &txn); err != nil {
		logger.Error("Failed to process payment transaction",
			"transaction_id", txn.ID.String(),
			"tenant_id", txn.TenantID.String(),
			"error", err,
		)
		return fmt.Errorf("processing payment %s failed: %w", txn.ID.String(), err)
	}

	logger.Info("Successfully processed payment transaction", "transaction_id", txn.ID.String())
	return nil // Success, commit offset
}

// sendToDLQ parks an unprocessable message. When the DLQ is disabled or the
// publish fails, the original error is returned so Kafka redelivers.
func (h *PaymentEventHandler) sendToDLQ(ctx context.Context, key []byte, value []byte, reason string, cause error) error {
	h.logger.Error("Unprocessable payment message",
		"message_key", string(key),
		"reason", reason,
	)

	if h.producer != nil {
		if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, reason); dlqErr != nil {
			h.logger.Error("Failed to publish message to DLQ",
				"dlq_error", dlqErr,
				"original_error", cause,
				"message_key", string(key),
			)
		} else {
			h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", reason)
			// Message handled, commit offset
			return nil
		}
	}
	// Allow Kafka retries
	return fmt.Errorf("unprocessable payment message: %w", cause)
}
