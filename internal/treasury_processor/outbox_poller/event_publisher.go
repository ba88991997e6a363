package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bitstash-treasury-engine/internal/domain/outbox"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/platform/messaging/producers"
)

// EventPublisher publishes staged outbox messages to the purchase events topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent publishes a purchase event and marks the outbox row
// processed. Messages are keyed by tenant so one tenant's purchase events
// stay ordered within a partition.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	event, err := message.GetPurchaseEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal purchase event from outbox payload",
			"outbox_id", message.ID, "purchase_id", message.PurchaseID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	// Add correlation ID to logger
	logger := p.logger
	if event.CorrelationID != "" {
		logger = p.logger.With("correlation_id", event.CorrelationID)
	}

	logger.Info("Publishing purchase event",
		"outbox_id", message.ID,
		"purchase_id", event.PurchaseID.String(),
		"tenant_id", event.TenantID.String(),
	)

	if err := p.producer.Publish(ctx, event.TenantID.String(), event); err != nil {
		logger.Error("Failed to publish purchase event to Kafka",
			"outbox_id", message.ID, "purchase_id", event.PurchaseID.String(), "error", err,
		)
		return fmt.Errorf("failed to publish purchase event for outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "purchase_id", event.PurchaseID.String(), "error", err,
		)
		return fmt.Errorf("event for outbox %d published, but failed to mark it PROCESSED: %w", message.ID, err)
	}

	logger.Info("Purchase event published and marked as PROCESSED", "outbox_id", message.ID, "purchase_id", event.PurchaseID.String())
	return nil
}
