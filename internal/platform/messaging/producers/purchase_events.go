package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/bitstash-treasury-engine/internal/config"
)

// PurchaseEventProducer publishes committed Bitcoin purchase events for
// downstream consumers (tenant notifications, reporting). The outbox poller
// is its only caller, so writes are synchronous: an unacknowledged event
// must keep its outbox entry pending.
type PurchaseEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// Creates a new purchase event producer and ensures the topic exists
func NewPurchaseEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*PurchaseEventProducer, error) {
	if cfg.PurchaseEventsTopic == "" {
		return nil, fmt.Errorf("kafka purchase events topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for purchase event producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.PurchaseEventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure purchase events topic %s exists: %w", cfg.PurchaseEventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.PurchaseEventsTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write purchase events", "topic", cfg.PurchaseEventsTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote purchase events", "topic", cfg.PurchaseEventsTopic, "count", len(messages))
			}
		},
	}

	return &PurchaseEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.PurchaseEventsTopic,
	}, nil
}

func (p *PurchaseEventProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal purchase event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish purchase event",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to publish purchase event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published purchase event",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *PurchaseEventProducer) Close() error {
	p.logger.Info("Closing purchase event Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close purchase event kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
