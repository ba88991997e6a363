package producers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/bitstash-treasury-engine/internal/config"
)

// PaymentRequeueProducer republishes payment transactions onto the primary
// payment topic. The ops gateway uses it to replay transactions whose
// conversion failed after a failure has been investigated and resolved.
type PaymentRequeueProducer struct {
	logger *slog.Logger
	writer KafkaWriter // Interface for testability
	topic  string
}

// Creates a new requeue producer and ensures the payment topic exists
func NewPaymentRequeueProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*PaymentRequeueProducer, error) {
	if cfg.PaymentTopic == "" {
		return nil, fmt.Errorf("kafka payment topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for requeue producer: %w", err)
	}
	defer conn.Close()

	err = createKafkaTopicIfNotExists(conn, cfg.PaymentTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure payment topic %s exists for requeue producer: %w", cfg.PaymentTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.PaymentTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        false, // Requeues are operator actions so confirm each write
		WriteTimeout: cfg.MaxWait,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("Failed to write requeued payments", "topic", cfg.PaymentTopic, "error", err, "count", len(messages))
			} else {
				logger.Debug("Successfully wrote requeued payments", "topic", cfg.PaymentTopic, "count", len(messages))
			}
		},
	}

	return &PaymentRequeueProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.PaymentTopic,
	}, nil
}

func (p *PaymentRequeueProducer) Publish(ctx context.Context, key string, value interface{}) error {
	jsonValue, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message value for requeue producer: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: jsonValue,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to requeue payment transaction",
			"topic", p.topic,
			"key", key,
			"error", err,
		)
		return fmt.Errorf("failed to requeue payment transaction to %s: %w", p.topic, err)
	}

	p.logger.Debug("Requeued payment transaction",
		"topic", p.topic,
		"key", key,
	)
	return nil
}

func (p *PaymentRequeueProducer) Close() error {
	p.logger.Info("Closing payment requeue Kafka producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close requeue kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}
