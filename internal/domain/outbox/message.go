package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
)

// PurchaseEvent is the payload published to downstream consumers when a
// bitcoin purchase commits.
type PurchaseEvent struct {
	PurchaseID       uuid.UUID             `json:"purchase_id"`
	TenantID         uuid.UUID             `json:"tenant_id"`
	TransactionID    uuid.UUID             `json:"transaction_id"`
	AmountFiat       decimal.Decimal       `json:"amount_fiat"`
	Currency         string                `json:"currency"`
	BitcoinAmount    decimal.Decimal       `json:"bitcoin_amount"`
	PricePerBTC      decimal.Decimal       `json:"price_per_btc"`
	ExchangeProvider string                `json:"exchange_provider"`
	Status           shared.PurchaseStatus `json:"status"`
	CorrelationID    string                `json:"correlation_id,omitempty"`
	ExecutedAt       time.Time             `json:"executed_at"`
}

// Message stores a purchase event for reliable publishing. It is written in
// the same database transaction as the purchase row, so an event exists for
// every committed purchase and for nothing else.
type Message struct {
	ID            int64               `json:"id"`
	TenantID      uuid.UUID           `json:"tenant_id"`
	TransactionID uuid.UUID           `json:"transaction_id"`
	PurchaseID    uuid.UUID           `json:"purchase_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a committed purchase into a pending outbox message.
func NewMessage(purchase *treasury.BitcoinPurchase, correlationID string) (*Message, error) {
	event := PurchaseEvent{
		PurchaseID:       purchase.ID,
		TenantID:         purchase.TenantID,
		TransactionID:    purchase.TransactionID,
		AmountFiat:       purchase.AmountFiat,
		Currency:         purchase.Currency,
		BitcoinAmount:    purchase.BitcoinAmount,
		PricePerBTC:      purchase.PricePerBTC,
		ExchangeProvider: purchase.ExchangeProvider,
		Status:           purchase.Status,
		CorrelationID:    correlationID,
		ExecutedAt:       purchase.CreatedAt,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		TenantID:      purchase.TenantID,
		TransactionID: purchase.TransactionID,
		PurchaseID:    purchase.ID,
		Payload:       payload,
		Status:        shared.OutboxStatusPending,
		Attempts:      0,
		CreatedAt:     time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

// GetPurchaseEvent extracts the purchase event from the payload
func (m *Message) GetPurchaseEvent() (*PurchaseEvent, error) {
	var event PurchaseEvent
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
