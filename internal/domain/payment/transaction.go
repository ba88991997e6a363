package payment

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/domain/shared"
)

// Transaction is a confirmed payment event delivered by the ingestion layer.
// It is immutable from the engine's point of view: the engine only decides
// whether a share of it converts to bitcoin.
type Transaction struct {
	ID            uuid.UUID            `json:"id"`
	TenantID      uuid.UUID            `json:"tenant_id"`
	Amount        decimal.Decimal      `json:"amount"`
	Currency      string               `json:"currency"`
	Status        shared.PaymentStatus `json:"status"`
	ShouldConvert bool                 `json:"should_convert"`
	Metadata      json.RawMessage      `json:"metadata,omitempty"`
	CorrelationID string               `json:"correlation_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
}

// Eligible reports whether the transaction qualifies for treasury conversion
// at all. Ineligible transactions are a no-op, never an error.
func (t *Transaction) Eligible() bool {
	return t.ShouldConvert && t.Status == shared.PaymentStatusSucceeded && t.Amount.IsPositive()
}

// minorUnits maps currency codes to their minor unit exponent. Conversion
// amounts are rounded once, at this precision, at the end of evaluation.
var minorUnits = map[string]int32{
	"JPY": 0,
	"KRW": 0,
}

// MinorUnits returns the number of decimal places for the given currency
// code, defaulting to 2.
func MinorUnits(currency string) int32 {
	if exp, ok := minorUnits[currency]; ok {
		return exp
	}
	return 2
}
