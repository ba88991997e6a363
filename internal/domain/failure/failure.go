package failure

import (
	"time"

	"github.com/google/uuid"

	"github.com/bitstash-treasury-engine/internal/domain/shared"
)

// ProcessingFailure is an append-only audit record of one terminal
// processing error. One record per terminal episode, not per retry attempt;
// the same transaction failing again later gets a fresh record.
type ProcessingFailure struct {
	ID            uuid.UUID              `json:"id" bson:"_id"`
	TenantID      uuid.UUID              `json:"tenant_id" bson:"tenant_id"`
	TransactionID uuid.UUID              `json:"transaction_id" bson:"transaction_id"`
	Leg           shared.ProcessingLeg   `json:"leg" bson:"leg"`
	Category      shared.FailureCategory `json:"category" bson:"category"`
	Message       string                 `json:"message" bson:"message"`
	CorrelationID string                 `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	IsResolved    bool                   `json:"is_resolved" bson:"is_resolved"`
	CreatedAt     time.Time              `json:"created_at" bson:"created_at"`
	ResolvedAt    *time.Time             `json:"resolved_at,omitempty" bson:"resolved_at,omitempty"`
}

// NewProcessingFailure creates an unresolved failure record.
func NewProcessingFailure(tenantID, transactionID uuid.UUID, leg shared.ProcessingLeg, category shared.FailureCategory, message, correlationID string) *ProcessingFailure {
	return &ProcessingFailure{
		ID:            uuid.New(),
		TenantID:      tenantID,
		TransactionID: transactionID,
		Leg:           leg,
		Category:      category,
		Message:       message,
		CorrelationID: correlationID,
		IsResolved:    false,
		CreatedAt:     time.Now(),
	}
}

// ErrFailureNotFound indicates a missing processing failure record
type ErrFailureNotFound struct {
	ID uuid.UUID
}

func (e ErrFailureNotFound) Error() string {
	return "processing failure not found: " + e.ID.String()
}

func (e ErrFailureNotFound) Is(target error) bool {
	t, ok := target.(ErrFailureNotFound)
	if !ok {
		return false
	}
	return t.ID == uuid.Nil || e.ID == t.ID
}
