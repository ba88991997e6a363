package treasury

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/domain/shared"
)

// Withdrawal records one attempt to move purchased bitcoin to the tenant's
// configured address. Withdrawals are best-effort: a failure here never
// invalidates the purchase it belongs to.
type Withdrawal struct {
	ID                   uuid.UUID               `json:"id"`
	TenantID             uuid.UUID               `json:"tenant_id"`
	PurchaseID           uuid.UUID               `json:"purchase_id"`
	DestinationAddress   string                  `json:"destination_address"`
	BitcoinAmount        decimal.Decimal         `json:"bitcoin_amount"`
	Status               shared.WithdrawalStatus `json:"status"`
	ExchangeWithdrawalID string                  `json:"exchange_withdrawal_id,omitempty"`
	FailureMessage       string                  `json:"failure_message,omitempty"`
	CreatedAt            time.Time               `json:"created_at"`
	UpdatedAt            time.Time               `json:"updated_at"`
}

// NewWithdrawal creates a pending withdrawal for a completed purchase.
func NewWithdrawal(purchase *BitcoinPurchase, address string) *Withdrawal {
	now := time.Now()
	return &Withdrawal{
		ID:                 uuid.New(),
		TenantID:           purchase.TenantID,
		PurchaseID:         purchase.ID,
		DestinationAddress: address,
		BitcoinAmount:      purchase.BitcoinAmount,
		Status:             shared.WithdrawalStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// MarkCompleted transitions the withdrawal to completed with the exchange's
// withdrawal reference.
func (w *Withdrawal) MarkCompleted(exchangeWithdrawalID string) {
	w.Status = shared.WithdrawalStatusCompleted
	w.ExchangeWithdrawalID = exchangeWithdrawalID
	w.UpdatedAt = time.Now()
}

// MarkFailed transitions the withdrawal to failed, keeping the upstream
// error text for operators.
func (w *Withdrawal) MarkFailed(message string) {
	w.Status = shared.WithdrawalStatusFailed
	w.FailureMessage = message
	w.UpdatedAt = time.Now()
}

// ErrWithdrawalNotFound indicates a missing withdrawal row
type ErrWithdrawalNotFound struct {
	ID uuid.UUID
}

func (e ErrWithdrawalNotFound) Error() string {
	return "withdrawal not found: " + e.ID.String()
}
