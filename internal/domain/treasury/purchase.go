package treasury

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/domain/shared"
)

// BitcoinPurchase is the durable record of one conversion. There is at most
// one per (tenant, transaction): the transaction ID is the idempotency key.
// Rows are never deleted; the status may later move between filled and
// partially_filled if the exchange reports a settlement change.
type BitcoinPurchase struct {
	ID               uuid.UUID             `json:"id"`
	TenantID         uuid.UUID             `json:"tenant_id"`
	TransactionID    uuid.UUID             `json:"transaction_id"`
	AmountFiat       decimal.Decimal       `json:"amount_fiat"`
	Currency         string                `json:"currency"`
	BitcoinAmount    decimal.Decimal       `json:"bitcoin_amount"`
	PricePerBTC      decimal.Decimal       `json:"price_per_btc"`
	ExchangeProvider string                `json:"exchange_provider"`
	ExchangeOrderID  string                `json:"exchange_order_id"`
	Status           shared.PurchaseStatus `json:"status"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

// Accumulator is the per-tenant, per-rule running fiat balance used by
// threshold rules. It lives in the database, not in memory: it must survive
// restarts and serialize concurrent updates for the same tenant.
type Accumulator struct {
	TenantID  uuid.UUID       `json:"tenant_id"`
	RuleID    uuid.UUID       `json:"rule_id"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ErrPurchaseNotFound indicates no purchase exists for a transaction
type ErrPurchaseNotFound struct {
	TenantID      uuid.UUID
	TransactionID uuid.UUID
}

func (e ErrPurchaseNotFound) Error() string {
	return "bitcoin purchase not found for transaction: " + e.TransactionID.String()
}

// Is matches any ErrPurchaseNotFound when the target carries a nil
// transaction ID, mirroring errors.Is usage at call sites.
func (e ErrPurchaseNotFound) Is(target error) bool {
	t, ok := target.(ErrPurchaseNotFound)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TenantID == t.TenantID && e.TransactionID == t.TransactionID
}

// ErrDuplicatePurchase indicates the (tenant, transaction) uniqueness
// constraint was violated
type ErrDuplicatePurchase struct {
	TenantID      uuid.UUID
	TransactionID uuid.UUID
}

func (e ErrDuplicatePurchase) Error() string {
	return "duplicate bitcoin purchase for transaction: " + e.TransactionID.String()
}

// ErrRuleNotFound indicates the tenant has no active treasury rule
type ErrRuleNotFound struct {
	TenantID uuid.UUID
}

func (e ErrRuleNotFound) Error() string {
	return "no active treasury rule for tenant: " + e.TenantID.String()
}

func (e ErrRuleNotFound) Is(target error) bool {
	t, ok := target.(ErrRuleNotFound)
	if !ok {
		return false
	}
	return t.TenantID == uuid.Nil || e.TenantID == t.TenantID
}
