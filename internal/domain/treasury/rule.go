package treasury

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
)

// Rule configuration errors. These are permanent: retrying a transaction
// against a malformed rule cannot succeed.
var (
	ErrInvalidRuleType    = errors.New("unknown treasury rule type")
	ErrInvalidPercentage  = errors.New("conversion percentage must be greater than 0 and less than 100")
	ErrInvalidThreshold   = errors.New("threshold amount must be positive")
	ErrInvalidBuffer      = errors.New("buffer amount must be non-negative and less than the threshold")
	ErrInvalidPurchaseCap = errors.New("maximum purchase must not be below minimum purchase")
)

// Rule is a tenant's treasury configuration: how much of each incoming
// payment converts to bitcoin. Rules are created by tenant admins and are
// read-only to the engine.
type Rule struct {
	ID                   uuid.UUID       `json:"id"`
	TenantID             uuid.UUID       `json:"tenant_id"`
	RuleType             shared.RuleType `json:"rule_type"`
	ConversionPercentage decimal.Decimal `json:"conversion_percentage"`
	ThresholdAmount      decimal.Decimal `json:"threshold_amount"`
	BufferAmount         decimal.Decimal `json:"buffer_amount"`
	MinimumPurchase      decimal.Decimal `json:"minimum_purchase"`
	MaximumPurchase      decimal.Decimal `json:"maximum_purchase"`
	WithdrawalAddress    string          `json:"withdrawal_address,omitempty"`
	IsActive             bool            `json:"is_active"`
	ExchangeProvider     string          `json:"exchange_provider"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

var oneHundred = decimal.NewFromInt(100)

// Validate checks the rule configuration for values the evaluator cannot
// work with.
func (r *Rule) Validate() error {
	switch r.RuleType {
	case shared.RuleTypePercentage:
		if !r.ConversionPercentage.IsPositive() || r.ConversionPercentage.GreaterThanOrEqual(oneHundred) {
			return ErrInvalidPercentage
		}
	case shared.RuleTypeThreshold:
		if !r.ThresholdAmount.IsPositive() {
			return ErrInvalidThreshold
		}
		if r.BufferAmount.IsNegative() || r.BufferAmount.GreaterThanOrEqual(r.ThresholdAmount) {
			return ErrInvalidBuffer
		}
	default:
		return ErrInvalidRuleType
	}

	if r.MaximumPurchase.IsPositive() && r.MinimumPurchase.GreaterThan(r.MaximumPurchase) {
		return ErrInvalidPurchaseCap
	}

	return nil
}

// HasMinimum reports whether a minimum purchase amount is configured.
func (r *Rule) HasMinimum() bool {
	return r.MinimumPurchase.IsPositive()
}

// HasMaximum reports whether a maximum purchase ceiling is configured.
func (r *Rule) HasMaximum() bool {
	return r.MaximumPurchase.IsPositive()
}

// PercentageAmount computes the fiat amount to convert for a percentage
// rule. Returns the rounded amount and false when the rule decides not to
// convert (computed amount below the configured minimum).
//
// Math is exact until the very end: the maximum cap is applied to the raw
// amount, then a single half-up rounding at the currency's minor unit.
func (r *Rule) PercentageAmount(txAmount decimal.Decimal, currency string) (decimal.Decimal, bool) {
	amount := txAmount.Mul(r.ConversionPercentage).Div(oneHundred)

	if r.HasMinimum() && amount.LessThan(r.MinimumPurchase) {
		return decimal.Zero, false
	}
	if r.HasMaximum() && amount.GreaterThan(r.MaximumPurchase) {
		amount = r.MaximumPurchase
	}

	// decimal.Round is round-half-away-from-zero, which is half-up for the
	// non-negative amounts reachable here.
	amount = amount.Round(payment.MinorUnits(currency))
	if !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}

// ThresholdTriggered reports whether the accumulated balance has reached the
// conversion trigger point. The buffer lowers the trigger so conversion can
// start slightly before the nominal threshold; a zero buffer triggers at the
// threshold exactly.
func (r *Rule) ThresholdTriggered(balance decimal.Decimal) bool {
	return balance.GreaterThanOrEqual(r.ThresholdAmount.Sub(r.BufferAmount))
}

// ThresholdAmountFor computes the fiat amount converted when txAmount pushed
// the accumulator past the trigger: the full crossing transaction's amount,
// capped by the configured maximum, rounded half-up at the currency's minor
// unit. The accumulator resets to zero afterwards.
func (r *Rule) ThresholdAmountFor(txAmount decimal.Decimal, currency string) (decimal.Decimal, bool) {
	amount := txAmount
	if r.HasMaximum() && amount.GreaterThan(r.MaximumPurchase) {
		amount = r.MaximumPurchase
	}

	amount = amount.Round(payment.MinorUnits(currency))
	if !amount.IsPositive() {
		return decimal.Zero, false
	}
	return amount, true
}
