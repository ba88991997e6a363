package shared

// PaymentStatus defines the settlement state of an incoming payment transaction
type PaymentStatus string

const (
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// RuleType defines how a treasury rule computes the conversion amount
type RuleType string

const (
	RuleTypePercentage RuleType = "percentage"
	RuleTypeThreshold  RuleType = "threshold"
)

// PurchaseStatus defines the fill state of an executed bitcoin purchase
type PurchaseStatus string

const (
	PurchaseStatusFilled          PurchaseStatus = "filled"
	PurchaseStatusPartiallyFilled PurchaseStatus = "partially_filled"
	PurchaseStatusFailed          PurchaseStatus = "failed"
)

// WithdrawalStatus defines the state of a bitcoin withdrawal attempt
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusFailed    WithdrawalStatus = "failed"
)

// ProcessingLeg identifies which stage of processing a failure belongs to
type ProcessingLeg string

const (
	LegPurchase   ProcessingLeg = "purchase"
	LegWithdrawal ProcessingLeg = "withdrawal"
)

// FailureCategory defines processing failure categories surfaced to operators
type FailureCategory string

const (
	FailureCategoryInsufficientFunds FailureCategory = "INSUFFICIENT_FUNDS"
	FailureCategoryOrderRejected     FailureCategory = "ORDER_REJECTED"
	FailureCategoryPriceUnavailable  FailureCategory = "PRICE_UNAVAILABLE"
	FailureCategoryNetworkError      FailureCategory = "NETWORK_ERROR"
	FailureCategoryInvalidRule       FailureCategory = "INVALID_RULE_CONFIG"
	FailureCategoryWithdrawalFailed  FailureCategory = "WITHDRAWAL_FAILED"
	FailureCategoryUnknown           FailureCategory = "UNKNOWN_ERROR"
)

// OutboxStatus defines purchase event publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)
