package handler

// PurchaseResponse represents a bitcoin purchase in API responses
type PurchaseResponse struct {
	ID               string `json:"id"`
	TenantID         string `json:"tenant_id"`
	TransactionID    string `json:"transaction_id"`
	AmountFiat       string `json:"amount_fiat"`
	Currency         string `json:"currency"`
	BitcoinAmount    string `json:"bitcoin_amount"`
	PricePerBTC      string `json:"price_per_btc"`
	ExchangeProvider string `json:"exchange_provider"`
	ExchangeOrderID  string `json:"exchange_order_id"`
	Status           string `json:"status"`
	CreatedAt        string `json:"created_at"`
}

// WithdrawalResponse represents a withdrawal attempt in API responses
type WithdrawalResponse struct {
	ID                   string `json:"id"`
	TenantID             string `json:"tenant_id"`
	PurchaseID           string `json:"purchase_id"`
	DestinationAddress   string `json:"destination_address"`
	BitcoinAmount        string `json:"bitcoin_amount"`
	Status               string `json:"status"`
	ExchangeWithdrawalID string `json:"exchange_withdrawal_id,omitempty"`
	FailureMessage       string `json:"failure_message,omitempty"`
	CreatedAt            string `json:"created_at"`
}

// RuleResponse represents a treasury rule in API responses
type RuleResponse struct {
	ID                   string `json:"id"`
	TenantID             string `json:"tenant_id"`
	RuleType             string `json:"rule_type"`
	ConversionPercentage string `json:"conversion_percentage,omitempty"`
	ThresholdAmount      string `json:"threshold_amount,omitempty"`
	BufferAmount         string `json:"buffer_amount,omitempty"`
	MinimumPurchase      string `json:"minimum_purchase,omitempty"`
	MaximumPurchase      string `json:"maximum_purchase,omitempty"`
	WithdrawalAddress    string `json:"withdrawal_address,omitempty"`
	ExchangeProvider     string `json:"exchange_provider"`
	IsActive             bool   `json:"is_active"`
	AccumulatorBalance   string `json:"accumulator_balance,omitempty"`
}

// FailureResponse represents a processing failure in API responses
type FailureResponse struct {
	ID            string `json:"id"`
	TenantID      string `json:"tenant_id"`
	TransactionID string `json:"transaction_id"`
	Leg           string `json:"leg"`
	Category      string `json:"category"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlation_id,omitempty"`
	IsResolved    bool   `json:"is_resolved"`
	CreatedAt     string `json:"created_at"`
	ResolvedAt    string `json:"resolved_at,omitempty"`
}

// RequeueTransactionRequest carries the payment transaction an operator
// wants reprocessed. The payload mirrors the payment topic schema.
type RequeueTransactionRequest struct {
	TransactionID string `json:"transaction_id" binding:"required,uuid"`
	Amount        string `json:"amount" binding:"required"`
	Currency      string `json:"currency" binding:"required,len=3"`
	Status        string `json:"status" binding:"required,oneof=succeeded pending failed refunded"`
	ShouldConvert bool   `json:"should_convert"`
}

// FailureListParams represents query parameters for listing failures
type FailureListParams struct {
	Unresolved bool `form:"unresolved,default=false"`
	Page       int  `form:"page,default=1" binding:"min=1"`
	PerPage    int  `form:"per_page,default=10" binding:"min=1,max=100"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}
