package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/ops_gateway/service"
)

// PurchaseHandler handles HTTP requests for treasury state queries
type PurchaseHandler struct {
	queryService service.TreasuryQueryService
	logger       *slog.Logger
}

// NewPurchaseHandler creates a new purchase handler
func NewPurchaseHandler(logger *slog.Logger, queryService service.TreasuryQueryService) *PurchaseHandler {
	return &PurchaseHandler{
		queryService: queryService,
		logger:       logger,
	}
}

// List retrieves paginated purchase history for a tenant
func (h *PurchaseHandler) List(c *gin.Context) {
	tenantID, ok := parseTenantID(c, h.logger)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	purchases, total, err := h.queryService.ListPurchases(c.Request.Context(), tenantID, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list purchases", "tenant_id", tenantID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	var responses []PurchaseResponse
	for _, p := range purchases {
		responses = append(responses, mapPurchaseToResponse(p))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, pagination.Page, pagination.PerPage, int(total))
}

// GetByID retrieves purchase details, returns 404 if not found
func (h *PurchaseHandler) GetByID(c *gin.Context) {
	tenantID, ok := parseTenantID(c, h.logger)
	if !ok {
		return
	}

	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid purchase ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid purchase ID")
		return
	}

	purchase, err := h.queryService.GetPurchase(c.Request.Context(), tenantID, id)
	if err != nil {
		h.logger.Error("Failed to get purchase", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	if purchase == nil {
		RespondNotFound(c, "Purchase not found")
		return
	}

	RespondOK(c, mapPurchaseToResponse(purchase))
}

// GetByTransactionID retrieves the purchase produced by a source payment
// transaction, returns 404 if the transaction never converted
func (h *PurchaseHandler) GetByTransactionID(c *gin.Context) {
	tenantID, ok := parseTenantID(c, h.logger)
	if !ok {
		return
	}

	idParam := c.Param("transaction_id")
	transactionID, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "transaction_id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	purchase, err := h.queryService.GetPurchaseByTransaction(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		h.logger.Error("Failed to get purchase by transaction", "transaction_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	if purchase == nil {
		RespondNotFound(c, "No purchase for transaction")
		return
	}

	RespondOK(c, mapPurchaseToResponse(purchase))
}

// ListWithdrawals retrieves a tenant's withdrawal attempts
func (h *PurchaseHandler) ListWithdrawals(c *gin.Context) {
	tenantID, ok := parseTenantID(c, h.logger)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	withdrawals, err := h.queryService.ListWithdrawals(c.Request.Context(), tenantID, pagination.Page, pagination.PerPage)
	if err != nil {
		h.logger.Error("Failed to list withdrawals", "tenant_id", tenantID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	var responses []WithdrawalResponse
	for _, w := range withdrawals {
		responses = append(responses, mapWithdrawalToResponse(w))
	}

	RespondOK(c, responses)
}

// GetActiveRule retrieves the tenant's active treasury rule along with its
// accumulator balance for threshold rules
func (h *PurchaseHandler) GetActiveRule(c *gin.Context) {
	tenantID, ok := parseTenantID(c, h.logger)
	if !ok {
		return
	}

	rule, err := h.queryService.GetActiveRule(c.Request.Context(), tenantID)
	if err != nil {
		h.logger.Error("Failed to get active rule", "tenant_id", tenantID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	if rule == nil {
		RespondNotFound(c, "No active treasury rule")
		return
	}

	response := mapRuleToResponse(rule)
	if acc, err := h.queryService.GetAccumulator(c.Request.Context(), tenantID, rule.ID); err == nil && acc != nil {
		response.AccumulatorBalance = acc.Balance.String()
	}

	RespondOK(c, response)
}

// parseTenantID extracts and validates the tenant path parameter
func parseTenantID(c *gin.Context, logger *slog.Logger) (uuid.UUID, bool) {
	tenantParam := c.Param("tenant_id")
	tenantID, err := uuid.Parse(tenantParam)
	if err != nil {
		logger.Error("Invalid tenant ID", "tenant_id", tenantParam, "error", err)
		RespondBadRequest(c, "Invalid tenant ID")
		return uuid.Nil, false
	}
	return tenantID, true
}

// mapPurchaseToResponse maps a purchase to its response DTO
func mapPurchaseToResponse(p *treasury.BitcoinPurchase) PurchaseResponse {
	return PurchaseResponse{
		ID:               p.ID.String(),
		TenantID:         p.TenantID.String(),
		TransactionID:    p.TransactionID.String(),
		AmountFiat:       p.AmountFiat.String(),
		Currency:         p.Currency,
		BitcoinAmount:    p.BitcoinAmount.String(),
		PricePerBTC:      p.PricePerBTC.String(),
		ExchangeProvider: p.ExchangeProvider,
		ExchangeOrderID:  p.ExchangeOrderID,
		Status:           string(p.Status),
		CreatedAt:        p.CreatedAt.Format(time.RFC3339),
	}
}

// mapWithdrawalToResponse maps a withdrawal to its response DTO
func mapWithdrawalToResponse(w *treasury.Withdrawal) WithdrawalResponse {
	return WithdrawalResponse{
		ID:                   w.ID.String(),
		TenantID:             w.TenantID.String(),
		PurchaseID:           w.PurchaseID.String(),
		DestinationAddress:   w.DestinationAddress,
		BitcoinAmount:        w.BitcoinAmount.String(),
		Status:               string(w.Status),
		ExchangeWithdrawalID: w.ExchangeWithdrawalID,
		FailureMessage:       w.FailureMessage,
		CreatedAt:            w.CreatedAt.Format(time.RFC3339),
	}
}

// mapRuleToResponse maps a treasury rule to its response DTO
func mapRuleToResponse(r *treasury.Rule) RuleResponse {
	response := RuleResponse{
		ID:                r.ID.String(),
		TenantID:          r.TenantID.String(),
		RuleType:          string(r.RuleType),
		WithdrawalAddress: r.WithdrawalAddress,
		ExchangeProvider:  r.ExchangeProvider,
		IsActive:          r.IsActive,
	}

	if r.ConversionPercentage.IsPositive() {
		response.ConversionPercentage = r.ConversionPercentage.String()
	}
	if r.ThresholdAmount.IsPositive() {
		response.ThresholdAmount = r.ThresholdAmount.String()
	}
	if r.BufferAmount.IsPositive() {
		response.BufferAmount = r.BufferAmount.String()
	}
	if r.HasMinimum() {
		response.MinimumPurchase = r.MinimumPurchase.String()
	}
	if r.HasMaximum() {
		response.MaximumPurchase = r.MaximumPurchase.String()
	}

	return response
}
