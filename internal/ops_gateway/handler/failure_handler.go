package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/domain/failure"
	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/ops_gateway/middleware"
	"github.com/bitstash-treasury-engine/internal/ops_gateway/service"
)

// FailureHandler handles HTTP requests for failure operations
type FailureHandler struct {
	failureService service.FailureService
	logger         *slog.Logger
}

// NewFailureHandler creates a new failure handler
func NewFailureHandler(logger *slog.Logger, failureService service.FailureService) *FailureHandler {
	return &FailureHandler{
		failureService: failureService,
		logger:         logger,
	}
}

// List retrieves paginated failure history for a tenant
func (h *FailureHandler) List(c *gin.Context) {
	tenantID, ok := parseTenantID(c, h.logger)
	if !ok {
		return
	}

	var params FailureListParams
	if err := c.ShouldBindQuery(&params); err != nil {
		h.logger.Error("Invalid failure list parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters")
		return
	}

	records, total, err := h.failureService.ListFailures(c.Request.Context(), tenantID, params.Unresolved, params.Page, params.PerPage)
	if err != nil {
		h.logger.Error("Failed to list failures", "tenant_id", tenantID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	var responses []FailureResponse
	for _, r := range records {
		responses = append(responses, mapFailureToResponse(r))
	}

	RespondWithPaginatedData(c, http.StatusOK, responses, params.Page, params.PerPage, int(total))
}

// GetByID retrieves failure details, returns 404 if not found
func (h *FailureHandler) GetByID(c *gin.Context) {
	tenantID, ok := parseTenantID(c, h.logger)
	if !ok {
		return
	}

	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid failure ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid failure ID")
		return
	}

	record, err := h.failureService.GetFailure(c.Request.Context(), tenantID, id)
	if err != nil {
		h.logger.Error("Failed to get failure", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	if record == nil {
		RespondNotFound(c, "Failure not found")
		return
	}

	RespondOK(c, mapFailureToResponse(record))
}

// ListByTransaction retrieves the failure history of one source transaction
func (h *FailureHandler) ListByTransaction(c *gin.Context) {
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

	records, err := h.failureService.ListFailuresByTransaction(c.Request.Context(), tenantID, transactionID)
	if err != nil {
		h.logger.Error("Failed to list failures by transaction", "transaction_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	var responses []FailureResponse
	for _, r := range records {
		responses = append(responses, mapFailureToResponse(r))
	}

	RespondOK(c, responses)
}

// Resolve marks a failure record as handled, returns 404 if not found
func (h *FailureHandler) Resolve(c *gin.Context) {
	tenantID, ok := parseTenantID(c, h.logger)
	if !ok {
		return
	}

	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid failure ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid failure ID")
		return
	}

	if err := h.failureService.ResolveFailure(c.Request.Context(), tenantID, id); err != nil {
		if errors.Is(err, failure.ErrFailureNotFound{}) {
			RespondNotFound(c, "Failure not found")
			return
		}
		h.logger.Error("Failed to resolve failure", "id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	RespondNoContent(c)
}

// Requeue republishes a payment transaction for reprocessing. The processor
// will claim it again only if the original processing rolled back.
func (h *FailureHandler) Requeue(c *gin.Context) {
	tenantID, ok := parseTenantID(c, h.logger)
	if !ok {
		return
	}

	var req RequeueTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	transactionID, err := uuid.Parse(req.TransactionID)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "transaction_id", req.TransactionID, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		h.logger.Error("Invalid amount", "amount", req.Amount, "error", err)
		RespondBadRequest(c, "Invalid amount")
		return
	}

	txn := &payment.Transaction{
		ID:            transactionID,
		TenantID:      tenantID,
		Amount:        amount,
		Currency:      req.Currency,
		Status:        shared.PaymentStatus(req.Status),
		ShouldConvert: req.ShouldConvert,
		CorrelationID: middleware.GetCorrelationID(c),
		CreatedAt:     time.Now(),
	}

	if err := h.failureService.RequeueTransaction(c.Request.Context(), txn); err != nil {
		h.logger.Error("Failed to requeue transaction", "transaction_id", req.TransactionID, "error", err)
		RespondInternalError(c)
		return
	}

	RespondAccepted(c, gin.H{
		"transaction_id": transactionID.String(),
		"status":         "requeued",
	})
}

// mapFailureToResponse maps a processing failure to its response DTO
func mapFailureToResponse(f *failure.ProcessingFailure) FailureResponse {
	response := FailureResponse{
		ID:            f.ID.String(),
		TenantID:      f.TenantID.String(),
		TransactionID: f.TransactionID.String(),
		Leg:           string(f.Leg),
		Category:      string(f.Category),
		Message:       f.Message,
		CorrelationID: f.CorrelationID,
		IsResolved:    f.IsResolved,
		CreatedAt:     f.CreatedAt.Format(time.RFC3339),
	}

	if f.ResolvedAt != nil {
		response.ResolvedAt = f.ResolvedAt.Format(time.RFC3339)
	}

	return response
}
