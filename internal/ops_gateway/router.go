package ops_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bitstash-treasury-engine/internal/ops_gateway/handler"
	"github.com/bitstash-treasury-engine/internal/ops_gateway/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	purchaseHandler *handler.PurchaseHandler,
	failureHandler *handler.FailureHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints, all tenant-scoped
	v1 := r.Group("/api/v1/tenants/:tenant_id")
	{
		// Treasury state queries
		v1.GET("/rules/active", purchaseHandler.GetActiveRule)
		v1.GET("/purchases", purchaseHandler.List)
		v1.GET("/purchases/:id", purchaseHandler.GetByID)
		v1.GET("/withdrawals", purchaseHandler.ListWithdrawals)

		// Source transaction lookups
		transactions := v1.Group("/transactions/:transaction_id")
		{
			transactions.GET("/purchase", purchaseHandler.GetByTransactionID)
			transactions.GET("/failures", failureHandler.ListByTransaction)
		}

		// Failure operations
		failures := v1.Group("/failures")
		{
			failures.GET("", failureHandler.List)
			failures.GET("/:id", failureHandler.GetByID)
			failures.POST("/:id/resolve", failureHandler.Resolve)
		}

		// Operator requeue of failed payments
		v1.POST("/requeue", failureHandler.Requeue)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
