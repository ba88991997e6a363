package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bitstash-treasury-engine/internal/config"
	"github.com/bitstash-treasury-engine/internal/data/mongo"
	"github.com/bitstash-treasury-engine/internal/data/postgres"
	"github.com/bitstash-treasury-engine/internal/logger"
	"github.com/bitstash-treasury-engine/internal/ops_gateway"
	"github.com/bitstash-treasury-engine/internal/ops_gateway/service"
	"github.com/bitstash-treasury-engine/internal/platform/messaging/producers"
	"github.com/bitstash-treasury-engine/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ops_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer for operator requeues (publishes to the payment topic)
	requeueProducer, err := producers.NewPaymentRequeueProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize requeue Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	ruleRepo := postgres.NewRuleRepository(log, postgresDB)
	purchaseRepo := postgres.NewPurchaseRepository(log, postgresDB)
	withdrawalRepo := postgres.NewWithdrawalRepository(log, postgresDB)
	accRepo := postgres.NewAccumulatorRepository(log, postgresDB)
	failureRepo := mongo.NewFailureRepository(log, mongoDB.Database())

	// Initialize services
	queryService := service.NewTreasuryQueryService(log, ruleRepo, purchaseRepo, withdrawalRepo, accRepo)
	failureService := service.NewFailureService(log, failureRepo, requeueProducer)

	// Initialize REST server
	server := ops_gateway.NewServer(log, cfg, queryService, failureService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = requeueProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
