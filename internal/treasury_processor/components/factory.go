package components

import (
	"log/slog"

	"github.com/bitstash-treasury-engine/internal/config"
	"github.com/bitstash-treasury-engine/internal/domain/failure"
	"github.com/bitstash-treasury-engine/internal/domain/outbox"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/exchange"
	"github.com/bitstash-treasury-engine/internal/platform/persistence"
	"github.com/bitstash-treasury-engine/internal/treasury_processor/service"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	ruleRepo treasury.RuleRepository,
	purchaseRepo treasury.PurchaseRepository,
	claimRepo treasury.ClaimRepository,
	accRepo treasury.AccumulatorRepository,
	withdrawalRepo treasury.WithdrawalRepository,
	outboxRepo outbox.Repository,
	failureRepo failure.Repository,
	exchangeFactory *exchange.Factory,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	retryPolicy := exchange.RetryPolicy{
		MaxRetries:     cfg.Exchange.Retry.MaxRetries,
		InitialBackoff: cfg.Exchange.Retry.InitialBackoff,
		MaxBackoff:     cfg.Exchange.Retry.MaxBackoff,
	}

	evaluator := NewRuleEvaluator(ruleRepo, accRepo, logger)
	guard := NewIdempotencyGuard(claimRepo, logger)
	executor := NewExchangeExecutor(exchangeFactory, retryPolicy, cfg.Exchange.Pair, logger)
	withdrawals := NewWithdrawalCoordinator(exchangeFactory, withdrawalRepo, failureRepo, logger)
	outboxManager := NewOutboxManager(outboxRepo, logger)
	failureRecorder := NewFailureRecorder(failureRepo, logger)

	baseService := service.NewProcessingService(
		pgDB,
		evaluator,
		guard,
		executor,
		withdrawals,
		purchaseRepo,
		outboxManager,
		failureRecorder,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}
