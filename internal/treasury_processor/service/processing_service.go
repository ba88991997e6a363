package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/exchange"
	"github.com/bitstash-treasury-engine/internal/platform/persistence"
)

type ProcessingServiceImpl struct {
	pgDB            *persistence.PostgresDB
	evaluator       RuleEvaluator
	guard           IdempotencyGuard
	executor        ExchangeExecutor
	withdrawals     WithdrawalCoordinator
	purchaseRepo    treasury.PurchaseRepository
	outboxManager   OutboxManager
	failureRecorder FailureRecorder
	logger          *slog.Logger
}

func NewProcessingService(
	pgDB *persistence.PostgresDB,
	evaluator RuleEvaluator,
	guard IdempotencyGuard,
	executor ExchangeExecutor,
	withdrawals WithdrawalCoordinator,
	purchaseRepo treasury.PurchaseRepository,
	outboxManager OutboxManager,
	failureRecorder FailureRecorder,
	logger *slog.Logger,
) ProcessingService {
	return &ProcessingServiceImpl{
		pgDB:            pgDB,
		evaluator:       evaluator,
		guard:           guard,
		executor:        executor,
		withdrawals:     withdrawals,
		purchaseRepo:    purchaseRepo,
		outboxManager:   outboxManager,
		failureRecorder: failureRecorder,
		logger:          logger,
	}
}

// ProcessPayment handles the core logic for converting a share of one
// payment transaction to bitcoin.
//
// Error contract: a nil return acknowledges the message. Errors are
// returned only for infrastructure faults where a redelivery can succeed;
// business outcomes (no rule, ineligible payment, terminal exchange
// failure) are absorbed here so the consumer never spins on them.
func (s *ProcessingServiceImpl) ProcessPayment(ctx context.Context, txn *payment.Transaction) error {
	logger := s.logger
	if txn.CorrelationID != "" {
		logger = s.logger.With("correlation_id", txn.CorrelationID)
	}

	logger.Info("Processing payment transaction",
		"transaction_id", txn.ID.String(),
		"tenant_id", txn.TenantID.String(),
		"amount", txn.Amount.String(),
		"currency", txn.Currency,
	)

	// 1. Eligibility: opted-out, unsettled, or non-positive payments are a
	// silent no-op.
	if !txn.Eligible() {
		logger.Info("Payment not eligible for conversion, skipping",
			"transaction_id", txn.ID.String(),
			"status", string(txn.Status),
			"should_convert", txn.ShouldConvert,
		)
		return nil
	}

	// 2. Fast-path idempotency check against committed claims.
	processed, err := s.guard.AlreadyProcessed(ctx, txn.TenantID, txn.ID)
	if err != nil {
		return err // Let Kafka retry
	}
	if processed {
		logger.Info("Payment already processed, skipping", "transaction_id", txn.ID.String())
		return nil
	}

	// 3. Resolve the tenant's rule.
	rule, err := s.evaluator.ActiveRule(ctx, txn.TenantID)
	if err != nil {
		if errors.Is(err, treasury.ErrRuleNotFound{}) {
			logger.Info("Tenant has no active treasury rule, skipping", "tenant_id", txn.TenantID.String())
			return nil
		}
		if isRuleConfigError(err) {
			logger.Error("Tenant rule configuration is invalid",
				"tenant_id", txn.TenantID.String(), "error", err)
			if recordErr := s.failureRecorder.RecordFailure(ctx, txn, shared.LegPurchase, shared.FailureCategoryInvalidRule, err.Error()); recordErr != nil {
				logger.Error("Failed to record invalid rule failure", "transaction_id", txn.ID.String(), "error", recordErr)
			}
			return nil // Retrying cannot fix configuration
		}
		return err // Let Kafka retry
	}

	// 4. Begin database transaction
	var tx pgx.Tx
	tx, err = s.pgDB.Pool().Begin(ctx)
	if err != nil {
		logger.Error("Failed to begin database transaction", "transaction_id", txn.ID.String(), "error", err)
		return fmt.Errorf("failed to begin DB transaction for %s: %w", txn.ID.String(), err)
	}
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Panic recovered, rolling back transaction", "panic", p, "transaction_id", txn.ID.String())
			_ = tx.Rollback(ctx)
			panic(p) // Re-panic
		} else if err != nil {
			logger.Error("Error occurred, rolling back transaction", "error", err, "transaction_id", txn.ID.String())
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logger.Error("Failed to rollback transaction after error", "rollback_error", rbErr, "original_error", err, "transaction_id", txn.ID.String())
			}
		}
	}()

	// 5. Claim the transaction. Losing the claim means another replica owns
	// or owned this transaction.
	claimed, err := s.guard.Claim(ctx, tx, txn.TenantID, txn.ID)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Info("Payment claimed by another processor, skipping", "transaction_id", txn.ID.String())
		_ = tx.Rollback(ctx)
		return nil
	}

	// 6. Evaluate the rule. Threshold rules update the accumulator here,
	// under the claim, so redeliveries cannot double count.
	decision, err := s.evaluator.Decide(ctx, tx, rule, txn)
	if err != nil {
		return err
	}

	if !decision.Convert {
		// Commit the claim with no purchase attached: the payment is
		// consumed (threshold accumulation, or a percentage share below the
		// configured minimum).
		if err = tx.Commit(ctx); err != nil {
			logger.Error("Failed to commit no-conversion outcome", "transaction_id", txn.ID.String(), "error", err)
			return fmt.Errorf("failed to commit DB transaction for tx %s: %w", txn.ID.String(), err)
		}
		logger.Info("Payment consumed without conversion",
			"transaction_id", txn.ID.String(),
			"rule_type", string(rule.RuleType),
			"accumulator_balance", decision.AccumulatorBalance.String(),
		)
		return nil
	}

	// 7. Execute the purchase on the exchange. A failure here rolls the
	// claim and accumulator back, records the failure, and acknowledges the
	// message: the in-call retry budget is already spent and an operator
	// can requeue the transaction once the cause is fixed.
	purchase, execErr := s.executor.ExecutePurchase(ctx, rule, txn, decision.Amount)
	if execErr != nil {
		err = execErr // Trigger the deferred rollback
		logger.Error("Exchange purchase failed",
			"transaction_id", txn.ID.String(),
			"amount", decision.Amount.String(),
			"error", execErr,
		)
		if recordErr := s.failureRecorder.RecordFailure(ctx, txn, shared.LegPurchase, exchange.CategoryOf(execErr), execErr.Error()); recordErr != nil {
			logger.Error("Failed to record purchase failure", "transaction_id", txn.ID.String(), "error", recordErr)
		}
		return nil
	}

	// 8. Persist the purchase, link the claim, stage the event.
	if err = s.purchaseRepo.WithTx(tx).Create(ctx, purchase); err != nil {
		if errors.Is(err, treasury.ErrDuplicatePurchase{TenantID: txn.TenantID, TransactionID: txn.ID}) {
			logger.Warn("Purchase already exists for transaction, discarding duplicate", "transaction_id", txn.ID.String())
			err = nil
			_ = tx.Rollback(ctx)
			return nil
		}
		return err
	}
	if err = s.guard.AttachPurchase(ctx, tx, txn.TenantID, txn.ID, purchase.ID); err != nil {
		return err
	}
	if err = s.outboxManager.CreateOutboxEntry(ctx, tx, purchase, txn.CorrelationID); err != nil {
		return err
	}

	// 9. Commit transaction
	if err = tx.Commit(ctx); err != nil {
		logger.Error("Failed to commit database transaction",
			"transaction_id", txn.ID.String(),
			"purchase_id", purchase.ID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to commit DB transaction for tx %s: %w", txn.ID.String(), err)
	}

	logger.Info("Bitcoin purchase committed",
		"transaction_id", txn.ID.String(),
		"purchase_id", purchase.ID.String(),
		"amount_fiat", purchase.AmountFiat.String(),
		"bitcoin_amount", purchase.BitcoinAmount.String(),
		"status", string(purchase.Status),
	)

	// 10. Optional withdrawal, after the purchase is durable. Its failure
	// is isolated: the purchase above stays committed either way.
	if rule.WithdrawalAddress != "" {
		if _, wErr := s.withdrawals.ExecuteWithdrawal(ctx, rule, purchase, txn.CorrelationID); wErr != nil {
			logger.Error("Withdrawal failed after committed purchase",
				"transaction_id", txn.ID.String(),
				"purchase_id", purchase.ID.String(),
				"error", wErr,
			)
		}
	}

	return nil
}

// isRuleConfigError reports whether err is one of the rule validation
// errors, which are permanent for a given rule version.
func isRuleConfigError(err error) bool {
	return errors.Is(err, treasury.ErrInvalidRuleType) ||
		errors.Is(err, treasury.ErrInvalidPercentage) ||
		errors.Is(err, treasury.ErrInvalidThreshold) ||
		errors.Is(err, treasury.ErrInvalidBuffer) ||
		errors.Is(err, treasury.ErrInvalidPurchaseCap)
}
