package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bitstash-treasury-engine/internal/domain/failure"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/treasury_processor/service"
)

type WithdrawalCoordinatorImpl struct {
	resolver       ClientResolver
	withdrawalRepo treasury.WithdrawalRepository
	failureRepo    failure.Repository
	logger         *slog.Logger
}

func NewWithdrawalCoordinator(
	resolver ClientResolver,
	withdrawalRepo treasury.WithdrawalRepository,
	failureRepo failure.Repository,
	logger *slog.Logger,
) service.WithdrawalCoordinator {
	return &WithdrawalCoordinatorImpl{
		resolver:       resolver,
		withdrawalRepo: withdrawalRepo,
		failureRepo:    failureRepo,
		logger:         logger,
	}
}

// ExecuteWithdrawal moves the purchased bitcoin to the rule's configured
// address. One attempt, no retries: a withdrawal whose outcome is unknown
// must not be reissued. Failures are recorded against the purchase's
// source transaction and the purchase itself stays valid.
func (c *WithdrawalCoordinatorImpl) ExecuteWithdrawal(ctx context.Context, rule *treasury.Rule, purchase *treasury.BitcoinPurchase, correlationID string) (*treasury.Withdrawal, error) {
	logger := c.logger
	if correlationID != "" {
		logger = c.logger.With("correlation_id", correlationID)
	}

	withdrawal := treasury.NewWithdrawal(purchase, rule.WithdrawalAddress)
	if err := c.withdrawalRepo.Create(ctx, withdrawal); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal record for purchase %s: %w", purchase.ID.String(), err)
	}

	client, err := c.resolver.ClientFor(purchase.ExchangeProvider)
	if err != nil {
		c.recordFailure(ctx, logger, withdrawal, purchase, correlationID, err.Error())
		return withdrawal, err
	}

	result, err := client.Withdraw(ctx, purchase.BitcoinAmount, rule.WithdrawalAddress)
	if err != nil {
		c.recordFailure(ctx, logger, withdrawal, purchase, correlationID, err.Error())
		return withdrawal, err
	}

	withdrawal.MarkCompleted(result.WithdrawalID)
	if err := c.withdrawalRepo.Update(ctx, withdrawal); err != nil {
		logger.Error("Withdrawal succeeded at exchange but status update failed",
			"withdrawal_id", withdrawal.ID.String(),
			"exchange_withdrawal_id", result.WithdrawalID,
			"error", err,
		)
		return withdrawal, err
	}

	logger.Info("Withdrawal completed",
		"withdrawal_id", withdrawal.ID.String(),
		"purchase_id", purchase.ID.String(),
		"bitcoin_amount", withdrawal.BitcoinAmount.String(),
		"exchange_withdrawal_id", result.WithdrawalID,
	)
	return withdrawal, nil
}

// recordFailure marks the withdrawal failed and writes the audit record.
// Both writes are best effort at this point; the purchase is already
// committed and must not be disturbed.
func (c *WithdrawalCoordinatorImpl) recordFailure(ctx context.Context, logger *slog.Logger, withdrawal *treasury.Withdrawal, purchase *treasury.BitcoinPurchase, correlationID, message string) {
	withdrawal.MarkFailed(message)
	if err := c.withdrawalRepo.Update(ctx, withdrawal); err != nil {
		logger.Error("Failed to mark withdrawal as failed",
			"withdrawal_id", withdrawal.ID.String(),
			"error", err,
		)
	}

	record := failure.NewProcessingFailure(
		purchase.TenantID,
		purchase.TransactionID,
		shared.LegWithdrawal,
		shared.FailureCategoryWithdrawalFailed,
		message,
		correlationID,
	)
	if err := c.failureRepo.Create(ctx, record); err != nil {
		logger.Error("Failed to record withdrawal failure",
			"withdrawal_id", withdrawal.ID.String(),
			"error", err,
		)
	}
}
