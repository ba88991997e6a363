package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/treasury_processor/service"
)

type RuleEvaluatorImpl struct {
	ruleRepo treasury.RuleRepository
	accRepo  treasury.AccumulatorRepository
	logger   *slog.Logger
}

func NewRuleEvaluator(ruleRepo treasury.RuleRepository, accRepo treasury.AccumulatorRepository, logger *slog.Logger) service.RuleEvaluator {
	return &RuleEvaluatorImpl{
		ruleRepo: ruleRepo,
		accRepo:  accRepo,
		logger:   logger,
	}
}

// ActiveRule loads and validates the tenant's active treasury rule
func (e *RuleEvaluatorImpl) ActiveRule(ctx context.Context, tenantID uuid.UUID) (*treasury.Rule, error) {
	rule, err := e.ruleRepo.GetActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if err := rule.Validate(); err != nil {
		e.logger.Error("Active treasury rule failed validation",
			"tenant_id", tenantID.String(),
			"rule_id", rule.ID.String(),
			"rule_type", string(rule.RuleType),
			"error", err,
		)
		return nil, fmt.Errorf("rule %s: %w", rule.ID.String(), err)
	}

	return rule, nil
}

// Decide applies the rule to the payment inside the processing transaction.
func (e *RuleEvaluatorImpl) Decide(ctx context.Context, tx pgx.Tx, rule *treasury.Rule, txn *payment.Transaction) (*service.Decision, error) {
	switch rule.RuleType {
	case shared.RuleTypePercentage:
		return e.decidePercentage(rule, txn), nil
	case shared.RuleTypeThreshold:
		return e.decideThreshold(ctx, tx, rule, txn)
	default:
		// Validate() rejects unknown types before processing starts.
		return nil, treasury.ErrInvalidRuleType
	}
}

func (e *RuleEvaluatorImpl) decidePercentage(rule *treasury.Rule, txn *payment.Transaction) *service.Decision {
	amount, convert := rule.PercentageAmount(txn.Amount, txn.Currency)
	if !convert {
		e.logger.Info("Percentage share below configured minimum, skipping conversion",
			"tenant_id", txn.TenantID.String(),
			"transaction_id", txn.ID.String(),
			"percentage", rule.ConversionPercentage.String(),
		)
		return &service.Decision{Convert: false}
	}
	return &service.Decision{Convert: true, Amount: amount}
}

// decideThreshold adds the payment to the accumulator under a row lock and
// fires a conversion when the balance reaches the trigger point. The
// accumulator resets in the same transaction, so a rollback restores both
// the balance and the claim together.
func (e *RuleEvaluatorImpl) decideThreshold(ctx context.Context, tx pgx.Tx, rule *treasury.Rule, txn *payment.Transaction) (*service.Decision, error) {
	accRepo := e.accRepo.WithTx(tx)

	balance, err := accRepo.Add(ctx, txn.TenantID, rule.ID, txn.Amount)
	if err != nil {
		return nil, fmt.Errorf("failed to accumulate payment %s: %w", txn.ID.String(), err)
	}

	if !rule.ThresholdTriggered(balance) {
		e.logger.Info("Threshold not reached, payment accumulated",
			"tenant_id", txn.TenantID.String(),
			"transaction_id", txn.ID.String(),
			"balance", balance.String(),
			"threshold", rule.ThresholdAmount.String(),
		)
		return &service.Decision{Convert: false, AccumulatorBalance: balance}, nil
	}

	amount, convert := rule.ThresholdAmountFor(txn.Amount, txn.Currency)
	if err := accRepo.Reset(ctx, txn.TenantID, rule.ID); err != nil {
		return nil, fmt.Errorf("failed to reset accumulator for tenant %s: %w", txn.TenantID.String(), err)
	}
	if !convert {
		return &service.Decision{Convert: false, AccumulatorBalance: decimal.Zero}, nil
	}

	e.logger.Info("Threshold reached, triggering conversion",
		"tenant_id", txn.TenantID.String(),
		"transaction_id", txn.ID.String(),
		"balance", balance.String(),
		"threshold", rule.ThresholdAmount.String(),
		"amount", amount.String(),
	)
	return &service.Decision{Convert: true, Amount: amount, AccumulatorBalance: decimal.Zero}, nil
}
