package components

import (
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bitstash-treasury-engine/internal/domain/payment"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
)

func newPayment(tenantID uuid.UUID, amount string) *payment.Transaction {
	return &payment.Transaction{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Amount:        decimal.RequireFromString(amount),
		Currency:      "AUD",
		Status:        shared.PaymentStatusSucceeded,
		ShouldConvert: true,
	}
}

func TestRuleEvaluator_ActiveRule(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("returns a valid rule", func(t *testing.T) {
		ruleRepo := &MockRuleRepository{}
		accRepo := &MockAccumulatorRepository{}
		rule := &treasury.Rule{
			ID:                   uuid.New(),
			TenantID:             tenantID,
			RuleType:             shared.RuleTypePercentage,
			ConversionPercentage: decimal.NewFromInt(10),
		}
		ruleRepo.On("GetActive", mock.Anything, tenantID).Return(rule, nil).Once()

		evaluator := NewRuleEvaluator(ruleRepo, accRepo, slog.Default())
		got, err := evaluator.ActiveRule(ctx, tenantID)
		require.NoError(t, err)
		assert.Equal(t, rule.ID, got.ID)
		ruleRepo.AssertExpectations(t)
	})

	t.Run("passes through rule not found", func(t *testing.T) {
		ruleRepo := &MockRuleRepository{}
		accRepo := &MockAccumulatorRepository{}
		ruleRepo.On("GetActive", mock.Anything, tenantID).
			Return(nil, treasury.ErrRuleNotFound{TenantID: tenantID}).Once()

		evaluator := NewRuleEvaluator(ruleRepo, accRepo, slog.Default())
		_, err := evaluator.ActiveRule(ctx, tenantID)
		assert.ErrorIs(t, err, treasury.ErrRuleNotFound{})
		ruleRepo.AssertExpectations(t)
	})

	t.Run("surfaces invalid configuration", func(t *testing.T) {
		ruleRepo := &MockRuleRepository{}
		accRepo := &MockAccumulatorRepository{}
		rule := &treasury.Rule{
			ID:                   uuid.New(),
			TenantID:             tenantID,
			RuleType:             shared.RuleTypePercentage,
			ConversionPercentage: decimal.NewFromInt(150),
		}
		ruleRepo.On("GetActive", mock.Anything, tenantID).Return(rule, nil).Once()

		evaluator := NewRuleEvaluator(ruleRepo, accRepo, slog.Default())
		_, err := evaluator.ActiveRule(ctx, tenantID)
		assert.ErrorIs(t, err, treasury.ErrInvalidPercentage)
		ruleRepo.AssertExpectations(t)
	})
}

func TestRuleEvaluator_DecidePercentage(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	rule := &treasury.Rule{
		ID:                   uuid.New(),
		TenantID:             tenantID,
		RuleType:             shared.RuleTypePercentage,
		ConversionPercentage: decimal.NewFromInt(10),
		MinimumPurchase:      decimal.NewFromInt(5),
	}

	t.Run("converts the percentage share", func(t *testing.T) {
		evaluator := NewRuleEvaluator(&MockRuleRepository{}, &MockAccumulatorRepository{}, slog.Default())

		decision, err := evaluator.Decide(ctx, nil, rule, newPayment(tenantID, "100"))
		require.NoError(t, err)
		assert.True(t, decision.Convert)
		assert.True(t, decision.Amount.Equal(decimal.NewFromInt(10)))
	})

	t.Run("share below minimum does not convert", func(t *testing.T) {
		evaluator := NewRuleEvaluator(&MockRuleRepository{}, &MockAccumulatorRepository{}, slog.Default())

		decision, err := evaluator.Decide(ctx, nil, rule, newPayment(tenantID, "40"))
		require.NoError(t, err)
		assert.False(t, decision.Convert)
	})
}

func TestRuleEvaluator_DecideThreshold(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	rule := &treasury.Rule{
		ID:              uuid.New(),
		TenantID:        tenantID,
		RuleType:        shared.RuleTypeThreshold,
		ThresholdAmount: decimal.NewFromInt(1000),
		BufferAmount:    decimal.NewFromInt(50),
	}

	t.Run("accumulates below the trigger", func(t *testing.T) {
		ruleRepo := &MockRuleRepository{}
		accRepo := &MockAccumulatorRepository{}
		txn := newPayment(tenantID, "200")

		accRepo.On("WithTx", mock.Anything).Return(accRepo).Once()
		accRepo.On("Add", mock.Anything, tenantID, rule.ID, txn.Amount).
			Return(decimal.NewFromInt(700), nil).Once()

		evaluator := NewRuleEvaluator(ruleRepo, accRepo, slog.Default())
		decision, err := evaluator.Decide(ctx, nil, rule, txn)
		require.NoError(t, err)
		assert.False(t, decision.Convert)
		assert.True(t, decision.AccumulatorBalance.Equal(decimal.NewFromInt(700)))
		accRepo.AssertExpectations(t)
	})

	t.Run("crossing the buffered trigger converts and resets", func(t *testing.T) {
		ruleRepo := &MockRuleRepository{}
		accRepo := &MockAccumulatorRepository{}
		txn := newPayment(tenantID, "300")

		// 700 + 300 = 1000, above the 950 buffered trigger.
		accRepo.On("WithTx", mock.Anything).Return(accRepo).Once()
		accRepo.On("Add", mock.Anything, tenantID, rule.ID, txn.Amount).
			Return(decimal.NewFromInt(1000), nil).Once()
		accRepo.On("Reset", mock.Anything, tenantID, rule.ID).Return(nil).Once()

		evaluator := NewRuleEvaluator(ruleRepo, accRepo, slog.Default())
		decision, err := evaluator.Decide(ctx, nil, rule, txn)
		require.NoError(t, err)
		assert.True(t, decision.Convert)
		assert.True(t, decision.Amount.Equal(decimal.NewFromInt(300)), "the full crossing payment converts")
		assert.True(t, decision.AccumulatorBalance.IsZero())
		accRepo.AssertExpectations(t)
	})

	t.Run("maximum caps the triggered conversion", func(t *testing.T) {
		capped := *rule
		capped.MaximumPurchase = decimal.NewFromInt(100)
		accRepo := &MockAccumulatorRepository{}
		txn := newPayment(tenantID, "300")

		accRepo.On("WithTx", mock.Anything).Return(accRepo).Once()
		accRepo.On("Add", mock.Anything, tenantID, capped.ID, txn.Amount).
			Return(decimal.NewFromInt(1000), nil).Once()
		accRepo.On("Reset", mock.Anything, tenantID, capped.ID).Return(nil).Once()

		evaluator := NewRuleEvaluator(&MockRuleRepository{}, accRepo, slog.Default())
		decision, err := evaluator.Decide(ctx, nil, &capped, txn)
		require.NoError(t, err)
		assert.True(t, decision.Convert)
		assert.True(t, decision.Amount.Equal(decimal.NewFromInt(100)))
		accRepo.AssertExpectations(t)
	})

	t.Run("accumulator error propagates", func(t *testing.T) {
		accRepo := &MockAccumulatorRepository{}
		txn := newPayment(tenantID, "300")

		accRepo.On("WithTx", mock.Anything).Return(accRepo).Once()
		accRepo.On("Add", mock.Anything, tenantID, rule.ID, txn.Amount).
			Return(decimal.Zero, assert.AnError).Once()

		evaluator := NewRuleEvaluator(&MockRuleRepository{}, accRepo, slog.Default())
		_, err := evaluator.Decide(ctx, nil, rule, txn)
		assert.ErrorIs(t, err, assert.AnError)
		accRepo.AssertExpectations(t)
	})
}
