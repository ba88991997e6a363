package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bitstash-treasury-engine/internal/domain/treasury"
)

// TreasuryQueryServiceImpl implements the TreasuryQueryService interface
type TreasuryQueryServiceImpl struct {
	ruleRepo       treasury.RuleRepository
	purchaseRepo   treasury.PurchaseRepository
	withdrawalRepo treasury.WithdrawalRepository
	accRepo        treasury.AccumulatorRepository
	logger         *slog.Logger
}

// NewTreasuryQueryService creates a new treasury query service
func NewTreasuryQueryService(
	logger *slog.Logger,
	ruleRepo treasury.RuleRepository,
	purchaseRepo treasury.PurchaseRepository,
	withdrawalRepo treasury.WithdrawalRepository,
	accRepo treasury.AccumulatorRepository,
) TreasuryQueryService {
	return &TreasuryQueryServiceImpl{
		ruleRepo:       ruleRepo,
		purchaseRepo:   purchaseRepo,
		withdrawalRepo: withdrawalRepo,
		accRepo:        accRepo,
		logger:         logger,
	}
}

// GetPurchase retrieves one purchase. Returns nil if not found
func (s *TreasuryQueryServiceImpl) GetPurchase(ctx context.Context, tenantID, purchaseID uuid.UUID) (*treasury.BitcoinPurchase, error) {
	purchase, err := s.purchaseRepo.GetByID(ctx, tenantID, purchaseID)
	if err != nil {
		if errors.Is(err, treasury.ErrPurchaseNotFound{}) {
			s.logger.Info("Purchase not found", "tenant_id", tenantID.String(), "purchase_id", purchaseID.String())
			return nil, nil
		}
		s.logger.Error("Failed to get purchase", "tenant_id", tenantID.String(), "purchase_id", purchaseID.String(), "error", err)
		return nil, err
	}
	return purchase, nil
}

// GetPurchaseByTransaction retrieves the purchase a source transaction
// produced. Returns nil if the transaction never converted
func (s *TreasuryQueryServiceImpl) GetPurchaseByTransaction(ctx context.Context, tenantID, transactionID uuid.UUID) (*treasury.BitcoinPurchase, error) {
	purchase, err := s.purchaseRepo.GetByTransactionID(ctx, tenantID, transactionID)
	if err != nil {
		if errors.Is(err, treasury.ErrPurchaseNotFound{}) {
			return nil, nil
		}
		s.logger.Error("Failed to get purchase by transaction", "tenant_id", tenantID.String(), "transaction_id", transactionID.String(), "error", err)
		return nil, err
	}
	return purchase, nil
}

// ListPurchases retrieves a paginated purchase history, newest first
func (s *TreasuryQueryServiceImpl) ListPurchases(ctx context.Context, tenantID uuid.UUID, page, perPage int) ([]*treasury.BitcoinPurchase, int64, error) {
	offset := (page - 1) * perPage

	purchases, err := s.purchaseRepo.ListByTenant(ctx, tenantID, perPage, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.purchaseRepo.CountByTenant(ctx, tenantID)
	if err != nil {
		return nil, 0, err
	}

	return purchases, total, nil
}

// ListWithdrawals retrieves a tenant's withdrawal attempts, newest first
func (s *TreasuryQueryServiceImpl) ListWithdrawals(ctx context.Context, tenantID uuid.UUID, page, perPage int) ([]*treasury.Withdrawal, error) {
	offset := (page - 1) * perPage
	return s.withdrawalRepo.ListByTenant(ctx, tenantID, perPage, offset)
}

// GetActiveRule returns the tenant's active treasury rule, nil when none
func (s *TreasuryQueryServiceImpl) GetActiveRule(ctx context.Context, tenantID uuid.UUID) (*treasury.Rule, error) {
	rule, err := s.ruleRepo.GetActive(ctx, tenantID)
	if err != nil {
		if errors.Is(err, treasury.ErrRuleNotFound{}) {
			return nil, nil
		}
		s.logger.Error("Failed to get active rule", "tenant_id", tenantID.String(), "error", err)
		return nil, err
	}
	return rule, nil
}

// GetAccumulator returns the threshold accumulator for a rule, nil when no
// balance has accumulated yet
func (s *TreasuryQueryServiceImpl) GetAccumulator(ctx context.Context, tenantID, ruleID uuid.UUID) (*treasury.Accumulator, error) {
	return s.accRepo.Get(ctx, tenantID, ruleID)
}
