package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
)

type MockRuleRepository struct {
	mock.Mock
}

func (m *MockRuleRepository) GetActive(ctx context.Context, tenantID uuid.UUID) (*treasury.Rule, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Rule), args.Error(1)
}

func (m *MockRuleRepository) GetByID(ctx context.Context, tenantID, ruleID uuid.UUID) (*treasury.Rule, error) {
	args := m.Called(ctx, tenantID, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Rule), args.Error(1)
}

func (m *MockRuleRepository) WithTx(tx pgx.Tx) treasury.RuleRepository {
	m.Called(tx)
	return m
}

type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) Create(ctx context.Context, purchase *treasury.BitcoinPurchase) error {
	args := m.Called(ctx, purchase)
	return args.Error(0)
}

func (m *MockPurchaseRepository) GetByTransactionID(ctx context.Context, tenantID, transactionID uuid.UUID) (*treasury.BitcoinPurchase, error) {
	args := m.Called(ctx, tenantID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.BitcoinPurchase), args.Error(1)
}

func (m *MockPurchaseRepository) GetByID(ctx context.Context, tenantID, purchaseID uuid.UUID) (*treasury.BitcoinPurchase, error) {
	args := m.Called(ctx, tenantID, purchaseID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.BitcoinPurchase), args.Error(1)
}

func (m *MockPurchaseRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*treasury.BitcoinPurchase, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*treasury.BitcoinPurchase), args.Error(1)
}

func (m *MockPurchaseRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseRepository) UpdateStatus(ctx context.Context, tenantID, purchaseID uuid.UUID, status string) error {
	args := m.Called(ctx, tenantID, purchaseID, status)
	return args.Error(0)
}

func (m *MockPurchaseRepository) WithTx(tx pgx.Tx) treasury.PurchaseRepository {
	m.Called(tx)
	return m
}

type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, withdrawal *treasury.Withdrawal) error {
	args := m.Called(ctx, withdrawal)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) Update(ctx context.Context, withdrawal *treasury.Withdrawal) error {
	args := m.Called(ctx, withdrawal)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*treasury.Withdrawal, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*treasury.Withdrawal, error) {
	args := m.Called(ctx, tenantID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*treasury.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) WithTx(tx pgx.Tx) treasury.WithdrawalRepository {
	m.Called(tx)
	return m
}

type MockAccumulatorRepository struct {
	mock.Mock
}

func (m *MockAccumulatorRepository) Add(ctx context.Context, tenantID, ruleID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	args := m.Called(ctx, tenantID, ruleID, amount)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockAccumulatorRepository) Reset(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	args := m.Called(ctx, tenantID, ruleID)
	return args.Error(0)
}

func (m *MockAccumulatorRepository) Get(ctx context.Context, tenantID, ruleID uuid.UUID) (*treasury.Accumulator, error) {
	args := m.Called(ctx, tenantID, ruleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Accumulator), args.Error(1)
}

func (m *MockAccumulatorRepository) WithTx(tx pgx.Tx) treasury.AccumulatorRepository {
	m.Called(tx)
	return m
}

func newQueryService(ruleRepo *MockRuleRepository, purchaseRepo *MockPurchaseRepository, withdrawalRepo *MockWithdrawalRepository, accRepo *MockAccumulatorRepository) TreasuryQueryService {
	return NewTreasuryQueryService(slog.Default(), ruleRepo, purchaseRepo, withdrawalRepo, accRepo)
}

func TestTreasuryQueryServiceImpl_GetPurchase(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	purchaseID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		service := newQueryService(new(MockRuleRepository), purchaseRepo, new(MockWithdrawalRepository), new(MockAccumulatorRepository))

		expected := &treasury.BitcoinPurchase{
			ID:       purchaseID,
			TenantID: tenantID,
			Status:   shared.PurchaseStatusFilled,
		}
		purchaseRepo.On("GetByID", ctx, tenantID, purchaseID).Return(expected, nil).Once()

		purchase, err := service.GetPurchase(ctx, tenantID, purchaseID)

		assert.NoError(t, err)
		assert.Equal(t, expected, purchase)
		purchaseRepo.AssertExpectations(t)
	})

	t.Run("NotFoundReturnsNil", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		service := newQueryService(new(MockRuleRepository), purchaseRepo, new(MockWithdrawalRepository), new(MockAccumulatorRepository))

		purchaseRepo.On("GetByID", ctx, tenantID, purchaseID).
			Return(nil, treasury.ErrPurchaseNotFound{TenantID: tenantID}).Once()

		purchase, err := service.GetPurchase(ctx, tenantID, purchaseID)

		assert.NoError(t, err)
		assert.Nil(t, purchase)
		purchaseRepo.AssertExpectations(t)
	})

	t.Run("RepositoryError", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		service := newQueryService(new(MockRuleRepository), purchaseRepo, new(MockWithdrawalRepository), new(MockAccumulatorRepository))

		repoError := errors.New("database error")
		purchaseRepo.On("GetByID", ctx, tenantID, purchaseID).Return(nil, repoError).Once()

		purchase, err := service.GetPurchase(ctx, tenantID, purchaseID)

		assert.Error(t, err)
		assert.Equal(t, repoError, err)
		assert.Nil(t, purchase)
		purchaseRepo.AssertExpectations(t)
	})
}

func TestTreasuryQueryServiceImpl_GetPurchaseByTransaction(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	transactionID := uuid.New()

	t.Run("NeverConvertedReturnsNil", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		service := newQueryService(new(MockRuleRepository), purchaseRepo, new(MockWithdrawalRepository), new(MockAccumulatorRepository))

		purchaseRepo.On("GetByTransactionID", ctx, tenantID, transactionID).
			Return(nil, treasury.ErrPurchaseNotFound{TenantID: tenantID, TransactionID: transactionID}).Once()

		purchase, err := service.GetPurchaseByTransaction(ctx, tenantID, transactionID)

		assert.NoError(t, err)
		assert.Nil(t, purchase)
		purchaseRepo.AssertExpectations(t)
	})
}

func TestTreasuryQueryServiceImpl_ListPurchases(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("PaginationIsTranslated", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		service := newQueryService(new(MockRuleRepository), purchaseRepo, new(MockWithdrawalRepository), new(MockAccumulatorRepository))

		purchases := []*treasury.BitcoinPurchase{{ID: uuid.New(), TenantID: tenantID}}
		purchaseRepo.On("ListByTenant", ctx, tenantID, 5, 10).Return(purchases, nil).Once()
		purchaseRepo.On("CountByTenant", ctx, tenantID).Return(int64(23), nil).Once()

		result, total, err := service.ListPurchases(ctx, tenantID, 3, 5)

		assert.NoError(t, err)
		assert.Equal(t, purchases, result)
		assert.Equal(t, int64(23), total)
		purchaseRepo.AssertExpectations(t)
	})

	t.Run("CountError", func(t *testing.T) {
		purchaseRepo := new(MockPurchaseRepository)
		service := newQueryService(new(MockRuleRepository), purchaseRepo, new(MockWithdrawalRepository), new(MockAccumulatorRepository))

		purchaseRepo.On("ListByTenant", ctx, tenantID, 10, 0).Return([]*treasury.BitcoinPurchase{}, nil).Once()
		purchaseRepo.On("CountByTenant", ctx, tenantID).Return(int64(0), errors.New("database error")).Once()

		result, total, err := service.ListPurchases(ctx, tenantID, 1, 10)

		assert.Error(t, err)
		assert.Nil(t, result)
		assert.Zero(t, total)
		purchaseRepo.AssertExpectations(t)
	})
}

func TestTreasuryQueryServiceImpl_ListWithdrawals(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	withdrawalRepo := new(MockWithdrawalRepository)
	service := newQueryService(new(MockRuleRepository), new(MockPurchaseRepository), withdrawalRepo, new(MockAccumulatorRepository))

	withdrawals := []*treasury.Withdrawal{{ID: uuid.New(), TenantID: tenantID, CreatedAt: time.Now()}}
	withdrawalRepo.On("ListByTenant", ctx, tenantID, 10, 0).Return(withdrawals, nil).Once()

	result, err := service.ListWithdrawals(ctx, tenantID, 1, 10)

	assert.NoError(t, err)
	assert.Equal(t, withdrawals, result)
	withdrawalRepo.AssertExpectations(t)
}

func TestTreasuryQueryServiceImpl_GetActiveRule(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		ruleRepo := new(MockRuleRepository)
		service := newQueryService(ruleRepo, new(MockPurchaseRepository), new(MockWithdrawalRepository), new(MockAccumulatorRepository))

		expected := &treasury.Rule{
			ID:       uuid.New(),
			TenantID: tenantID,
			RuleType: shared.RuleTypePercentage,
			IsActive: true,
		}
		ruleRepo.On("GetActive", ctx, tenantID).Return(expected, nil).Once()

		rule, err := service.GetActiveRule(ctx, tenantID)

		assert.NoError(t, err)
		assert.Equal(t, expected, rule)
		ruleRepo.AssertExpectations(t)
	})

	t.Run("NoActiveRuleReturnsNil", func(t *testing.T) {
		ruleRepo := new(MockRuleRepository)
		service := newQueryService(ruleRepo, new(MockPurchaseRepository), new(MockWithdrawalRepository), new(MockAccumulatorRepository))

		ruleRepo.On("GetActive", ctx, tenantID).Return(nil, treasury.ErrRuleNotFound{TenantID: tenantID}).Once()

		rule, err := service.GetActiveRule(ctx, tenantID)

		assert.NoError(t, err)
		assert.Nil(t, rule)
		ruleRepo.AssertExpectations(t)
	})
}

func TestTreasuryQueryServiceImpl_GetAccumulator(t *testing.T) {
	ctx := context.Background()
	tenantID := uuid.New()
	ruleID := uuid.New()

	accRepo := new(MockAccumulatorRepository)
	service := newQueryService(new(MockRuleRepository), new(MockPurchaseRepository), new(MockWithdrawalRepository), accRepo)

	expected := &treasury.Accumulator{
		TenantID: tenantID,
		RuleID:   ruleID,
		Balance:  decimal.NewFromInt(700),
	}
	accRepo.On("Get", ctx, tenantID, ruleID).Return(expected, nil).Once()

	acc, err := service.GetAccumulator(ctx, tenantID, ruleID)

	assert.NoError(t, err)
	assert.Equal(t, expected, acc)
	accRepo.AssertExpectations(t)
}
