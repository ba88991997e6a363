package components

import (
	"context"
	"testing"

	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/bitstash-treasury-engine/internal/config"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/exchange"
	"github.com/bitstash-treasury-engine/internal/platform/persistence"
	"github.com/bitstash-treasury-engine/internal/treasury_processor/service"
)

// The repository mocks live in mocks_test.go; MockPurchaseRepository is only
// needed here so it is defined alongside the factory test.

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

func TestCreateProcessingService(t *testing.T) {
	mockPgDB := &persistence.PostgresDB{}
	mockRuleRepo := &MockRuleRepository{}
	mockPurchaseRepo := &MockPurchaseRepository{}
	mockClaimRepo := &MockClaimRepository{}
	mockAccRepo := &MockAccumulatorRepository{}
	mockWithdrawalRepo := &MockWithdrawalRepository{}
	mockOutboxRepo := &MockOutboxRepository{}
	mockFailureRepo := &MockFailureRepository{}
	logger := slog.Default()

	exchangeFactory := exchange.NewFactory(&config.ExchangeConfig{Pair: "BTC-AUD"}, logger)

	cfg := &config.Config{
		WorkerPool: config.WorkerPoolConfig{
			Size: 5,
		},
		Exchange: config.ExchangeConfig{
			Pair: "BTC-AUD",
		},
	}

	t.Run("creates worker pool service with valid config", func(t *testing.T) {
		processingService := CreateProcessingService(
			mockPgDB,
			mockRuleRepo,
			mockPurchaseRepo,
			mockClaimRepo,
			mockAccRepo,
			mockWithdrawalRepo,
			mockOutboxRepo,
			mockFailureRepo,
			exchangeFactory,
			logger,
			cfg,
		)

		assert.NotNil(t, processingService)

		_, ok := processingService.(service.ProcessingService)
		assert.True(t, ok)
	})

	t.Run("falls back to base service with invalid pool size", func(t *testing.T) {
		invalidCfg := &config.Config{
			WorkerPool: config.WorkerPoolConfig{
				Size: 0,
			},
			Exchange: config.ExchangeConfig{
				Pair: "BTC-AUD",
			},
		}

		processingService := CreateProcessingService(
			mockPgDB,
			mockRuleRepo,
			mockPurchaseRepo,
			mockClaimRepo,
			mockAccRepo,
			mockWithdrawalRepo,
			mockOutboxRepo,
			mockFailureRepo,
			exchangeFactory,
			logger,
			invalidCfg,
		)

		assert.NotNil(t, processingService)

		_, ok := processingService.(service.ProcessingService)
		assert.True(t, ok)
	})
}
