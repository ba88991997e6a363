package components

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/bitstash-treasury-engine/internal/domain/failure"
	"github.com/bitstash-treasury-engine/internal/domain/outbox"
	"github.com/bitstash-treasury-engine/internal/domain/shared"
	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/exchange"
)

// Shared mock implementations for the component tests.

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

type MockClaimRepository struct {
	mock.Mock
}

func (m *MockClaimRepository) TryInsert(ctx context.Context, tenantID, transactionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, transactionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockClaimRepository) AttachPurchase(ctx context.Context, tenantID, transactionID, purchaseID uuid.UUID) error {
	args := m.Called(ctx, tenantID, transactionID, purchaseID)
	return args.Error(0)
}

func (m *MockClaimRepository) Get(ctx context.Context, tenantID, transactionID uuid.UUID) (*treasury.Claim, error) {
	args := m.Called(ctx, tenantID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*treasury.Claim), args.Error(1)
}

func (m *MockClaimRepository) WithTx(tx pgx.Tx) treasury.ClaimRepository {
	m.Called(tx)
	return m
}

type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, w *treasury.Withdrawal) error {
	args := m.Called(ctx, w)
	return args.Error(0)
}

func (m *MockWithdrawalRepository) Update(ctx context.Context, w *treasury.Withdrawal) error {
	args := m.Called(ctx, w)
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

type MockFailureRepository struct {
	mock.Mock
}

func (m *MockFailureRepository) Create(ctx context.Context, f *failure.ProcessingFailure) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

func (m *MockFailureRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*failure.ProcessingFailure, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*failure.ProcessingFailure), args.Error(1)
}

func (m *MockFailureRepository) GetByTransactionID(ctx context.Context, tenantID, transactionID uuid.UUID) ([]*failure.ProcessingFailure, error) {
	args := m.Called(ctx, tenantID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*failure.ProcessingFailure), args.Error(1)
}

func (m *MockFailureRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, unresolvedOnly bool, limit, offset int) ([]*failure.ProcessingFailure, error) {
	args := m.Called(ctx, tenantID, unresolvedOnly, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*failure.ProcessingFailure), args.Error(1)
}

func (m *MockFailureRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID, unresolvedOnly bool) (int64, error) {
	args := m.Called(ctx, tenantID, unresolvedOnly)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFailureRepository) MarkResolved(ctx context.Context, tenantID, id uuid.UUID) error {
	args := m.Called(ctx, tenantID, id)
	return args.Error(0)
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetByTransactionID(ctx context.Context, tenantID, transactionID uuid.UUID) (*outbox.Message, error) {
	args := m.Called(ctx, tenantID, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	m.Called(tx)
	return m
}

// stubResolver returns a fixed client or error regardless of provider.
type stubResolver struct {
	client exchange.Client
	err    error
}

func (r *stubResolver) ClientFor(provider string) (exchange.Client, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.client, nil
}
