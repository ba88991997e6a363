package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/platform/persistence"
)

const withdrawalColumns = `id, tenant_id, purchase_id, bitcoin_amount, destination_address, status, exchange_withdrawal_id, failure_message, created_at, updated_at`

// WithdrawalRepository implements treasury.WithdrawalRepository for PostgreSQL
type WithdrawalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewWithdrawalRepository creates a new PostgreSQL withdrawal repository
func NewWithdrawalRepository(logger *slog.Logger, db *persistence.PostgresDB) treasury.WithdrawalRepository {
	return &WithdrawalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *WithdrawalRepository) WithTx(tx pgx.Tx) treasury.WithdrawalRepository {
	return &WithdrawalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create persists a new withdrawal record
func (r *WithdrawalRepository) Create(ctx context.Context, w *treasury.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (` + withdrawalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		w.ID,
		w.TenantID,
		w.PurchaseID,
		w.BitcoinAmount,
		w.DestinationAddress,
		w.Status,
		w.ExchangeWithdrawalID,
		w.FailureMessage,
		w.CreatedAt,
		w.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create withdrawal",
			"withdrawal_id", w.ID.String(), "tenant_id", w.TenantID.String(), "error", err)
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	return nil
}

// Update persists status transitions made through MarkCompleted or MarkFailed
func (r *WithdrawalRepository) Update(ctx context.Context, w *treasury.Withdrawal) error {
	query := `
		UPDATE withdrawals
		SET status = $1, exchange_withdrawal_id = $2, failure_message = $3, updated_at = $4
		WHERE id = $5 AND tenant_id = $6
	`

	result, err := r.querier.Exec(ctx, query,
		w.Status,
		w.ExchangeWithdrawalID,
		w.FailureMessage,
		w.UpdatedAt,
		w.ID,
		w.TenantID,
	)
	if err != nil {
		r.logger.Error("Failed to update withdrawal",
			"withdrawal_id", w.ID.String(), "tenant_id", w.TenantID.String(), "error", err)
		return fmt.Errorf("failed to update withdrawal: %w", err)
	}

	if result.RowsAffected() == 0 {
		return treasury.ErrWithdrawalNotFound{ID: w.ID}
	}

	return nil
}

// GetByID retrieves a withdrawal scoped to its tenant
func (r *WithdrawalRepository) GetByID(ctx context.Context, tenantID, withdrawalID uuid.UUID) (*treasury.Withdrawal, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE id = $1 AND tenant_id = $2
	`

	w, err := scanWithdrawal(r.querier.QueryRow(ctx, query, withdrawalID, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, treasury.ErrWithdrawalNotFound{ID: withdrawalID}
		}
		r.logger.Error("Failed to get withdrawal",
			"withdrawal_id", withdrawalID.String(), "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}

	return w, nil
}

// ListByTenant returns a tenant's withdrawals, newest first
func (r *WithdrawalRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*treasury.Withdrawal, error) {
	query := `
		SELECT ` + withdrawalColumns + `
		FROM withdrawals
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list withdrawals", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	defer rows.Close()

	var withdrawals []*treasury.Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan withdrawal row: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate withdrawal rows: %w", err)
	}

	return withdrawals, nil
}

func scanWithdrawal(row pgx.Row) (*treasury.Withdrawal, error) {
	var w treasury.Withdrawal
	var bitcoinAmount decimal.Decimal
	err := row.Scan(
		&w.ID,
		&w.TenantID,
		&w.PurchaseID,
		&bitcoinAmount,
		&w.DestinationAddress,
		&w.Status,
		&w.ExchangeWithdrawalID,
		&w.FailureMessage,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.BitcoinAmount = bitcoinAmount
	return &w, nil
}
