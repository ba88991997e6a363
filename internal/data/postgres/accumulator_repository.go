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

// AccumulatorRepository implements treasury.AccumulatorRepository for
// PostgreSQL. Add takes a FOR UPDATE row lock on (tenant_id, rule_id), so
// concurrent transactions for the same tenant serialize on the accumulator
// instead of losing updates; the lock is released when the surrounding
// processing transaction commits or rolls back.
type AccumulatorRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAccumulatorRepository creates a new PostgreSQL threshold accumulator repository
func NewAccumulatorRepository(logger *slog.Logger, db *persistence.PostgresDB) treasury.AccumulatorRepository {
	return &AccumulatorRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *AccumulatorRepository) WithTx(tx pgx.Tx) treasury.AccumulatorRepository {
	return &AccumulatorRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Add locks the accumulator row, adds amount, and returns the new balance.
// The row is created lazily on the tenant's first threshold transaction.
func (r *AccumulatorRepository) Add(ctx context.Context, tenantID, ruleID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	// Ensure the row exists before locking it. The conflict target makes
	// this safe to race.
	insertQuery := `
		INSERT INTO threshold_accumulators (tenant_id, rule_id, balance, updated_at)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (tenant_id, rule_id) DO NOTHING
	`
	if _, err := r.querier.Exec(ctx, insertQuery, tenantID, ruleID); err != nil {
		r.logger.Error("Failed to ensure threshold accumulator row",
			"tenant_id", tenantID.String(), "rule_id", ruleID.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to ensure threshold accumulator row: %w", err)
	}

	lockQuery := `
		SELECT balance
		FROM threshold_accumulators
		WHERE tenant_id = $1 AND rule_id = $2
		FOR UPDATE
	`
	var balance decimal.Decimal
	if err := r.querier.QueryRow(ctx, lockQuery, tenantID, ruleID).Scan(&balance); err != nil {
		r.logger.Error("Failed to lock threshold accumulator",
			"tenant_id", tenantID.String(), "rule_id", ruleID.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to lock threshold accumulator: %w", err)
	}

	newBalance := balance.Add(amount)
	updateQuery := `
		UPDATE threshold_accumulators
		SET balance = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND rule_id = $3
	`
	if _, err := r.querier.Exec(ctx, updateQuery, newBalance, tenantID, ruleID); err != nil {
		r.logger.Error("Failed to update threshold accumulator",
			"tenant_id", tenantID.String(), "rule_id", ruleID.String(), "error", err)
		return decimal.Zero, fmt.Errorf("failed to update threshold accumulator: %w", err)
	}

	return newBalance, nil
}

// Reset zeroes the accumulator after a triggered conversion. Callers hold
// the row lock from a preceding Add in the same transaction.
func (r *AccumulatorRepository) Reset(ctx context.Context, tenantID, ruleID uuid.UUID) error {
	query := `
		UPDATE threshold_accumulators
		SET balance = 0, updated_at = NOW()
		WHERE tenant_id = $1 AND rule_id = $2
	`

	result, err := r.querier.Exec(ctx, query, tenantID, ruleID)
	if err != nil {
		r.logger.Error("Failed to reset threshold accumulator",
			"tenant_id", tenantID.String(), "rule_id", ruleID.String(), "error", err)
		return fmt.Errorf("failed to reset threshold accumulator: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("no threshold accumulator for tenant %s rule %s", tenantID.String(), ruleID.String())
	}

	return nil
}

// Get reads the accumulator without locking; nil when it does not exist yet
func (r *AccumulatorRepository) Get(ctx context.Context, tenantID, ruleID uuid.UUID) (*treasury.Accumulator, error) {
	query := `
		SELECT tenant_id, rule_id, balance, updated_at
		FROM threshold_accumulators
		WHERE tenant_id = $1 AND rule_id = $2
	`

	var acc treasury.Accumulator
	err := r.querier.QueryRow(ctx, query, tenantID, ruleID).Scan(
		&acc.TenantID,
		&acc.RuleID,
		&acc.Balance,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get threshold accumulator",
			"tenant_id", tenantID.String(), "rule_id", ruleID.String(), "error", err)
		return nil, fmt.Errorf("failed to get threshold accumulator: %w", err)
	}

	return &acc, nil
}
