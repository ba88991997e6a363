// Package postgres provides PostgreSQL implementations of the treasury
// domain repositories. Every query is parameterized by tenant ID: the
// engine has no code path that can touch another tenant's rows.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/platform/persistence"
)

// RuleRepository implements treasury.RuleRepository for PostgreSQL
type RuleRepository struct {
	querier persistence.Querier // *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewRuleRepository creates a new PostgreSQL treasury rule repository
func NewRuleRepository(logger *slog.Logger, db *persistence.PostgresDB) treasury.RuleRepository {
	return &RuleRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *RuleRepository) WithTx(tx pgx.Tx) treasury.RuleRepository {
	return &RuleRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const ruleColumns = `
	id, tenant_id, rule_type, conversion_percentage, threshold_amount,
	buffer_amount, minimum_purchase, maximum_purchase, withdrawal_address,
	is_active, exchange_provider, created_at, updated_at
`

// GetActive returns the tenant's active treasury rule. When more than one
// rule is active, the oldest wins so the choice is deterministic across
// replicas and redeliveries.
func (r *RuleRepository) GetActive(ctx context.Context, tenantID uuid.UUID) (*treasury.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM treasury_rules
		WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC
		LIMIT 1
	`

	rule, err := r.scanRule(r.querier.QueryRow(ctx, query, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, treasury.ErrRuleNotFound{TenantID: tenantID}
		}
		r.logger.Error("Failed to get active treasury rule", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to get active treasury rule: %w", err)
	}

	return rule, nil
}

// GetByID retrieves a specific rule for a tenant
func (r *RuleRepository) GetByID(ctx context.Context, tenantID, ruleID uuid.UUID) (*treasury.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM treasury_rules
		WHERE tenant_id = $1 AND id = $2
	`

	rule, err := r.scanRule(r.querier.QueryRow(ctx, query, tenantID, ruleID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, treasury.ErrRuleNotFound{TenantID: tenantID}
		}
		r.logger.Error("Failed to get treasury rule", "tenant_id", tenantID.String(), "rule_id", ruleID.String(), "error", err)
		return nil, fmt.Errorf("failed to get treasury rule: %w", err)
	}

	return rule, nil
}

func (r *RuleRepository) scanRule(row pgx.Row) (*treasury.Rule, error) {
	var rule treasury.Rule
	err := row.Scan(
		&rule.ID,
		&rule.TenantID,
		&rule.RuleType,
		&rule.ConversionPercentage,
		&rule.ThresholdAmount,
		&rule.BufferAmount,
		&rule.MinimumPurchase,
		&rule.MaximumPurchase,
		&rule.WithdrawalAddress,
		&rule.IsActive,
		&rule.ExchangeProvider,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}
