package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bitstash-treasury-engine/internal/domain/treasury"
	"github.com/bitstash-treasury-engine/internal/platform/persistence"
)

// PurchaseRepository implements treasury.PurchaseRepository for PostgreSQL
type PurchaseRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPurchaseRepository creates a new PostgreSQL bitcoin purchase repository
func NewPurchaseRepository(logger *slog.Logger, db *persistence.PostgresDB) treasury.PurchaseRepository {
	return &PurchaseRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *PurchaseRepository) WithTx(tx pgx.Tx) treasury.PurchaseRepository {
	return &PurchaseRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const purchaseColumns = `
	id, tenant_id, transaction_id, amount_fiat, currency, bitcoin_amount,
	price_per_btc, exchange_provider, exchange_order_id, status, created_at, updated_at
`

// Create inserts a purchase row. The unique index on
// (tenant_id, transaction_id) is the final guarantee of at-most-one
// purchase per transaction; a violation maps to ErrDuplicatePurchase.
func (r *PurchaseRepository) Create(ctx context.Context, purchase *treasury.BitcoinPurchase) error {
	query := `
		INSERT INTO bitcoin_purchases (` + purchaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		purchase.ID,
		purchase.TenantID,
		purchase.TransactionID,
		purchase.AmountFiat,
		purchase.Currency,
		purchase.BitcoinAmount,
		purchase.PricePerBTC,
		purchase.ExchangeProvider,
		purchase.ExchangeOrderID,
		purchase.Status,
		purchase.CreatedAt,
		purchase.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return treasury.ErrDuplicatePurchase{TenantID: purchase.TenantID, TransactionID: purchase.TransactionID}
		}
		r.logger.Error("Failed to create bitcoin purchase",
			"tenant_id", purchase.TenantID.String(),
			"transaction_id", purchase.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create bitcoin purchase: %w", err)
	}

	return nil
}

// GetByTransactionID retrieves the purchase for a source transaction
func (r *PurchaseRepository) GetByTransactionID(ctx context.Context, tenantID, transactionID uuid.UUID) (*treasury.BitcoinPurchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM bitcoin_purchases
		WHERE tenant_id = $1 AND transaction_id = $2
	`

	purchase, err := r.scanPurchase(r.querier.QueryRow(ctx, query, tenantID, transactionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, treasury.ErrPurchaseNotFound{TenantID: tenantID, TransactionID: transactionID}
		}
		r.logger.Error("Failed to get bitcoin purchase",
			"tenant_id", tenantID.String(),
			"transaction_id", transactionID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get bitcoin purchase: %w", err)
	}

	return purchase, nil
}

// GetByID retrieves a purchase by its own ID
func (r *PurchaseRepository) GetByID(ctx context.Context, tenantID, purchaseID uuid.UUID) (*treasury.BitcoinPurchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM bitcoin_purchases
		WHERE tenant_id = $1 AND id = $2
	`

	purchase, err := r.scanPurchase(r.querier.QueryRow(ctx, query, tenantID, purchaseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, treasury.ErrPurchaseNotFound{TenantID: tenantID}
		}
		r.logger.Error("Failed to get bitcoin purchase by id",
			"tenant_id", tenantID.String(),
			"purchase_id", purchaseID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get bitcoin purchase by id: %w", err)
	}

	return purchase, nil
}

// ListByTenant returns a page of purchases, newest first
func (r *PurchaseRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]*treasury.BitcoinPurchase, error) {
	query := `
		SELECT ` + purchaseColumns + `
		FROM bitcoin_purchases
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.querier.Query(ctx, query, tenantID, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list bitcoin purchases", "tenant_id", tenantID.String(), "error", err)
		return nil, fmt.Errorf("failed to list bitcoin purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*treasury.BitcoinPurchase
	for rows.Next() {
		purchase, err := r.scanPurchase(rows)
		if err != nil {
			r.logger.Error("Failed to scan bitcoin purchase", "error", err)
			return nil, fmt.Errorf("failed to scan bitcoin purchase: %w", err)
		}
		purchases = append(purchases, purchase)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over bitcoin purchases: %w", err)
	}

	return purchases, nil
}

// CountByTenant counts all purchases for a tenant
func (r *PurchaseRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	var count int64
	err := r.querier.QueryRow(ctx, `SELECT COUNT(*) FROM bitcoin_purchases WHERE tenant_id = $1`, tenantID).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count bitcoin purchases", "tenant_id", tenantID.String(), "error", err)
		return 0, fmt.Errorf("failed to count bitcoin purchases: %w", err)
	}
	return count, nil
}

// UpdateStatus reflects a later settlement change reported by the exchange
func (r *PurchaseRepository) UpdateStatus(ctx context.Context, tenantID, purchaseID uuid.UUID, status string) error {
	query := `
		UPDATE bitcoin_purchases
		SET status = $1, updated_at = NOW()
		WHERE tenant_id = $2 AND id = $3
	`

	result, err := r.querier.Exec(ctx, query, status, tenantID, purchaseID)
	if err != nil {
		r.logger.Error("Failed to update bitcoin purchase status",
			"tenant_id", tenantID.String(),
			"purchase_id", purchaseID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to update bitcoin purchase status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return treasury.ErrPurchaseNotFound{TenantID: tenantID}
	}

	return nil
}

func (r *PurchaseRepository) scanPurchase(row pgx.Row) (*treasury.BitcoinPurchase, error) {
	var purchase treasury.BitcoinPurchase
	err := row.Scan(
		&purchase.ID,
		&purchase.TenantID,
		&purchase.TransactionID,
		&purchase.AmountFiat,
		&purchase.Currency,
		&purchase.BitcoinAmount,
		&purchase.PricePerBTC,
		&purchase.ExchangeProvider,
		&purchase.ExchangeOrderID,
		&purchase.Status,
		&purchase.CreatedAt,
		&purchase.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &purchase, nil
}
