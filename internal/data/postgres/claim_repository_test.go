package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestClaimRepository_TryInsert(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClaimRepository{querier: mock, logger: newTestLogger()}
	tenantID := uuid.New()
	transactionID := uuid.New()

	query := `INSERT INTO processed_transactions`

	t.Run("wins the claim", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(tenantID, transactionID).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		claimed, err := repo.TryInsert(ctx, tenantID, transactionID)
		assert.NoError(t, err)
		assert.True(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loses the claim on conflict", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(tenantID, transactionID).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		claimed, err := repo.TryInsert(ctx, tenantID, transactionID)
		assert.NoError(t, err)
		assert.False(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		expectedErr := errors.New("db error")
		mock.ExpectExec(query).
			WithArgs(tenantID, transactionID).
			WillReturnError(expectedErr)

		claimed, err := repo.TryInsert(ctx, tenantID, transactionID)
		assert.Error(t, err)
		assert.False(t, claimed)
		assert.ErrorIs(t, err, expectedErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaimRepository_AttachPurchase(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClaimRepository{querier: mock, logger: newTestLogger()}
	tenantID := uuid.New()
	transactionID := uuid.New()
	purchaseID := uuid.New()

	query := `UPDATE processed_transactions`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(purchaseID, tenantID, transactionID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.AttachPurchase(ctx, tenantID, transactionID, purchaseID)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no claim to attach to", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(purchaseID, tenantID, transactionID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.AttachPurchase(ctx, tenantID, transactionID, purchaseID)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "no idempotency claim")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClaimRepository_Get(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &ClaimRepository{querier: mock, logger: newTestLogger()}
	tenantID := uuid.New()
	transactionID := uuid.New()
	purchaseID := uuid.New()
	now := time.Now()

	query := `SELECT tenant_id, transaction_id, purchase_id, processed_at`

	t.Run("claim with purchase", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"tenant_id", "transaction_id", "purchase_id", "processed_at"}).
			AddRow(tenantID, transactionID, &purchaseID, now)
		mock.ExpectQuery(query).
			WithArgs(tenantID, transactionID).
			WillReturnRows(rows)

		claim, err := repo.Get(ctx, tenantID, transactionID)
		require.NoError(t, err)
		require.NotNil(t, claim)
		assert.Equal(t, transactionID, claim.TransactionID)
		require.NotNil(t, claim.PurchaseID)
		assert.Equal(t, purchaseID, *claim.PurchaseID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("claim without purchase", func(t *testing.T) {
		rows := pgxmock.NewRows([]string{"tenant_id", "transaction_id", "purchase_id", "processed_at"}).
			AddRow(tenantID, transactionID, (*uuid.UUID)(nil), now)
		mock.ExpectQuery(query).
			WithArgs(tenantID, transactionID).
			WillReturnRows(rows)

		claim, err := repo.Get(ctx, tenantID, transactionID)
		require.NoError(t, err)
		require.NotNil(t, claim)
		assert.Nil(t, claim.PurchaseID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not processed yet", func(t *testing.T) {
		mock.ExpectQuery(query).
			WithArgs(tenantID, transactionID).
			WillReturnError(pgx.ErrNoRows)

		claim, err := repo.Get(ctx, tenantID, transactionID)
		assert.NoError(t, err)
		assert.Nil(t, claim)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
