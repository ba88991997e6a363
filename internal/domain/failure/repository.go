package failure

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages processing failure persistence. The store is
// append-heavy: the engine only inserts; operators list and resolve.
type Repository interface {
	Create(ctx context.Context, f *ProcessingFailure) error
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*ProcessingFailure, error)
	GetByTransactionID(ctx context.Context, tenantID, transactionID uuid.UUID) ([]*ProcessingFailure, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, unresolvedOnly bool, limit, offset int) ([]*ProcessingFailure, error)
	CountByTenant(ctx context.Context, tenantID uuid.UUID, unresolvedOnly bool) (int64, error)
	MarkResolved(ctx context.Context, tenantID, id uuid.UUID) error
}
