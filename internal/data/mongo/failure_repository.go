package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bitstash-treasury-engine/internal/domain/failure"
)

const (
	// FailureCollectionName is the name of the processing failure collection in MongoDB
	FailureCollectionName = "processing_failures"
)

// FailureRepository implements the failure.Repository interface for MongoDB
type FailureRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewFailureRepository creates a new MongoDB processing failure repository
func NewFailureRepository(logger *slog.Logger, db *mongo.Database) failure.Repository {
	return &FailureRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new processing failure record. Records are append-only;
// a transaction can accumulate one record per failed attempt.
func (r *FailureRepository) Create(ctx context.Context, f *failure.ProcessingFailure) error {
	collection := r.db.Collection(FailureCollectionName)

	_, err := collection.InsertOne(ctx, f)
	if err != nil {
		r.logger.Error("Failed to create processing failure record",
			"tenant_id", f.TenantID.String(),
			"transaction_id", f.TransactionID.String(),
			"error", err)
		return fmt.Errorf("failed to create processing failure record: %w", err)
	}

	return nil
}

// GetByID retrieves a failure record scoped to its tenant.
// Returns ErrFailureNotFound if no record exists.
func (r *FailureRepository) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*failure.ProcessingFailure, error) {
	collection := r.db.Collection(FailureCollectionName)

	filter := bson.M{"_id": id, "tenant_id": tenantID}
	var f failure.ProcessingFailure
	err := collection.FindOne(ctx, filter).Decode(&f)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, failure.ErrFailureNotFound{ID: id}
		}
		r.logger.Error("Failed to get processing failure record",
			"tenant_id", tenantID.String(),
			"failure_id", id.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get processing failure record: %w", err)
	}

	return &f, nil
}

// GetByTransactionID retrieves all failure records for a source transaction,
// oldest first, so operators can follow the attempt history.
func (r *FailureRepository) GetByTransactionID(ctx context.Context, tenantID, transactionID uuid.UUID) ([]*failure.ProcessingFailure, error) {
	collection := r.db.Collection(FailureCollectionName)

	filter := bson.M{"tenant_id": tenantID, "transaction_id": transactionID}
	opts := options.Find().SetSort(bson.M{"created_at": 1})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to get processing failure records",
			"tenant_id", tenantID.String(),
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to get processing failure records: %w", err)
	}
	defer cursor.Close(ctx)

	var failures []*failure.ProcessingFailure
	if err := cursor.All(ctx, &failures); err != nil {
		r.logger.Error("Failed to decode processing failure records",
			"tenant_id", tenantID.String(),
			"transaction_id", transactionID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode processing failure records: %w", err)
	}

	return failures, nil
}

// ListByTenant retrieves paginated failure records for a tenant.
// Results are sorted by creation time in descending order (newest first).
func (r *FailureRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, unresolvedOnly bool, limit, offset int) ([]*failure.ProcessingFailure, error) {
	collection := r.db.Collection(FailureCollectionName)

	filter := bson.M{"tenant_id": tenantID}
	if unresolvedOnly {
		filter["is_resolved"] = false
	}
	opts := options.Find().
		SetSort(bson.M{"created_at": -1}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list processing failure records",
			"tenant_id", tenantID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to list processing failure records: %w", err)
	}
	defer cursor.Close(ctx)

	var failures []*failure.ProcessingFailure
	if err := cursor.All(ctx, &failures); err != nil {
		r.logger.Error("Failed to decode processing failure records",
			"tenant_id", tenantID.String(),
			"error", err)
		return nil, fmt.Errorf("failed to decode processing failure records: %w", err)
	}

	return failures, nil
}

// CountByTenant counts a tenant's failure records
func (r *FailureRepository) CountByTenant(ctx context.Context, tenantID uuid.UUID, unresolvedOnly bool) (int64, error) {
	collection := r.db.Collection(FailureCollectionName)

	filter := bson.M{"tenant_id": tenantID}
	if unresolvedOnly {
		filter["is_resolved"] = false
	}
	count, err := collection.CountDocuments(ctx, filter)
	if err != nil {
		r.logger.Error("Failed to count processing failure records",
			"tenant_id", tenantID.String(),
			"error", err)
		return 0, fmt.Errorf("failed to count processing failure records: %w", err)
	}

	return count, nil
}

// MarkResolved flags a failure record as handled by an operator.
// Returns ErrFailureNotFound if the record doesn't exist.
func (r *FailureRepository) MarkResolved(ctx context.Context, tenantID, id uuid.UUID) error {
	collection := r.db.Collection(FailureCollectionName)

	filter := bson.M{"_id": id, "tenant_id": tenantID}
	update := bson.M{
		"$set": bson.M{
			"is_resolved": true,
			"resolved_at": time.Now(),
		},
	}

	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		r.logger.Error("Failed to mark processing failure resolved",
			"tenant_id", tenantID.String(),
			"failure_id", id.String(),
			"error", err)
		return fmt.Errorf("failed to mark processing failure resolved: %w", err)
	}

	if result.MatchedCount == 0 {
		return failure.ErrFailureNotFound{ID: id}
	}

	return nil
}
