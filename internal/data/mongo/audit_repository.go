// Package mongo provides the MongoDB-backed payment audit ledger.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/course-commerce-payments/internal/domain/audit"
)

const (
	// AuditCollectionName is the name of the audit collection in MongoDB
	AuditCollectionName = "payment_audit"

	defaultAuditListLimit = 100
)

// AuditRepository implements the audit.Repository interface for MongoDB
type AuditRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditRepository creates a new MongoDB audit repository
func NewAuditRepository(logger *slog.Logger, db *mongo.Database) audit.Repository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Append inserts an audit record. Records are never updated or removed.
func (r *AuditRepository) Append(ctx context.Context, record *audit.Record) error {
	collection := r.db.Collection(AuditCollectionName)

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	if _, err := collection.InsertOne(ctx, record); err != nil {
		r.logger.Error("Failed to append audit record",
			"order_code", record.OrderCode,
			"kind", string(record.Kind),
			"error", err)
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	return nil
}

// ListByOrderCode returns the audit trail of one order, newest first
func (r *AuditRepository) ListByOrderCode(ctx context.Context, orderCode string, limit int) ([]*audit.Record, error) {
	collection := r.db.Collection(AuditCollectionName)

	if limit <= 0 {
		limit = defaultAuditListLimit
	}

	filter := bson.M{"order_code": orderCode}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		r.logger.Error("Failed to list audit records",
			"order_code", orderCode,
			"error", err)
		return nil, fmt.Errorf("failed to list audit records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		r.logger.Error("Failed to decode audit records",
			"order_code", orderCode,
			"error", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}
