// Package mongo provides the MongoDB implementation of the audit trail.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cardswitch/card-switch/internal/audit"
)

const (
	// AuditCollectionName is the name of the audit trail collection in MongoDB
	AuditCollectionName = "audit_records"
)

// AuditTrail implements the audit.TrailStore interface for MongoDB
type AuditTrail struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewAuditTrail creates a new MongoDB audit trail store
func NewAuditTrail(logger *slog.Logger, db *mongo.Database) audit.TrailStore {
	return &AuditTrail{
		db:     db,
		logger: logger,
	}
}

// Append stores one audit record. Records are immutable once written.
func (t *AuditTrail) Append(ctx context.Context, record *audit.Record) error {
	collection := t.db.Collection(AuditCollectionName)

	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		t.logger.Error("Failed to append audit record",
			"correlation_id", record.CorrelationID,
			"error", err)
		return fmt.Errorf("failed to append audit record: %w", err)
	}

	return nil
}

// FindByTimeRange retrieves audit records within the specified time window.
// Results are sorted by timestamp in descending order for recent-first access.
func (t *AuditTrail) FindByTimeRange(ctx context.Context, from, to time.Time, limit int64) ([]*audit.Record, error) {
	collection := t.db.Collection(AuditCollectionName)

	filter := bson.M{
		"timestamp": bson.M{
			"$gte": from,
			"$lte": to,
		},
	}
	opts := options.Find().
		SetSort(bson.M{"timestamp": -1}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		t.logger.Error("Failed to get audit records by time range",
			"from", from,
			"to", to,
			"error", err)
		return nil, fmt.Errorf("failed to get audit records by time range: %w", err)
	}
	defer cursor.Close(ctx)

	var records []*audit.Record
	if err := cursor.All(ctx, &records); err != nil {
		t.logger.Error("Failed to decode audit records",
			"from", from,
			"to", to,
			"error", err)
		return nil, fmt.Errorf("failed to decode audit records: %w", err)
	}

	return records, nil
}
