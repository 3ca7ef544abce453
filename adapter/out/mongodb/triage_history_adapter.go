package mongodb

import (
	"context"
	"fmt"
	"time"

	"triage_server/core/domain"
	"triage_server/core/port/out"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// =============================================================================
// MongoDB History Adapter
// =============================================================================

const collectionHistory = "triage_history"

// HistoryAdapter implements out.HistoryRepository using MongoDB.
type HistoryAdapter struct {
	collection *mongo.Collection
}

// NewHistoryAdapter creates a new MongoDB history adapter.
func NewHistoryAdapter(db *mongo.Database) *HistoryAdapter {
	return &HistoryAdapter{collection: db.Collection(collectionHistory)}
}

var _ out.HistoryRepository = (*HistoryAdapter)(nil)

func (a *HistoryAdapter) Name() string { return "mongo" }

// EnsureIndexes creates necessary indexes for the collection.
func (a *HistoryAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "timestamp_ns", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "category", Value: 1}},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// historyDocument represents the MongoDB document structure.
type historyDocument struct {
	Message           string    `bson:"message"`
	Category          string    `bson:"category"`
	Urgency           string    `bson:"urgency"`
	RecommendedAction string    `bson:"recommended_action"`
	Reasoning         string    `bson:"reasoning"`
	TimestampNs       int64     `bson:"timestamp_ns"` // identity; BSON dates are millisecond precision
	Timestamp         time.Time `bson:"timestamp"`
}

func toDocument(r *domain.Analysis) *historyDocument {
	return &historyDocument{
		Message:           r.Message,
		Category:          r.Category,
		Urgency:           string(r.Urgency),
		RecommendedAction: r.RecommendedAction,
		Reasoning:         r.Reasoning,
		TimestampNs:       r.Timestamp.UnixNano(),
		Timestamp:         r.Timestamp,
	}
}

func (d *historyDocument) toEntity() *domain.Analysis {
	return &domain.Analysis{
		Message:           d.Message,
		Category:          d.Category,
		Urgency:           domain.Urgency(d.Urgency),
		RecommendedAction: d.RecommendedAction,
		Reasoning:         d.Reasoning,
		Timestamp:         time.Unix(0, d.TimestampNs).UTC(),
	}
}

func (a *HistoryAdapter) Append(ctx context.Context, record *domain.Analysis) error {
	if _, err := a.collection.InsertOne(ctx, toDocument(record)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return out.ErrDuplicateTimestamp
		}
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// List returns records in insertion order (ObjectID order).
func (a *HistoryAdapter) List(ctx context.Context, filter domain.HistoryFilter) ([]*domain.Analysis, error) {
	query := bson.M{}
	if !filter.MatchesAll() {
		query["category"] = filter.Category
	}

	cursor, err := a.collection.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []historyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}

	records := make([]*domain.Analysis, len(docs))
	for i := range docs {
		records[i] = docs[i].toEntity()
	}
	return records, nil
}

func (a *HistoryAdapter) DeleteByTimestamp(ctx context.Context, ts time.Time) error {
	result, err := a.collection.DeleteOne(ctx, bson.M{"timestamp_ns": ts.UnixNano()})
	if err != nil {
		return fmt.Errorf("failed to delete history record: %w", err)
	}
	if result.DeletedCount == 0 {
		return out.ErrHistoryNotFound
	}
	return nil
}

func (a *HistoryAdapter) Clear(ctx context.Context) error {
	if _, err := a.collection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}
