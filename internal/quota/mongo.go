package quota

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"tourgate/internal/config"
	"tourgate/internal/logging"
)

// MongoStore implements the atomic sliding-window update as a single
// aggregation-pipeline FindOneAndUpdate: filter the stored timestamps to the
// trailing window, append "now" only when the filtered count is below the
// limit, and return the post-image — one server-side round trip, so two
// concurrent requests for the same fingerprint can never both squeeze through
// the last slot.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     logging.Logger
}

type rateLimitRecord struct {
	Fingerprint string      `bson:"_id"`
	Timestamps  []time.Time `bson:"timestamps"`
	Admitted    bool        `bson:"admitted"`
	UpdatedAt   time.Time   `bson:"updatedAt"`
	CreatedAt   time.Time   `bson:"createdAt"`
}

// NewMongoStore connects to the quota database and ensures the TTL index that
// expires stale records after the retention period (retention > window, so
// cleanup never touches an active quota).
func NewMongoStore(ctx context.Context, cfg config.QuotaConfig) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("connect quota store: %w", err)
	}

	store := &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logging.NewComponentLogger("QuotaStore"),
	}

	if err := store.ensureTTLIndex(ctx, cfg.Retention()); err != nil {
		store.logger.Warn("Failed to ensure TTL index: %v", err)
	}

	return store, nil
}

func (s *MongoStore) ensureTTLIndex(ctx context.Context, retention time.Duration) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "updatedAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
	})
	return err
}

// Admit executes the pipeline update and reads the window state from the
// returned post-image. The admission verdict is computed inside the pipeline
// and stored on the document, so the decision shares the update's atomicity:
// deriving it client-side from the appended timestamp would mis-admit two
// requests whose instants collide.
func (s *MongoStore) Admit(ctx context.Context, fingerprint string, now time.Time, window time.Duration, limit int) (WindowState, error) {
	cutoff := now.Add(-window)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"kept": bson.M{"$filter": bson.M{
				"input": bson.M{"$ifNull": bson.A{"$timestamps", bson.A{}}},
				"as":    "ts",
				"cond":  bson.M{"$gte": bson.A{"$$ts", cutoff}},
			}},
		}}},
		bson.D{{Key: "$set", Value: bson.M{
			"admitted": bson.M{"$lt": bson.A{bson.M{"$size": "$kept"}, limit}},
		}}},
		bson.D{{Key: "$set", Value: bson.M{
			"timestamps": bson.M{"$cond": bson.A{
				"$admitted",
				bson.M{"$concatArrays": bson.A{"$kept", bson.A{now}}},
				"$kept",
			}},
			"updatedAt": "$$NOW",
			"createdAt": bson.M{"$ifNull": bson.A{"$createdAt", "$$NOW"}},
		}}},
		bson.D{{Key: "$unset", Value: "kept"}},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var record rateLimitRecord
	err := s.collection.FindOneAndUpdate(ctx, bson.M{"_id": fingerprint}, pipeline, opts).Decode(&record)
	if err != nil {
		return WindowState{}, fmt.Errorf("quota update for %s: %w", fingerprint, err)
	}

	state := WindowState{Count: len(record.Timestamps), Allowed: record.Admitted}
	if len(record.Timestamps) > 0 {
		state.Oldest = record.Timestamps[0].UTC()
	}
	return state, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
