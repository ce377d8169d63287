package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayledger/internal/app/middleware"
)

const defaultIdempotencyTTL = 7 * 24 * time.Hour

type IdempotencyStore struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewIdempotencyStore(db *mongo.Database, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{col: db.Collection(colIdempotency), ttl: ttl}
}

// EnsureIndexes installs the expiry index on created_at.
func (s *IdempotencyStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(s.ttl.Seconds())),
	})
	return err
}

// Reserve inserts an in-progress record. A duplicate key means another call
// owns or completed the key; that record is returned instead.
func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	now := time.Now().UTC()
	doc := idempotencyDocument{
		ID:         key,
		State:      string(middleware.IdempotencyInProgress),
		OccurredAt: now,
		CreatedAt:  now,
	}
	_, err := s.col.InsertOne(ctx, doc)
	if err == nil {
		return middleware.IdempotencyRecord{}, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return middleware.IdempotencyRecord{}, false, err
	}
	var existing idempotencyDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&existing); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// expired or released between the insert and the read
			return s.Reserve(ctx, key)
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return existing.toRecord(), false, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, payload []byte) error {
	_, err := s.col.UpdateByID(ctx, key, bson.M{"$set": bson.M{
		"state":       string(middleware.IdempotencyCompleted),
		"payload":     payload,
		"occurred_at": time.Now().UTC(),
	}}, options.Update().SetUpsert(true))
	return err
}

// Release drops an in-progress reservation; completed records stay.
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": key, "state": string(middleware.IdempotencyInProgress)})
	return err
}

type idempotencyDocument struct {
	ID         string    `bson:"_id"`
	State      string    `bson:"state"`
	Payload    []byte    `bson:"payload,omitempty"`
	OccurredAt time.Time `bson:"occurred_at"`
	CreatedAt  time.Time `bson:"created_at"`
}

func (d idempotencyDocument) toRecord() middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{
		Key:        d.ID,
		State:      middleware.IdempotencyState(d.State),
		Payload:    d.Payload,
		OccurredAt: d.OccurredAt,
	}
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
