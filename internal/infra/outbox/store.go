package outbox

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "stayledger/internal/app/outbox"
)

const (
	stateNew     = "NEW"
	stateClaimed = "CLAIMED"
	stateSent    = "SENT"
	stateFailed  = "FAILED"
)

const defaultLease = time.Minute

// Store is the Mongo-backed outbox. Add joins the caller's transaction when
// ctx carries a session, so events commit together with the aggregate.
type Store struct {
	col   *mongo.Collection
	lease time.Duration
	now   func() time.Time
}

func NewStore(db *mongo.Database) *Store {
	return &Store{
		col:   db.Collection("app_outbox"),
		lease: defaultLease,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "next_attempt_at", Value: 1}}},
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "claimed_at", Value: 1}}},
	})
	return err
}

func (s *Store) Add(ctx context.Context, record appoutbox.EventRecord) error {
	now := s.now()
	doc := eventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       stateNew,
		NextAttempt: now,
		CreatedAt:   now,
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

// Flush is a no-op: the worker polls the collection.
func (s *Store) Flush(context.Context) error {
	return nil
}

type eventDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Payload     []byte            `bson:"payload"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	Aggregate   string            `bson:"aggregate"`
	Headers     map[string]string `bson:"headers"`
	State       string            `bson:"state"`
	Attempts    int               `bson:"attempts"`
	NextAttempt time.Time         `bson:"next_attempt_at"`
	ClaimedBy   string            `bson:"claimed_by,omitempty"`
	ClaimedAt   time.Time         `bson:"claimed_at,omitempty"`
	SentAt      time.Time         `bson:"sent_at,omitempty"`
	LastError   string            `bson:"last_error,omitempty"`
	CreatedAt   time.Time         `bson:"created_at"`
}

func (d eventDocument) toPending() *appoutbox.Pending {
	return &appoutbox.Pending{
		EventRecord: appoutbox.EventRecord{
			ID:         d.ID,
			Name:       d.Name,
			Payload:    d.Payload,
			OccurredAt: d.OccurredAt,
			Aggregate:  d.Aggregate,
			Headers:    d.Headers,
		},
		Attempts: d.Attempts,
	}
}

// Claim takes the oldest due record. Records claimed by a worker that died
// become claimable again once the lease runs out.
func (s *Store) Claim(ctx context.Context, workerID string) (*appoutbox.Pending, error) {
	now := s.now()
	filter := bson.M{"$or": []bson.M{
		{"state": bson.M{"$in": []string{stateNew, stateFailed}}, "next_attempt_at": bson.M{"$lte": now}},
		{"state": stateClaimed, "claimed_at": bson.M{"$lte": now.Add(-s.lease)}},
	}}
	update := bson.M{"$set": bson.M{"state": stateClaimed, "claimed_by": workerID, "claimed_at": now}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "next_attempt_at", Value: 1}})
	var doc eventDocument
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return doc.toPending(), nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"state": stateSent, "sent_at": s.now()}})
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	update := bson.M{
		"$set": bson.M{
			"state":           stateFailed,
			"next_attempt_at": next,
			"last_error":      errMsg,
		},
		"$inc": bson.M{"attempts": 1},
	}
	_, err := s.col.UpdateByID(ctx, id, update)
	return err
}

var (
	_ appoutbox.Outbox = (*Store)(nil)
	_ appoutbox.Queue  = (*Store)(nil)
)
