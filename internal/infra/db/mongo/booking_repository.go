package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "stayledger/internal/domain/booking"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(colBookings)}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *BookingRepository) ByIdempotencyKey(ctx context.Context, guestID, key string) (*domainbooking.Booking, error) {
	return r.findOne(ctx, bson.M{"guest_id": guestID, "idem_live": key})
}

func (r *BookingRepository) findOne(ctx context.Context, filter bson.M) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

// Save inserts a booking with Version 0 and otherwise replaces the stored
// document only if its version still matches.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	doc.Version = b.Version + 1
	if b.Version == 0 {
		if _, err := r.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domainbooking.ErrDuplicateBooking
			}
			return err
		}
		b.Version = doc.Version
		return nil
	}
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	update := bson.M{"$set": doc}
	if doc.IdemLive == "" {
		// omitempty drops the field from $set; it has to be removed explicitly
		update["$unset"] = bson.M{"idem_live": ""}
	}
	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrDuplicateBooking
		}
		return err
	}
	if res.MatchedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ListStale(ctx context.Context, status domainbooking.Status, cutoff time.Time, limit int) ([]*domainbooking.Booking, error) {
	filter := bson.M{"status": string(status), "updated_at": bson.M{"$lt": cutoff}}
	return r.list(ctx, filter, limit)
}

func (r *BookingRepository) ListEndedBefore(ctx context.Context, status domainbooking.Status, cutoff time.Time, limit int) ([]*domainbooking.Booking, error) {
	filter := bson.M{"status": string(status), "window.checkout": bson.M{"$lt": cutoff}}
	return r.list(ctx, filter, limit)
}

func (r *BookingRepository) list(ctx context.Context, filter bson.M, limit int) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []bookingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainbooking.Booking, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
