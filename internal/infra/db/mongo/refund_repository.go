package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainrefunds "stayledger/internal/domain/refunds"
)

type RefundRepository struct {
	col *mongo.Collection
}

func NewRefundRepository(db *mongo.Database) *RefundRepository {
	return &RefundRepository{col: db.Collection(colRefunds)}
}

// Save inserts a refund or replaces the row with the same id.
func (r *RefundRepository) Save(ctx context.Context, refund *domainrefunds.Refund) error {
	doc := newRefundDocument(refund)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *RefundRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domainrefunds.Refund, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"booking_id": bookingID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []refundDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*domainrefunds.Refund, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRefund())
	}
	return out, nil
}

var _ domainrefunds.Repository = (*RefundRepository)(nil)
