package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	colBookings    = "agg_booking"
	colRefunds     = "agg_refund"
	colCoupons     = "agg_coupon"
	colRates       = "cfg_platform_rate"
	colResources   = "agg_resource"
	colCalendars   = "agg_calendar"
	colIdempotency = "app_idempotency"
)

type Client struct {
	DB *mongo.Database
}

func New(uri, database string) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	opts := options.Client().ApplyURI(uri).SetRetryWrites(true)
	m, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Client{DB: m.Database(database)}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.DB.Client().Ping(ctx, nil)
}

func (c *Client) Close(ctx context.Context) error {
	return c.DB.Client().Disconnect(ctx)
}

// indexSpecs lists the indexes the repositories rely on for uniqueness and
// for the sweeper scans. The idempotency index only covers documents that
// carry idem_live, so aborted attempts never collide on a reused key.
func indexSpecs() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colBookings: {
			{
				Keys: bson.D{{Key: "guest_id", Value: 1}, {Key: "idem_live", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"idem_live": bson.M{"$exists": true}}).
					SetName("guest_idem_live"),
			},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "window.checkout", Value: 1}}},
		},
		colRefunds: {
			{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colRates: {
			{Keys: bson.D{{Key: "effective_from", Value: 1}}},
		},
	}
}

func (c *Client) EnsureIndexes(ctx context.Context) error {
	for name, models := range indexSpecs() {
		if _, err := c.DB.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}
