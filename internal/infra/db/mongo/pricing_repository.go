package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincoupons "stayledger/internal/domain/coupons"
	domainpricing "stayledger/internal/domain/pricing"
)

// RateRepository stores the append-only platform fee history.
type RateRepository struct {
	col *mongo.Collection
}

func NewRateRepository(db *mongo.Database) *RateRepository {
	return &RateRepository{col: db.Collection(colRates)}
}

func (r *RateRepository) Active(ctx context.Context) (domainpricing.RateVersion, error) {
	var doc rateDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "effective_from", Value: -1}})
	if err := r.col.FindOne(ctx, bson.M{"is_active": true}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainpricing.RateVersion{}, domainpricing.ErrNoActiveRate
		}
		return domainpricing.RateVersion{}, err
	}
	return doc.toVersion(), nil
}

// ChangeRate closes every active version and inserts next. Callers run it
// inside a unit of work so both writes commit together.
func (r *RateRepository) ChangeRate(ctx context.Context, next domainpricing.RateVersion) (domainpricing.RateVersion, error) {
	closeAt := next.EffectiveFrom
	if _, err := r.col.UpdateMany(ctx, bson.M{"is_active": true}, bson.M{"$set": bson.M{"is_active": false, "effective_to": closeAt}}); err != nil {
		return domainpricing.RateVersion{}, err
	}
	next.IsActive = true
	next.EffectiveTo = nil
	if _, err := r.col.InsertOne(ctx, newRateDocument(next)); err != nil {
		return domainpricing.RateVersion{}, err
	}
	return next, nil
}

func (r *RateRepository) History(ctx context.Context) ([]domainpricing.RateVersion, error) {
	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "effective_from", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []rateDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domainpricing.RateVersion, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toVersion())
	}
	return out, nil
}

// Seed inserts initial when no version exists yet.
func (r *RateRepository) Seed(ctx context.Context, initial domainpricing.RateVersion) error {
	n, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil || n > 0 {
		return err
	}
	initial.IsActive = true
	_, err = r.col.InsertOne(ctx, newRateDocument(initial))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

type CouponRepository struct {
	col *mongo.Collection
}

func NewCouponRepository(db *mongo.Database) *CouponRepository {
	return &CouponRepository{col: db.Collection(colCoupons)}
}

func (r *CouponRepository) ByCode(ctx context.Context, code string) (*domaincoupons.Coupon, error) {
	var doc couponDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": domaincoupons.Normalize(code)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaincoupons.ErrCouponNotFound
		}
		return nil, err
	}
	return doc.toCoupon(), nil
}

func (r *CouponRepository) Save(ctx context.Context, coupon *domaincoupons.Coupon) error {
	doc := newCouponDocument(coupon)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.Code}, doc, options.Replace().SetUpsert(true))
	return err
}

// Redeem adds userID to used_by only if it is absent, in one update.
func (r *CouponRepository) Redeem(ctx context.Context, code, userID string) error {
	code = domaincoupons.Normalize(code)
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": code, "used_by": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"used_by": userID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	if _, err := r.ByCode(ctx, code); err != nil {
		return err
	}
	return domaincoupons.ErrAlreadyRedeemed
}

func (r *CouponRepository) Unredeem(ctx context.Context, code, userID string) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"_id": domaincoupons.Normalize(code)},
		bson.M{"$pull": bson.M{"used_by": userID}},
	)
	return err
}

var (
	_ domainpricing.RateRepository = (*RateRepository)(nil)
	_ domaincoupons.Repository     = (*CouponRepository)(nil)
)
