package memory

import (
	"context"
	"sync"

	domaincoupons "stayledger/internal/domain/coupons"
	domainpricing "stayledger/internal/domain/pricing"
)

// RateRepository keeps the platform fee history. The active version is
// always the last element.
type RateRepository struct {
	mu       sync.Mutex
	versions []domainpricing.RateVersion
}

// NewRateRepository seeds the history with an initial active version.
func NewRateRepository(initial domainpricing.RateVersion) *RateRepository {
	initial.IsActive = true
	initial.EffectiveTo = nil
	return &RateRepository{versions: []domainpricing.RateVersion{initial}}
}

func (r *RateRepository) Active(ctx context.Context) (domainpricing.RateVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.versions) == 0 {
		return domainpricing.RateVersion{}, domainpricing.ErrNoActiveRate
	}
	return r.versions[len(r.versions)-1], nil
}

func (r *RateRepository) ChangeRate(ctx context.Context, next domainpricing.RateVersion) (domainpricing.RateVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.versions); n > 0 {
		r.versions[n-1].Close(next.EffectiveFrom)
	}
	next.IsActive = true
	next.EffectiveTo = nil
	r.versions = append(r.versions, next)
	return next, nil
}

func (r *RateRepository) History(ctx context.Context) ([]domainpricing.RateVersion, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domainpricing.RateVersion, len(r.versions))
	copy(out, r.versions)
	return out, nil
}

// CouponRepository keeps coupons keyed by normalized code. Redeem checks
// and appends under one lock.
type CouponRepository struct {
	mu    sync.Mutex
	items map[string]*domaincoupons.Coupon
}

func NewCouponRepository(coupons ...domaincoupons.Coupon) *CouponRepository {
	r := &CouponRepository{items: make(map[string]*domaincoupons.Coupon)}
	for _, c := range coupons {
		c := c
		c.Code = domaincoupons.Normalize(c.Code)
		r.items[c.Code] = &c
	}
	return r
}

func (r *CouponRepository) ByCode(ctx context.Context, code string) (*domaincoupons.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[domaincoupons.Normalize(code)]
	if !ok {
		return nil, domaincoupons.ErrCouponNotFound
	}
	cp := *c
	cp.UsedBy = append([]string(nil), c.UsedBy...)
	return &cp, nil
}

func (r *CouponRepository) Save(ctx context.Context, coupon *domaincoupons.Coupon) error {
	if err := coupon.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *coupon
	cp.Code = domaincoupons.Normalize(cp.Code)
	cp.UsedBy = append([]string(nil), coupon.UsedBy...)
	r.items[cp.Code] = &cp
	return nil
}

func (r *CouponRepository) Redeem(ctx context.Context, code, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[domaincoupons.Normalize(code)]
	if !ok {
		return domaincoupons.ErrCouponNotFound
	}
	if c.UsedByUser(userID) {
		return domaincoupons.ErrAlreadyRedeemed
	}
	c.UsedBy = append(c.UsedBy, userID)
	return nil
}

func (r *CouponRepository) Unredeem(ctx context.Context, code, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[domaincoupons.Normalize(code)]
	if !ok {
		return domaincoupons.ErrCouponNotFound
	}
	kept := c.UsedBy[:0]
	for _, id := range c.UsedBy {
		if id != userID {
			kept = append(kept, id)
		}
	}
	c.UsedBy = kept
	return nil
}

var (
	_ domainpricing.RateRepository = (*RateRepository)(nil)
	_ domaincoupons.Repository     = (*CouponRepository)(nil)
)
