package memory

import (
	"context"
	"errors"

	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	domaincoupons "stayledger/internal/domain/coupons"
	domainpricing "stayledger/internal/domain/pricing"
	domainrefunds "stayledger/internal/domain/refunds"
)

// Factory wires in-memory repositories into a unit-of-work boundary.
type Factory struct {
	CatalogRepo domaincatalog.Repository
	BookingRepo domainbooking.Repository
	RefundRepo  domainrefunds.Repository
	CouponRepo  domaincoupons.Repository
	RateRepo    domainpricing.RateRepository
}

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Begin starts a lightweight transaction boundary. No isolation is provided;
// the booking version check is what serializes writers.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.CatalogRepo == nil || f.BookingRepo == nil || f.RefundRepo == nil || f.CouponRepo == nil || f.RateRepo == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		catalog:  f.CatalogRepo,
		bookings: f.BookingRepo,
		refunds:  f.RefundRepo,
		coupons:  f.CouponRepo,
		rates:    f.RateRepo,
	}, nil
}

// Unit is a lightweight uow.UnitOfWork backed by in-memory stores.
type Unit struct {
	catalog  domaincatalog.Repository
	bookings domainbooking.Repository
	refunds  domainrefunds.Repository
	coupons  domaincoupons.Repository
	rates    domainpricing.RateRepository
}

func (u *Unit) Catalog() domaincatalog.Repository { return u.catalog }

func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }

func (u *Unit) Refunds() domainrefunds.Repository { return u.refunds }

func (u *Unit) Coupons() domaincoupons.Repository { return u.coupons }

func (u *Unit) Rates() domainpricing.RateRepository { return u.rates }

func (u *Unit) Commit(ctx context.Context) error {
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	return nil
}
