package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	domaincoupons "stayledger/internal/domain/coupons"
	domainpricing "stayledger/internal/domain/pricing"
	domainrefunds "stayledger/internal/domain/refunds"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	CatalogRepo domaincatalog.Repository
	BookingRepo domainbooking.Repository
	RefundRepo  domainrefunds.Repository
	CouponRepo  domaincoupons.Repository
	RateRepo    domainpricing.RateRepository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// NewFactory builds a factory over the collection-backed repositories of db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:          db,
		CatalogRepo: NewCatalogRepository(db),
		BookingRepo: NewBookingRepository(db),
		RefundRepo:  NewRefundRepository(db),
		CouponRepo:  NewCouponRepository(db),
		RateRepo:    NewRateRepository(db),
	}
}

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Majority())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:  session,
		catalog:  f.CatalogRepo,
		bookings: f.BookingRepo,
		refunds:  f.RefundRepo,
		coupons:  f.CouponRepo,
		rates:    f.RateRepo,
	}, nil
}

type Unit struct {
	session mongo.Session

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
	defer u.session.EndSession(ctx)
	return u.session.CommitTransaction(ctx)
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}
