package uow

import (
	"context"

	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	domaincoupons "stayledger/internal/domain/coupons"
	domainpricing "stayledger/internal/domain/pricing"
	domainrefunds "stayledger/internal/domain/refunds"
)

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Catalog() domaincatalog.Repository
	Bookings() domainbooking.Repository
	Refunds() domainrefunds.Repository
	Coupons() domaincoupons.Repository
	Rates() domainpricing.RateRepository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// Run begins a unit, runs fn inside it and commits. Post-commit hooks
// registered by fn run only once the commit succeeded.
func Run(ctx context.Context, factory UoWFactory, opts TxOptions, fn func(ctx context.Context, unit UnitOfWork) error) error {
	unit, err := factory.Begin(ctx, opts)
	if err != nil {
		return err
	}
	execCtx := Inject(ctx, unit)
	execCtx, hooks := WithHooks(execCtx)
	if err := fn(execCtx, unit); err != nil {
		_ = unit.Rollback(execCtx)
		return err
	}
	if err := unit.Commit(execCtx); err != nil {
		return err
	}
	hooks.Run(ctx)
	return nil
}

// Inject stores unit in ctx, letting the unit add its own session first.
func Inject(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}
