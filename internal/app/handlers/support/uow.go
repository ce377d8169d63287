package support

import (
	"context"

	"stayledger/internal/app/uow"
)

// BeginReadOnlyUnit reuses the unit already in ctx or opens a read-only one.
// The returned cleanup is nil when the unit was borrowed.
func BeginReadOnlyUnit(ctx context.Context, factory uow.UoWFactory) (uow.UnitOfWork, context.Context, func(), error) {
	unit, ok := uow.FromContext(ctx)
	if ok {
		return unit, ctx, nil, nil
	}
	if factory == nil {
		return nil, ctx, nil, uow.ErrUnitOfWorkMissing
	}
	newUnit, err := factory.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, ctx, nil, err
	}
	execCtx := uow.Inject(ctx, newUnit)
	cleanup := func() {
		_ = newUnit.Rollback(execCtx)
	}
	return newUnit, execCtx, cleanup, nil
}

// InUnit runs fn inside the unit carried by ctx, or inside a fresh unit that
// is committed when fn succeeds.
func InUnit(ctx context.Context, factory uow.UoWFactory, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	if unit, ok := uow.FromContext(ctx); ok {
		return fn(ctx, unit)
	}
	if factory == nil {
		return uow.ErrUnitOfWorkMissing
	}
	return uow.Run(ctx, factory, uow.TxOptions{}, fn)
}
