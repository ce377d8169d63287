package middleware

import (
	"context"
	"errors"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/uow"
)

var ErrUnitOfWorkMissing = errors.New("middleware: unit of work not found")

type TxOptionsProvider func(cmd commands.Command) uow.TxOptions

// Transactional lets a command opt out of the surrounding transaction when
// it manages its own commit points.
type Transactional interface {
	Transactional() bool
}

func Transaction(factory uow.UoWFactory, optsProvider TxOptionsProvider) CommandMiddleware {
	if factory == nil {
		panic("middleware: uow factory required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if tx, ok := cmd.(Transactional); ok && !tx.Transactional() {
				return nextFn(ctx, cmd)
			}
			opts := uow.TxOptions{}
			if optsProvider != nil {
				opts = optsProvider(cmd)
			}
			unit, err := factory.Begin(ctx, opts)
			if err != nil {
				return nil, err
			}
			execCtx := uow.Inject(ctx, unit)
			execCtx, hooks := uow.WithHooks(execCtx)
			committed := false
			defer func() {
				if !committed {
					hooks.Discard()
					_ = unit.Rollback(execCtx)
				}
			}()

			res, err := nextFn(execCtx, cmd)
			if err != nil {
				return nil, err
			}
			if err := unit.Commit(execCtx); err != nil {
				return nil, err
			}
			committed = true
			hooks.Run(ctx)
			return res, nil
		})
	}
}
