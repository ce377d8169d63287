package middleware

import (
	"context"
	"time"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/commands"
	"stayledger/internal/app/queries"
)

// Recorder receives one observation per dispatched message.
type Recorder interface {
	ObserveCommand(name, outcome string, elapsed time.Duration)
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	if kind, ok := apperr.KindOf(err); ok {
		return string(kind)
	}
	return "error"
}

func CommandMetrics(r Recorder) CommandMiddleware {
	if r == nil {
		panic("middleware: recorder required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, cmd)
			r.ObserveCommand(cmd.Key(), outcomeOf(err), time.Since(start))
			return res, err
		})
	}
}

func QueryMetrics(r Recorder) QueryMiddleware {
	if r == nil {
		panic("middleware: recorder required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := nextFn(ctx, q)
			r.ObserveCommand(q.Key(), outcomeOf(err), time.Since(start))
			return res, err
		})
	}
}
