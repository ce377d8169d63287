package middleware

import (
	"context"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/commands"
)

// RateLimited is implemented by commands throttled per requester.
type RateLimited interface {
	RateLimitKey() string
}

type Limiter interface {
	Allow(key string) bool
}

func RateLimit(l Limiter) CommandMiddleware {
	if l == nil {
		panic("middleware: limiter required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if limited, ok := cmd.(RateLimited); ok {
				if key := limited.RateLimitKey(); key != "" && !l.Allow(key) {
					return nil, apperr.Newf(apperr.KindRateLimited, cmd.Key(), "too many requests")
				}
			}
			return nextFn(ctx, cmd)
		})
	}
}
