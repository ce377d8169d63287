package middleware

import (
	"context"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/commands"
	"stayledger/internal/app/queries"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// RoleGuarded is implemented by messages restricted to some actor roles.
type RoleGuarded interface {
	ActorRole() string
	AllowedRoles() []string
}

// RoleAuthorizer rejects RoleGuarded messages whose actor role is not allowed.
// Ownership checks stay in the handlers.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(_ context.Context, message any) error {
	guarded, ok := message.(RoleGuarded)
	if !ok {
		return nil
	}
	role := guarded.ActorRole()
	for _, allowed := range guarded.AllowedRoles() {
		if allowed == role {
			return nil
		}
	}
	op := ""
	if named, ok := message.(interface{ Key() string }); ok {
		op = named.Key()
	}
	return apperr.Newf(apperr.KindUnauthorized, op, "role %q may not perform this action", role)
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
