package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/commands"
	"stayledger/internal/app/queries"
)

type Validator interface {
	Validate(ctx context.Context, message any) error
}

// StructValidator checks `validate` struct tags on commands and queries.
type StructValidator struct {
	v *validator.Validate
}

func NewStructValidator() *StructValidator {
	return &StructValidator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (s *StructValidator) Validate(_ context.Context, message any) error {
	err := s.v.Struct(message)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	var fields validator.ValidationErrors
	if errors.As(err, &fields) {
		parts := make([]string, 0, len(fields))
		for _, f := range fields {
			parts = append(parts, fmt.Sprintf("%s failed %s", f.Field(), f.Tag()))
		}
		return apperr.New(apperr.KindValidation, opOf(message), errors.New(strings.Join(parts, "; ")))
	}
	return apperr.New(apperr.KindValidation, opOf(message), err)
}

func opOf(message any) string {
	if named, ok := message.(interface{ Key() string }); ok {
		return named.Key()
	}
	return ""
}

func Validation(v Validator) CommandMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := v.Validate(ctx, cmd); err != nil {
				return nil, err
			}
			return nextFn(ctx, cmd)
		})
	}
}

func QueryValidation(v Validator) QueryMiddleware {
	if v == nil {
		panic("middleware: validator required")
	}
	return func(next queries.Bus) queries.Bus {
		nextFn := wrapQuery(next)
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := v.Validate(ctx, q); err != nil {
				return nil, err
			}
			return nextFn(ctx, q)
		})
	}
}
