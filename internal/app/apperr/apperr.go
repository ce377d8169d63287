package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies failures crossing the application boundary.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindResourceConflict  Kind = "resource_conflict"
	KindUnauthorized      Kind = "unauthorized"
	KindInvalidTransition Kind = "invalid_transition"
	KindUpstreamFailure   Kind = "upstream_failure"
	KindInconsistent      Kind = "inconsistent"
	KindInProgress        Kind = "in_progress"
	KindRateLimited       Kind = "rate_limited"
)

type Error struct {
	Kind    Kind
	Op      string
	Message string
	// From and To are set for invalid transitions.
	From string
	To   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		return e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind so callers can test with the
// package sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Message == "" && t.Err == nil
}

var (
	Validation        = &Error{Kind: KindValidation}
	NotFound          = &Error{Kind: KindNotFound}
	ResourceConflict  = &Error{Kind: KindResourceConflict}
	Unauthorized      = &Error{Kind: KindUnauthorized}
	InvalidTransition = &Error{Kind: KindInvalidTransition}
	UpstreamFailure   = &Error{Kind: KindUpstreamFailure}
	Inconsistent      = &Error{Kind: KindInconsistent}
	InProgress        = &Error{Kind: KindInProgress}
	RateLimited       = &Error{Kind: KindRateLimited}
)

func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Newf(kind Kind, op string, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Transition(op, from, to string, err error) *Error {
	return &Error{Kind: KindInvalidTransition, Op: op, From: from, To: to, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
