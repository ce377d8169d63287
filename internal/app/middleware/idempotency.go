package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"time"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/commands"
)

// IdempotentCommand must be implemented by commands that want idempotency guarantees.
type IdempotentCommand interface {
	commands.Command
	// IdempotencyScope namespaces the key, typically by requester.
	IdempotencyScope() string
	IdempotencyKey() string
	ResultPrototype() any // should match the handler result type
}

type IdempotencyState string

const (
	IdempotencyInProgress IdempotencyState = "in_progress"
	IdempotencyCompleted  IdempotencyState = "completed"
)

type IdempotencyRecord struct {
	Key        string
	State      IdempotencyState
	Payload    []byte
	OccurredAt time.Time
}

// IdempotencyStore reserves keys atomically: exactly one caller of Reserve
// for a fresh key gets reserved=true.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key string) (existing IdempotencyRecord, reserved bool, err error)
	Complete(ctx context.Context, key string, payload []byte) error
	Release(ctx context.Context, key string) error
}

type ResultCodec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

type JSONResultCodec struct{}

func (JSONResultCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONResultCodec) Decode(data []byte, out any) error {
	return json.Unmarshal(data, out)
}

var (
	errMissingPrototype = errors.New("middleware: idempotent command requires result prototype")
)

// IdempotencyKeyFor builds the store key for a command.
func IdempotencyKeyFor(cmd IdempotentCommand) string {
	return cmd.Key() + ":" + cmd.IdempotencyScope() + ":" + cmd.IdempotencyKey()
}

// Idempotency replays completed results, rejects concurrent duplicates and
// releases the reservation on failure so the same key can be retried.
func Idempotency(store IdempotencyStore, codec ResultCodec) CommandMiddleware {
	if store == nil {
		panic("middleware: idempotency store required")
	}
	if codec == nil {
		codec = JSONResultCodec{}
	}
	return func(next commands.Bus) commands.Bus {
		nextFn := wrapCommand(next)
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			idCmd, ok := cmd.(IdempotentCommand)
			if !ok || idCmd.IdempotencyKey() == "" {
				return nextFn(ctx, cmd)
			}
			key := IdempotencyKeyFor(idCmd)
			rec, reserved, err := store.Reserve(ctx, key)
			if err != nil {
				return nil, err
			}
			if !reserved {
				if rec.State != IdempotencyCompleted {
					return nil, apperr.Newf(apperr.KindInProgress, cmd.Key(), "request with this idempotency key is still being processed")
				}
				proto := idCmd.ResultPrototype()
				if proto == nil {
					return nil, errMissingPrototype
				}
				if err := codec.Decode(rec.Payload, proto); err != nil {
					return nil, err
				}
				return normalizePrototype(proto), nil
			}

			result, err := nextFn(ctx, cmd)
			if err != nil {
				if relErr := store.Release(context.WithoutCancel(ctx), key); relErr != nil {
					return nil, errors.Join(err, relErr)
				}
				return nil, err
			}
			var payload []byte
			if result != nil {
				payload, err = codec.Encode(result)
				if err != nil {
					return nil, err
				}
			}
			if err := store.Complete(context.WithoutCancel(ctx), key, payload); err != nil {
				return nil, err
			}
			return result, nil
		})
	}
}

func normalizePrototype(proto any) any {
	rv := reflect.ValueOf(proto)
	if rv.Kind() == reflect.Ptr && !rv.IsNil() {
		return rv.Interface()
	}
	return proto
}
