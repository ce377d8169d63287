package memory

import (
	"context"
	"sync"
	"time"

	"stayledger/internal/app/middleware"
)

// IdempotencyStore reserves keys under a single mutex.
type IdempotencyStore struct {
	mu    sync.Mutex
	items map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]middleware.IdempotencyRecord)}
}

func (s *IdempotencyStore) Reserve(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.items[key]; ok {
		return rec, false, nil
	}
	s.items[key] = middleware.IdempotencyRecord{
		Key:        key,
		State:      middleware.IdempotencyInProgress,
		OccurredAt: time.Now().UTC(),
	}
	return middleware.IdempotencyRecord{}, true, nil
}

func (s *IdempotencyStore) Complete(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = middleware.IdempotencyRecord{
		Key:        key,
		State:      middleware.IdempotencyCompleted,
		Payload:    append([]byte(nil), payload...),
		OccurredAt: time.Now().UTC(),
	}
	return nil
}

func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.items[key]; ok && rec.State == middleware.IdempotencyInProgress {
		delete(s.items, key)
	}
	return nil
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
