package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestRegistryLimitsPerRequester(t *testing.T) {
	r := NewRegistry(60, 2, time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }

	if !r.Allow("guest-1") || !r.Allow("guest-1") {
		t.Fatalf("burst of two must pass")
	}
	if r.Allow("guest-1") {
		t.Fatalf("third request inside the same instant must be throttled")
	}
	if !r.Allow("guest-2") {
		t.Fatalf("other requesters have their own bucket")
	}
	r.now = func() time.Time { return base.Add(time.Second) }
	if !r.Allow("guest-1") {
		t.Fatalf("bucket must refill after a second")
	}
}

func TestRegistrySweepDropsIdleRequesters(t *testing.T) {
	r := NewRegistry(60, 1, time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return base }
	r.Allow("old")
	r.now = func() time.Time { return base.Add(50 * time.Second) }
	r.Allow("fresh")

	r.now = func() time.Time { return base.Add(90 * time.Second) }
	if removed := r.Sweep(); removed != 1 || r.Len() != 1 {
		t.Fatalf("removed = %d len = %d", removed, r.Len())
	}
}

func TestRegistryStopEndsRun(t *testing.T) {
	r := NewRegistry(10, 1, time.Minute)
	done := make(chan struct{})
	go func() {
		r.Run(context.Background(), time.Millisecond)
		close(done)
	}()
	r.Stop()
	r.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after Stop")
	}
}
