package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Registry keeps one token bucket per requester. Idle buckets are dropped by
// Run; Stop ends the sweep.
type Registry struct {
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time

	mu       sync.Mutex
	visitors map[string]*visitor

	stopOnce sync.Once
	stop     chan struct{}
}

// NewRegistry allows perMinute events per requester with the given burst.
func NewRegistry(perMinute, burst int, idleTTL time.Duration) *Registry {
	if perMinute <= 0 {
		perMinute = 30
	}
	if burst <= 0 {
		burst = 1
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Registry{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
		visitors: make(map[string]*visitor),
		stop:     make(chan struct{}),
	}
}

func (r *Registry) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	v, ok := r.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// Sweep drops requesters idle for longer than the idle TTL and returns how
// many were removed.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.idleTTL)
	removed := 0
	for key, v := range r.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(r.visitors, key)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.visitors)
}

// Run sweeps idle requesters every interval until ctx ends or Stop is called.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}
