package uow

import (
	"context"
	"sync"
)

type hooksKey struct{}

// Hooks collects side effects that must only happen after a commit.
type Hooks struct {
	mu  sync.Mutex
	fns []func(context.Context)
}

// WithHooks installs a fresh hook registry in ctx.
func WithHooks(ctx context.Context) (context.Context, *Hooks) {
	h := &Hooks{}
	return context.WithValue(ctx, hooksKey{}, h), h
}

// AfterCommit defers fn until the surrounding unit commits. Without a
// surrounding unit fn runs immediately.
func AfterCommit(ctx context.Context, fn func(context.Context)) {
	if h, ok := ctx.Value(hooksKey{}).(*Hooks); ok && h != nil {
		h.mu.Lock()
		h.fns = append(h.fns, fn)
		h.mu.Unlock()
		return
	}
	fn(ctx)
}

// Run executes and clears the registered hooks in registration order.
func (h *Hooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(context.WithoutCancel(ctx))
	}
}

// Discard drops the registered hooks.
func (h *Hooks) Discard() {
	h.mu.Lock()
	h.fns = nil
	h.mu.Unlock()
}
