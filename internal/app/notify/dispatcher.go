package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"stayledger/internal/app/policies"
)

const defaultTimeout = 5 * time.Second

// FailureCounter is incremented for every notification that could not be sent.
type FailureCounter interface {
	NotificationFailed(template string)
}

// Dispatcher sends notifications in the background. Failures are logged and
// never reach the caller.
type Dispatcher struct {
	Notifier policies.Notifier
	Logger   *slog.Logger
	Timeout  time.Duration
	Failures FailureCounter

	wg sync.WaitGroup
}

func (d *Dispatcher) Dispatch(ctx context.Context, to, template string, data any) {
	if d == nil || d.Notifier == nil || to == "" {
		return
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(base, timeout)
		defer cancel()
		if err := d.Notifier.Send(sendCtx, to, template, data); err != nil {
			if d.Failures != nil {
				d.Failures.NotificationFailed(template)
			}
			if d.Logger != nil {
				d.Logger.Warn("notification failed", "to", to, "template", template, "error", err)
			}
		}
	}()
}

// Wait blocks until every in-flight notification finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
