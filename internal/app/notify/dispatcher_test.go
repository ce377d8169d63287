package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, to, template string, _ any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to+"/"+template)
	return n.err
}

type countingFailures struct {
	mu    sync.Mutex
	count int
}

func (c *countingFailures) NotificationFailed(string) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func TestDispatchSurvivesCancelledCaller(t *testing.T) {
	n := &recordingNotifier{}
	d := &Dispatcher{Notifier: n}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, "host-1", "booking_requested", nil)
	d.Wait()
	if len(n.sent) != 1 {
		t.Fatalf("sent = %v", n.sent)
	}
}

func TestDispatchSwallowsFailures(t *testing.T) {
	failures := &countingFailures{}
	d := &Dispatcher{Notifier: &recordingNotifier{err: errors.New("smtp down")}, Failures: failures}
	d.Dispatch(context.Background(), "guest-1", "booking_accepted", nil)
	d.Dispatch(context.Background(), "", "booking_accepted", nil)
	d.Wait()
	if failures.count != 1 {
		t.Fatalf("failures = %d, want 1", failures.count)
	}
}
