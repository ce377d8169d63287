package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "stayledger/internal/app/outbox"
)

type outboxEntry struct {
	record    appoutbox.EventRecord
	attempts  int
	next      time.Time
	claimedBy string
	sent      bool
	lastError string
}

// Outbox keeps events in memory and serves them to the relay worker in
// insertion order.
type Outbox struct {
	Clock func() time.Time

	mu      sync.Mutex
	entries []*outboxEntry
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

func (o *Outbox) now() time.Time {
	if o.Clock != nil {
		return o.Clock()
	}
	return time.Now().UTC()
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, &outboxEntry{record: record, next: o.now()})
	return nil
}

// Flush is a no-op; records stay until the worker marks them sent.
func (o *Outbox) Flush(ctx context.Context) error {
	return nil
}

func (o *Outbox) Claim(ctx context.Context, workerID string) (*appoutbox.Pending, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := o.now()
	for _, e := range o.entries {
		if e.sent || e.claimedBy != "" || e.next.After(now) {
			continue
		}
		e.claimedBy = workerID
		return &appoutbox.Pending{EventRecord: e.record, Attempts: e.attempts}, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.sent = true
		e.claimedBy = ""
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if e := o.find(id); e != nil {
		e.attempts++
		e.next = next
		e.lastError = errMsg
		e.claimedBy = ""
	}
	return nil
}

func (o *Outbox) find(id string) *outboxEntry {
	for _, e := range o.entries {
		if e.record.ID == id {
			return e
		}
	}
	return nil
}

// Names lists the event names seen so far, sent or not.
func (o *Outbox) Names() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.entries))
	for _, e := range o.entries {
		out = append(out, e.record.Name)
	}
	return out
}

// Unsent counts records the worker has not published yet.
func (o *Outbox) Unsent() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	n := 0
	for _, e := range o.entries {
		if !e.sent {
			n++
		}
	}
	return n
}

var (
	_ appoutbox.Outbox = (*Outbox)(nil)
	_ appoutbox.Queue  = (*Outbox)(nil)
)
