package memory

import (
	"context"
	"sync"
	"time"

	domainavailability "stayledger/internal/domain/availability"
	domaincatalog "stayledger/internal/domain/catalog"
)

// Ledger keeps one calendar per resource behind a single mutex, which makes
// every hold check-and-mark atomic.
type Ledger struct {
	Clock func() time.Time
	Sink  domainavailability.EventSink

	mu        sync.Mutex
	calendars map[string]*domainavailability.Calendar
}

func NewLedger() *Ledger {
	return &Ledger{calendars: make(map[string]*domainavailability.Calendar)}
}

func (l *Ledger) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

// calendar must be called with l.mu held.
func (l *Ledger) calendar(ref domaincatalog.ResourceRef) *domainavailability.Calendar {
	if l.calendars == nil {
		l.calendars = make(map[string]*domainavailability.Calendar)
	}
	key := ref.String()
	cal, ok := l.calendars[key]
	if !ok {
		cal = domainavailability.NewCalendar(ref)
		l.calendars[key] = cal
	}
	return cal
}

func (l *Ledger) write(ctx context.Context, ref domaincatalog.ResourceRef, fn func(cal *domainavailability.Calendar) error) error {
	l.mu.Lock()
	cal := l.calendar(ref)
	err := fn(cal)
	cal.Compact()
	cal.Version++
	evs := cal.Drain()
	l.mu.Unlock()
	if l.Sink != nil && len(evs) > 0 {
		l.Sink(ctx, evs)
	}
	return err
}

func (l *Ledger) Hold(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span, bookingID string) error {
	return l.write(ctx, ref, func(cal *domainavailability.Calendar) error {
		return cal.Hold(span, bookingID, domainavailability.StatusHeld, domainavailability.ReasonBooking, l.now())
	})
}

func (l *Ledger) Promote(ctx context.Context, ref domaincatalog.ResourceRef, bookingID string) error {
	return l.write(ctx, ref, func(cal *domainavailability.Calendar) error {
		cal.Promote(bookingID, l.now())
		return nil
	})
}

func (l *Ledger) Release(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span, bookingID string) error {
	return l.write(ctx, ref, func(cal *domainavailability.Calendar) error {
		cal.Release(span, bookingID, l.now())
		return nil
	})
}

func (l *Ledger) IsAvailable(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span) (bool, error) {
	if err := span.Validate(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calendar(ref).CanHold(span), nil
}

func (l *Ledger) ForceRelease(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span, owners []string) ([]string, error) {
	var released []string
	err := l.write(ctx, ref, func(cal *domainavailability.Calendar) error {
		released = cal.ForceRelease(span, owners, l.now())
		return nil
	})
	return released, err
}

func (l *Ledger) Cells(ctx context.Context, ref domaincatalog.ResourceRef, window domainavailability.Interval) ([]domainavailability.Cell, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calendar(ref).CellsIn(window), nil
}

var _ domainavailability.Ledger = (*Ledger)(nil)
