package availability

import (
	"errors"
	"testing"
	"time"

	"stayledger/internal/domain/catalog"
)

var (
	ref = catalog.ResourceRef{Kind: catalog.KindListing, ID: "villa"}
	t0  = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
)

func date(d int) time.Time { return t0.AddDate(0, 0, d) }

func mustDaily(t *testing.T, from, to int) Span {
	t.Helper()
	s, err := DailySpan(date(from), date(to))
	if err != nil {
		t.Fatalf("daily span: %v", err)
	}
	return s
}

func TestHoldIsAllOrNothing(t *testing.T) {
	cal := NewCalendar(ref)
	if err := cal.Hold(mustDaily(t, 2, 4), "b1", StatusHeld, "", t0); err != nil {
		t.Fatalf("first hold: %v", err)
	}
	if err := cal.Hold(mustDaily(t, 0, 3), "b2", StatusHeld, "", t0); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	for _, cell := range cal.Cells {
		if cell.BookingID == "b2" {
			t.Fatalf("partial hold leaked: %+v", cell)
		}
	}
	if err := cal.Hold(mustDaily(t, 4, 6), "b3", StatusHeld, "", t0); err != nil {
		t.Fatalf("checkout day must be free: %v", err)
	}
	if len(cal.Cells) != 4 {
		t.Fatalf("cells = %d, want 4", len(cal.Cells))
	}
}

func TestReleaseIsIdempotentAndOwnerScoped(t *testing.T) {
	cal := NewCalendar(ref)
	span := mustDaily(t, 1, 3)
	if err := cal.Hold(span, "b1", StatusHeld, "", t0); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if n := cal.Release(span, "other", t0); n != 0 {
		t.Fatalf("released %d cells owned by another booking", n)
	}
	if n := cal.Release(span, "b1", t0); n != 2 {
		t.Fatalf("released %d, want 2", n)
	}
	if n := cal.Release(span, "b1", t0); n != 0 {
		t.Fatalf("second release changed %d cells", n)
	}
	if !cal.CanHold(span) {
		t.Fatal("span must be available after release")
	}
	if err := cal.Hold(span, "b2", StatusHeld, "", t0); err != nil {
		t.Fatalf("re-hold: %v", err)
	}
	if len(cal.Cells) != 2 {
		t.Fatalf("released cells should be replaced, got %d cells", len(cal.Cells))
	}
}

func TestTimedSpanChecksAnyOverlapIncludingBuffer(t *testing.T) {
	cal := NewCalendar(ref)
	start := t0.Add(14 * time.Hour)
	first, _ := TimedSpan(start, start.Add(24*time.Hour), 2*time.Hour)
	if err := cal.Hold(first, "b1", StatusHeld, "", t0); err != nil {
		t.Fatalf("hold: %v", err)
	}
	inBuffer, _ := TimedSpan(start.Add(25*time.Hour), start.Add(49*time.Hour), 0)
	if cal.CanHold(inBuffer) {
		t.Fatal("span starting inside the host buffer must conflict")
	}
	after, _ := TimedSpan(start.Add(26*time.Hour), start.Add(50*time.Hour), 0)
	if !cal.CanHold(after) {
		t.Fatal("span starting after the buffer must be free")
	}
	daily := mustDaily(t, 1, 2)
	if cal.CanHold(daily) {
		t.Fatal("nightly cell overlapping a timed cell must conflict")
	}
}

func TestPromoteAndForceRelease(t *testing.T) {
	cal := NewCalendar(ref)
	if err := cal.Hold(mustDaily(t, 0, 2), "b1", StatusHeld, "", t0); err != nil {
		t.Fatalf("hold b1: %v", err)
	}
	if err := cal.Hold(mustDaily(t, 3, 4), "b2", StatusHeld, "", t0); err != nil {
		t.Fatalf("hold b2: %v", err)
	}
	if n := cal.Promote("b1", t0); n != 2 {
		t.Fatalf("promoted %d, want 2", n)
	}
	if owners := cal.ForceRelease(mustDaily(t, 0, 10), []string{"b9"}, t0); len(owners) != 0 {
		t.Fatalf("cells of other owners must stay, released %v", owners)
	}
	owners := cal.ForceRelease(mustDaily(t, 0, 10), []string{"b1", "b2"}, t0)
	if len(owners) != 2 {
		t.Fatalf("owners = %v", owners)
	}
	cal.Compact()
	if len(cal.Cells) != 0 {
		t.Fatalf("cells left after force release: %+v", cal.Cells)
	}
	names := map[string]bool{}
	for _, e := range cal.Drain() {
		names[e.EventName()] = true
	}
	for _, want := range []string{"calendar.held", "calendar.promoted", "calendar.force_released"} {
		if !names[want] {
			t.Errorf("missing event %s", want)
		}
	}
}
