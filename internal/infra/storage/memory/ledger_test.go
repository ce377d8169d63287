package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domainavailability "stayledger/internal/domain/availability"
	domaincatalog "stayledger/internal/domain/catalog"
	"stayledger/internal/domain/shared/events"
)

func TestLedgerConcurrentHoldsHaveOneWinner(t *testing.T) {
	ledger := NewLedger()
	ref := domaincatalog.ResourceRef{Kind: domaincatalog.KindListing, ID: "loft"}
	checkIn := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	span, err := domainavailability.DailySpan(checkIn, checkIn.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("span: %v", err)
	}

	var wins, conflicts int32
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := ledger.Hold(context.Background(), ref, span, fmt.Sprintf("b-%d", i))
			switch {
			case err == nil:
				atomic.AddInt32(&wins, 1)
			case errors.Is(err, domainavailability.ErrConflict):
				atomic.AddInt32(&conflicts, 1)
			default:
				t.Errorf("hold %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()
	if wins != 1 || conflicts != 63 {
		t.Fatalf("wins=%d conflicts=%d", wins, conflicts)
	}
}

func TestLedgerReleaseFreesOnlyOwnCells(t *testing.T) {
	ledger := NewLedger()
	ref := domaincatalog.ResourceRef{Kind: domaincatalog.KindService, ID: "massage"}
	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	first, _ := domainavailability.TimedSpan(start, start.Add(time.Hour), 30*time.Minute)
	second, _ := domainavailability.TimedSpan(start.Add(2*time.Hour), start.Add(3*time.Hour), 0)
	ctx := context.Background()

	if err := ledger.Hold(ctx, ref, first, "a"); err != nil {
		t.Fatalf("hold a: %v", err)
	}
	if err := ledger.Hold(ctx, ref, second, "b"); err != nil {
		t.Fatalf("hold b: %v", err)
	}
	// a's release over a window that also covers b's cell must not touch b.
	wide, _ := domainavailability.TimedSpan(start, start.Add(4*time.Hour), 0)
	if err := ledger.Release(ctx, ref, wide, "a"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := ledger.Release(ctx, ref, wide, "a"); err != nil {
		t.Fatalf("second release: %v", err)
	}
	ok, err := ledger.IsAvailable(ctx, ref, first)
	if err != nil || !ok {
		t.Fatalf("first span should be free, ok=%v err=%v", ok, err)
	}
	ok, _ = ledger.IsAvailable(ctx, ref, second)
	if ok {
		t.Fatalf("second span must still be held")
	}
}

func TestLedgerPromoteAndForceRelease(t *testing.T) {
	var names []string
	ledger := NewLedger()
	ledger.Sink = func(_ context.Context, evs []events.DomainEvent) {
		for _, ev := range evs {
			names = append(names, ev.EventName())
		}
	}
	ctx := context.Background()
	ref := domaincatalog.ResourceRef{Kind: domaincatalog.KindListing, ID: "cabin"}
	checkIn := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	span, _ := domainavailability.DailySpan(checkIn, checkIn.Add(48*time.Hour))

	if err := ledger.Hold(ctx, ref, span, "b-1"); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if err := ledger.Promote(ctx, ref, "b-1"); err != nil {
		t.Fatalf("promote: %v", err)
	}
	cells, _ := ledger.Cells(ctx, ref, span.Bounds())
	if len(cells) != 2 {
		t.Fatalf("expected 2 nightly cells, got %d", len(cells))
	}
	for _, c := range cells {
		if c.Status != domainavailability.StatusBooked {
			t.Fatalf("cell %v not booked", c)
		}
	}
	if err := ledger.Hold(ctx, ref, span, "b-2"); !errors.Is(err, domainavailability.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	ids, err := ledger.ForceRelease(ctx, ref, span, []string{"b-1"})
	if err != nil {
		t.Fatalf("force release: %v", err)
	}
	if len(ids) != 1 || ids[0] != "b-1" {
		t.Fatalf("released ids = %v", ids)
	}
	if err := ledger.Hold(ctx, ref, span, "b-2"); err != nil {
		t.Fatalf("hold after force release: %v", err)
	}
	want := []string{"calendar.held", "calendar.promoted", "calendar.overbooking_prevented", "calendar.force_released", "calendar.held"}
	if fmt.Sprint(names) != fmt.Sprint(want) {
		t.Fatalf("events = %v, want %v", names, want)
	}
}
