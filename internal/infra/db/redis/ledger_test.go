package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	domainavailability "stayledger/internal/domain/availability"
	domaincatalog "stayledger/internal/domain/catalog"
)

func TestMemberCodecRoundTrip(t *testing.T) {
	at := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	cell := domainavailability.Cell{
		Start:     at,
		End:       at.Add(90 * time.Minute),
		Status:    domainavailability.StatusBooked,
		BookingID: "bk:with:colons",
		UpdatedAt: at,
	}
	got, err := decodeMember(encodeMember(cell))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.Start.Equal(cell.Start) || !got.End.Equal(cell.End) {
		t.Fatalf("interval = [%v, %v)", got.Start, got.End)
	}
	if got.Status != cell.Status || got.BookingID != cell.BookingID {
		t.Fatalf("cell = %+v", got)
	}
}

func TestDecodeMemberRejectsGarbage(t *testing.T) {
	for _, m := range []string{"", "1:2:held", "a:2:held:3:bk", "1:b:held:3:bk"} {
		if _, err := decodeMember(m); err == nil {
			t.Errorf("decode(%q) succeeded", m)
		}
	}
}

func TestHoldValidatesBeforeTouchingRedis(t *testing.T) {
	l := NewLedger(nil)
	ref := domaincatalog.ResourceRef{Kind: domaincatalog.KindListing, ID: "loft"}
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	bad := domainavailability.Span{Kind: domainavailability.SpanTimed, Start: start, End: start}
	if err := l.Hold(context.Background(), ref, bad, "bk-1"); !errors.Is(err, domainavailability.ErrInvalidSpan) {
		t.Fatalf("expected ErrInvalidSpan, got %v", err)
	}
	good, _ := domainavailability.TimedSpan(start, start.Add(time.Hour), 0)
	if err := l.Hold(context.Background(), ref, good, ""); !errors.Is(err, domainavailability.ErrBookingRequired) {
		t.Fatalf("expected ErrBookingRequired, got %v", err)
	}
	if got := l.key(ref); got != "stayledger:calendar:listing:loft" {
		t.Fatalf("key = %q", got)
	}
}
