package mongo

import (
	"testing"
	"time"

	domainavailability "stayledger/internal/domain/availability"
	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	"stayledger/internal/domain/shared/daterange"
)

func TestBookingDocumentReleasesKeyOnlyForAbortedAttempts(t *testing.T) {
	window := daterange.DateRange{
		CheckIn:  time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
	}
	cases := []struct {
		status  domainbooking.Status
		payment domainbooking.PaymentStatus
		live    bool
	}{
		{domainbooking.StatusPending, domainbooking.PaymentPaid, true},
		{domainbooking.StatusCancelled, domainbooking.PaymentPaid, true},
		{domainbooking.StatusCancelled, domainbooking.PaymentFailed, false},
	}
	for _, tc := range cases {
		b := &domainbooking.Booking{
			ID:             "bk-1",
			IdempotencyKey: "key-1",
			GuestID:        "guest",
			Resource:       domaincatalog.ResourceRef{Kind: domaincatalog.KindListing, ID: "loft"},
			Stay:           &window,
			Status:         tc.status,
			PaymentStatus:  tc.payment,
		}
		doc := newBookingDocument(b)
		if got := doc.IdemLive != ""; got != tc.live {
			t.Errorf("%s/%s: live=%v, want %v", tc.status, tc.payment, got, tc.live)
		}
		if doc.IdempotencyKey != "key-1" {
			t.Errorf("%s/%s: original key lost", tc.status, tc.payment)
		}
	}
}

func TestBookingDocumentKeepsShape(t *testing.T) {
	slot := daterange.DateRange{
		CheckIn:  time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC),
	}
	b := &domainbooking.Booking{ID: "bk-2", Slot: &slot, Status: domainbooking.StatusPending}
	out := newBookingDocument(b).toAggregate()
	if out.Slot == nil || out.Stay != nil {
		t.Fatalf("slot booking came back as stay: %+v", out)
	}
	if !out.Slot.CheckOut.Equal(slot.CheckOut) {
		t.Fatalf("slot end = %v", out.Slot.CheckOut)
	}
}

func TestCalendarDocumentCarriesCellsAndVersion(t *testing.T) {
	ref := domaincatalog.ResourceRef{Kind: domaincatalog.KindService, ID: "massage"}
	cal := domainavailability.NewCalendar(ref)
	start := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	span, err := domainavailability.TimedSpan(start, start.Add(time.Hour), 30*time.Minute)
	if err != nil {
		t.Fatalf("span: %v", err)
	}
	if err := cal.Hold(span, "bk-3", domainavailability.StatusHeld, domainavailability.ReasonBooking, start); err != nil {
		t.Fatalf("hold: %v", err)
	}
	cal.Version = 4

	doc := newCalendarDocument(cal)
	if doc.ID != "service:massage" {
		t.Fatalf("id = %q", doc.ID)
	}
	back := doc.toCalendar(ref)
	if back.Version != 4 || len(back.Cells) != len(cal.Cells) {
		t.Fatalf("version=%d cells=%d", back.Version, len(back.Cells))
	}
	if back.CanHold(span) {
		t.Fatalf("held span must stay unavailable after reload")
	}
}
