package booking

import (
	"context"
	"errors"
	"testing"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/dto"
	"stayledger/internal/app/queries"
	domainbooking "stayledger/internal/domain/booking"
	"stayledger/internal/infra/storage/memory"
)

func TestQuotePriceHasNoSideEffects(t *testing.T) {
	h := newHarness(t)
	quote, err := (&QuotePriceHandler{Deps: h.deps}).Handle(context.Background(), QuotePriceQuery{
		Principal:   Principal{Actor: guestActor},
		StayRequest: stayRequest(day(10), day(13)),
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Receipt.Total.Amount != 496035 || quote.Payout.Earning.Amount != 293250 {
		t.Fatalf("quote = %+v", quote)
	}
	free, err := (&CheckAvailabilityHandler{Deps: h.deps}).Handle(context.Background(), CheckAvailabilityQuery{
		ResourceKind: "listing", ResourceID: "villa", Start: day(10), End: day(13), Daily: true,
	})
	if err != nil || !free.Available {
		t.Fatalf("quote must not hold cells: %+v %v", free, err)
	}
	if charges, _ := h.gateway.counts(); charges != 0 {
		t.Fatalf("quote must not charge")
	}
}

func TestChangePlatformRateAffectsNewQuotes(t *testing.T) {
	h := newHarness(t)
	out, err := (&ChangePlatformRateHandler{Deps: h.deps}).Handle(context.Background(), ChangePlatformRateCommand{
		Principal: Principal{Actor: adminActor},
		Rate:      "0.12",
	})
	if err != nil {
		t.Fatalf("change rate: %v", err)
	}
	if out.RateBps != 1200 || !out.IsActive {
		t.Fatalf("version = %+v", out)
	}
	quote, err := (&QuotePriceHandler{Deps: h.deps}).Handle(context.Background(), QuotePriceQuery{
		Principal:   Principal{Actor: guestActor},
		StayRequest: stayRequest(day(10), day(13)),
	})
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Pricing.PlatformFee.Amount != 41400 {
		t.Fatalf("platform fee = %d, want 41400", quote.Pricing.PlatformFee.Amount)
	}
	if _, err := (&ChangePlatformRateHandler{Deps: h.deps}).Handle(context.Background(), ChangePlatformRateCommand{
		Principal: Principal{Actor: adminActor},
		Rate:      "1.5",
	}); !errors.Is(err, apperr.Validation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdminReleaseAndAvailability(t *testing.T) {
	h := newHarness(t)
	b := h.mustCreate(t)
	check := &CheckAvailabilityHandler{Deps: h.deps}
	release := &AdminReleaseResourceHandler{Deps: h.deps}
	q := CheckAvailabilityQuery{ResourceKind: "listing", ResourceID: "villa", Start: day(11), End: day(12), Daily: true}

	res, err := check.Handle(context.Background(), q)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.Available || len(res.Cells) != 1 || res.Cells[0].BookingID != string(b.ID) {
		t.Fatalf("availability = %+v", res)
	}

	_, err = release.Handle(context.Background(), AdminReleaseResourceCommand{
		Principal:    Principal{Actor: adminActor},
		ResourceKind: "listing",
		ResourceID:   "villa",
		Start:        day(10),
		End:          day(13),
	})
	if !errors.Is(err, apperr.ResourceConflict) {
		t.Fatalf("release over a live booking must be refused, got %v", err)
	}
	res, _ = check.Handle(context.Background(), q)
	if res.Available {
		t.Fatalf("live booking lost its cells")
	}
	secondGuest := domainbooking.Actor{ID: "guest-2", Role: domainbooking.RoleGuest}
	if _, err := h.create(t, secondGuest, "key-2", stayRequest(day(10), day(13))); !errors.Is(err, apperr.ResourceConflict) {
		t.Fatalf("expected double booking to be refused, got %v", err)
	}

	if err := h.ledger.Hold(context.Background(), villa().Ref, mustDailySpan(t, day(20), day(22)), "ghost"); err != nil {
		t.Fatalf("hold: %v", err)
	}
	released, err := release.Handle(context.Background(), AdminReleaseResourceCommand{
		Principal:    Principal{Actor: adminActor},
		ResourceKind: "listing",
		ResourceID:   "villa",
		Start:        day(20),
		End:          day(23),
	})
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if len(released.BookingIDs) != 1 || released.BookingIDs[0] != "ghost" {
		t.Fatalf("released = %+v", released)
	}
	ok, _ := h.ledger.IsAvailable(context.Background(), villa().Ref, mustDailySpan(t, day(20), day(22)))
	if !ok {
		t.Fatalf("orphaned cells must be free after admin release")
	}
}

func TestGetBookingVisibility(t *testing.T) {
	h := newHarness(t)
	b := h.mustCreate(t)
	_, qbus := newPipeline(h, memory.NewIdempotencyStore())

	got, err := queries.Ask[GetBookingQuery, dto.BookingWithRefundsDTO](context.Background(), qbus, GetBookingQuery{
		Principal: Principal{Actor: hostActor},
		BookingID: string(b.ID),
	})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Booking.ID != string(b.ID) || got.Booking.Pricing.TotalAmount.Amount != 496035 {
		t.Fatalf("booking = %+v", got.Booking)
	}
	_, err = queries.Ask[GetBookingQuery, dto.BookingWithRefundsDTO](context.Background(), qbus, GetBookingQuery{
		Principal: Principal{Actor: otherHost},
		BookingID: string(b.ID),
	})
	if !errors.Is(err, apperr.Unauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
