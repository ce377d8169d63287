package booking

import (
	"errors"
	"testing"
	"time"

	"stayledger/internal/domain/availability"
	"stayledger/internal/domain/catalog"
	"stayledger/internal/domain/pricing"
	"stayledger/internal/domain/refunds"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/money"
)

var (
	created = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	guest   = Actor{ID: "guest-1", Role: RoleGuest}
	host    = Actor{ID: "host-1", Role: RoleHost}
)

func newPendingBooking(t *testing.T) *Booking {
	t.Helper()
	window, err := daterange.New(time.Date(2026, 5, 10, 14, 0, 0, 0, time.UTC), time.Date(2026, 5, 13, 11, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	span, err := availability.DailySpan(window.CheckIn, window.CheckOut)
	if err != nil {
		t.Fatalf("span: %v", err)
	}
	b, err := NewBooking(CreateParams{
		ID:                 "b1",
		IdempotencyKey:     "k1",
		GuestID:            guest.ID,
		HostID:             host.ID,
		Resource:           catalog.ResourceRef{Kind: catalog.KindListing, ID: "villa"},
		Type:               catalog.ModeDaily,
		Window:             window,
		HeldSpan:           span,
		Guests:             Guests{Adults: 2},
		Pricing:            pricing.Breakdown{Currency: "INR", TotalAmount: money.Must(496035, "INR"), SecurityDeposit: money.Must(20000, "INR")},
		CancellationPolicy: refunds.Moderate,
		CreatedAt:          created,
	})
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	if err := b.StartPayment(created); err != nil {
		t.Fatalf("start payment: %v", err)
	}
	if err := b.MarkPending("tx-1", created); err != nil {
		t.Fatalf("mark pending: %v", err)
	}
	return b
}

func TestNewBookingRejectsShapeMismatch(t *testing.T) {
	window, _ := daterange.New(created, created.Add(2*time.Hour))
	_, err := NewBooking(CreateParams{
		ID:             "b1",
		IdempotencyKey: "k",
		GuestID:        "g",
		Resource:       catalog.ResourceRef{Kind: catalog.KindListing, ID: "villa"},
		Type:           catalog.ModeService,
		Window:         window,
		Guests:         Guests{Adults: 1},
	})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestAcceptOnlyByOwningHost(t *testing.T) {
	b := newPendingBooking(t)
	if err := b.Accept(Actor{ID: "host-2", Role: RoleHost}, "", created); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := b.Accept(host, " welcome ", created); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if b.Status != StatusConfirmed || b.PaymentStatus != PaymentPaid || b.HostMessage != "welcome" {
		t.Fatalf("unexpected state %s/%s %q", b.Status, b.PaymentStatus, b.HostMessage)
	}
	err := b.Reject(host, "late", created)
	var te *TransitionError
	if !errors.As(err, &te) || te.From != StatusConfirmed {
		t.Fatalf("expected transition error from confirmed, got %v", err)
	}
}

func TestCancelGuards(t *testing.T) {
	b := newPendingBooking(t)
	if err := b.Accept(host, "", created); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got := b.RefundReason(guest); got != refunds.ReasonGuestRequest {
		t.Fatalf("guest reason = %s", got)
	}
	if got := b.RefundReason(host); got != refunds.ReasonHostCancel {
		t.Fatalf("host reason = %s", got)
	}
	stranger := Actor{ID: "guest-9", Role: RoleGuest}
	if err := b.CheckCancel(stranger, created); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := b.CheckCancel(guest, b.Start()); !errors.Is(err, ErrStayStarted) {
		t.Fatalf("expected ErrStayStarted, got %v", err)
	}
	if err := b.CheckIn(host, b.Start().Add(-24*time.Hour)); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly, got %v", err)
	}
	if err := b.CheckIn(host, daterange.StartOfDay(b.Start())); err != nil {
		t.Fatalf("check in: %v", err)
	}
	if err := b.CheckIn(host, b.Start()); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}
	if err := b.CheckCancel(guest, created); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}
}

func TestPendingCancelByGuestIsFullRefund(t *testing.T) {
	b := newPendingBooking(t)
	if got := b.RefundReason(guest); got != refunds.ReasonPendingCancel {
		t.Fatalf("reason = %s", got)
	}
	decision, err := refunds.Apply(refunds.ReasonPendingCancel, refunds.Quote{}, b.Total(), b.Pricing.SecurityDeposit)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := b.Cancel(guest, "changed plans", decision, created); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	refund := &refunds.Refund{ID: "r1", BookingID: string(b.ID), Amount: decision.Amount, Status: refunds.StatusPending}
	if err := b.RecordRefund(refund, created); err != nil {
		t.Fatalf("record refund: %v", err)
	}
	if b.Status != StatusCancelled || b.CancelledBy != guest.ID || b.PaymentStatus != PaymentRefunded {
		t.Fatalf("unexpected booking %s %s %s", b.Status, b.CancelledBy, b.PaymentStatus)
	}
	if err := b.RecordRefund(&refunds.Refund{ID: "r2", Amount: money.Must(1, "INR")}, created); !errors.Is(err, ErrRefundExceedsTotal) {
		t.Fatalf("expected ErrRefundExceedsTotal, got %v", err)
	}
	if b.Total().Amount != 496035 {
		t.Fatalf("total mutated: %s", b.Total())
	}
}

func TestCompleteAndExpire(t *testing.T) {
	b := newPendingBooking(t)
	if err := b.Complete(host, b.End().Add(time.Hour)); err == nil {
		t.Fatal("pending booking must not complete")
	}
	if err := b.Expire(created.Add(25 * time.Hour)); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if b.Status != StatusExpired || !b.Status.Terminal() {
		t.Fatalf("status = %s", b.Status)
	}

	c := newPendingBooking(t)
	if err := c.Accept(host, "", created); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := c.Complete(SystemActor(), c.End()); !errors.Is(err, ErrTooEarly) {
		t.Fatalf("expected ErrTooEarly, got %v", err)
	}
	if err := c.Complete(SystemActor(), c.End().Add(time.Minute)); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := c.CanRefundDeposit(host); err != nil {
		t.Fatalf("deposit refund guard: %v", err)
	}
}

func TestSystemMayAbortProcessing(t *testing.T) {
	window, _ := daterange.New(created.Add(48*time.Hour), created.Add(72*time.Hour))
	b, err := NewBooking(CreateParams{
		ID: "b2", IdempotencyKey: "k2", GuestID: guest.ID, HostID: host.ID,
		Resource: catalog.ResourceRef{Kind: catalog.KindListing, ID: "villa"},
		Type:     catalog.ModeHourly24, Window: window, Guests: Guests{Adults: 1},
		Pricing:  pricing.Breakdown{Currency: "INR", TotalAmount: money.Must(1000, "INR")},
	})
	if err != nil {
		t.Fatalf("new booking: %v", err)
	}
	if err := b.StartPayment(created); err != nil {
		t.Fatalf("start payment: %v", err)
	}
	if err := b.CheckCancel(guest, created); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("guest must not cancel a processing booking, got %v", err)
	}
	if err := b.Cancel(SystemActor(), "payment abandoned", refunds.Decision{}, created); err != nil {
		t.Fatalf("system cancel: %v", err)
	}
	if b.Charged() {
		t.Fatal("processing booking was never charged")
	}
}

func TestFailedRefundIsNotCountedAsRefunded(t *testing.T) {
	b := newPendingBooking(t)
	first := &refunds.Refund{ID: "r1", BookingID: string(b.ID), Amount: b.Total(), Status: refunds.StatusPending}
	if err := b.RecordRefund(first, created); err != nil {
		t.Fatalf("record refund: %v", err)
	}
	b.MarkRefundSettled(first, false, created)
	if b.RefundAmount.Amount != 0 || b.RefundStatus != RefundFailed || b.PaymentStatus != PaymentPaid || !b.Charged() {
		t.Fatalf("after failure: refunded=%s status=%s payment=%s", b.RefundAmount, b.RefundStatus, b.PaymentStatus)
	}

	retry := &refunds.Refund{ID: "r2", BookingID: string(b.ID), Amount: b.Total(), Status: refunds.StatusPending}
	if err := b.RecordRefund(retry, created); err != nil {
		t.Fatalf("retry must fit under the total: %v", err)
	}
	b.MarkRefundSettled(retry, true, created)
	if b.RefundAmount.Amount != b.Total().Amount || b.RefundStatus != RefundProcessed || b.PaymentStatus != PaymentRefunded {
		t.Fatalf("after retry: refunded=%s status=%s payment=%s", b.RefundAmount, b.RefundStatus, b.PaymentStatus)
	}
}
