package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"stayledger/internal/app/notify"
	"stayledger/internal/app/policies"
	domainavailability "stayledger/internal/domain/availability"
	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	domaincoupons "stayledger/internal/domain/coupons"
	domainpricing "stayledger/internal/domain/pricing"
	"stayledger/internal/domain/shared/money"
	"stayledger/internal/infra/storage/memory"
)

var (
	guestActor = domainbooking.Actor{ID: "guest-1", Role: domainbooking.RoleGuest}
	hostActor  = domainbooking.Actor{ID: "host-1", Role: domainbooking.RoleHost}
	adminActor = domainbooking.Actor{ID: "admin-1", Role: domainbooking.RoleAdmin}
	otherHost  = domainbooking.Actor{ID: "host-2", Role: domainbooking.RoleHost}
)

func inr(v int64) money.Money { return money.Must(v, "INR") }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fakeGateway struct {
	mu          sync.Mutex
	decline     bool
	failRefunds bool
	charges     []policies.SettleRequest
	refunds     []policies.RefundRequest
}

func (g *fakeGateway) Settle(_ context.Context, req policies.SettleRequest) (policies.Settlement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.decline {
		return policies.Settlement{Status: policies.SettlementDeclined}, policies.ErrPaymentDeclined
	}
	g.charges = append(g.charges, req)
	return policies.Settlement{TransactionID: "tx-" + req.BookingID, Status: policies.SettlementSucceeded}, nil
}

func (g *fakeGateway) Refund(_ context.Context, req policies.RefundRequest) (policies.RefundResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRefunds {
		return policies.RefundResult{}, errors.New("gateway unavailable")
	}
	g.refunds = append(g.refunds, req)
	return policies.RefundResult{Reference: "rf-" + req.RefundID}, nil
}

func (g *fakeGateway) setDecline(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.decline = v
}

func (g *fakeGateway) setFailRefunds(v bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failRefunds = v
}

func (g *fakeGateway) counts() (charges, refunds int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.charges), len(g.refunds)
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) Send(_ context.Context, to, template string, _ any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, to+":"+template)
	return nil
}

func (n *recordingNotifier) has(entry string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.sent {
		if s == entry {
			return true
		}
	}
	return false
}

type harness struct {
	deps     *Deps
	clock    *testClock
	gateway  *fakeGateway
	notifier *recordingNotifier
	ledger   *memory.Ledger
	bookings *memory.BookingRepository
	refunds  *memory.RefundRepository
	coupons  *memory.CouponRepository
	outbox   *memory.Outbox
}

var start = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func villa() domaincatalog.Resource {
	return domaincatalog.Resource{
		Ref:    domaincatalog.ResourceRef{Kind: domaincatalog.KindListing, ID: "villa"},
		HostID: hostActor.ID,
		Title:  "Sea view villa",
		Modes:  []domaincatalog.Mode{domaincatalog.ModeDaily, domaincatalog.ModeHourly24},
		Tariff: domainpricing.Tariff{
			BasePrice:       inr(100000),
			CleaningFee:     inr(20000),
			ServiceFee:      inr(25000),
			SecurityDeposit: inr(20000),
		},
		CancellationPolicy: "moderate",
		MinNights:          1,
		MaxNights:          30,
		MaxGuests:          4,
		HostBufferHours:    2,
		CheckInTime:        "14:00",
		CheckOutTime:       "11:00",
		Active:             true,
	}
}

func massage() domaincatalog.Resource {
	return domaincatalog.Resource{
		Ref:                domaincatalog.ResourceRef{Kind: domaincatalog.KindService, ID: "massage"},
		HostID:             hostActor.ID,
		Title:              "Deep tissue massage",
		Tariff:             domainpricing.Tariff{BasePrice: inr(300000)},
		CancellationPolicy: "flexible",
		MaxGuests:          1,
		HostBufferHours:    1,
		Active:             true,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:    &testClock{now: start},
		gateway:  &fakeGateway{},
		notifier: &recordingNotifier{},
		ledger:   memory.NewLedger(),
		bookings: memory.NewBookingRepository(),
		refunds:  memory.NewRefundRepository(),
		coupons: memory.NewCouponRepository(domaincoupons.Coupon{
			Code:        "WELCOME10",
			Type:        domaincoupons.TypePercentage,
			PercentBps:  1000,
			MaxDiscount: inr(50000),
		}),
		outbox: memory.NewOutbox(),
	}
	h.ledger.Clock = h.clock.Now
	rates := memory.NewRateRepository(domainpricing.RateVersion{ID: "rate-1", RateBps: 1500, EffectiveFrom: start, IsActive: true})
	h.deps = &Deps{
		UoWFactory: memory.Factory{
			CatalogRepo: memory.NewCatalogRepository(villa(), massage()),
			BookingRepo: h.bookings,
			RefundRepo:  h.refunds,
			CouponRepo:  h.coupons,
			RateRepo:    rates,
		},
		Ledger:        h.ledger,
		Payments:      h.gateway,
		Notifications: &notify.Dispatcher{Notifier: h.notifier},
		Outbox:        h.outbox,
		Clock:         h.clock.Now,
	}
	return h
}

func stayRequest(checkIn, checkOut time.Time) StayRequest {
	return StayRequest{
		ListingID:   "villa",
		BookingType: string(domaincatalog.ModeDaily),
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Adults:      1,
	}
}

func day(d int) time.Time { return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC) }

func (h *harness) create(t *testing.T, guest domainbooking.Actor, key string, req StayRequest) (*domainbooking.Booking, error) {
	t.Helper()
	out, err := (&CreateBookingHandler{Deps: h.deps}).Handle(context.Background(), CreateBookingCommand{
		Principal:       Principal{Actor: guest},
		StayRequest:     req,
		IdempotencyKeyV: key,
	})
	if err != nil {
		return nil, err
	}
	return h.load(t, out.ID), nil
}

func (h *harness) mustCreate(t *testing.T) *domainbooking.Booking {
	t.Helper()
	b, err := h.create(t, guestActor, "key-1", stayRequest(day(10), day(13)))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return b
}

func (h *harness) load(t *testing.T, id string) *domainbooking.Booking {
	t.Helper()
	b, err := h.bookings.ByID(context.Background(), domainbooking.BookingID(id))
	if err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
	return b
}

func (h *harness) available(t *testing.T, b *domainbooking.Booking) bool {
	t.Helper()
	ok, err := h.ledger.IsAvailable(context.Background(), b.Resource, b.HeldSpan)
	if err != nil {
		t.Fatalf("is available: %v", err)
	}
	return ok
}

func mustDailySpan(t *testing.T, checkIn, checkOut time.Time) domainavailability.Span {
	t.Helper()
	span, err := domainavailability.DailySpan(checkIn, checkOut)
	if err != nil {
		t.Fatalf("span: %v", err)
	}
	return span
}
