package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/dto"
	bookinghandlers "stayledger/internal/app/handlers/booking"
	"stayledger/internal/app/middleware"
	"stayledger/internal/app/queries"
	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	domainpricing "stayledger/internal/domain/pricing"
	"stayledger/internal/domain/shared/money"
	"stayledger/internal/infra/payments"
	"stayledger/internal/infra/storage/memory"
)

var (
	guest = domainbooking.Actor{ID: "guest-1", Role: domainbooking.RoleGuest}
	host  = domainbooking.Actor{ID: "host-1", Role: domainbooking.RoleHost}
	t0    = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	clock    *clock
	bus      commands.Bus
	bookings *memory.BookingRepository
	ledger   *memory.Ledger
	sweeper  *Sweeper
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		clock:    &clock{now: t0},
		bookings: memory.NewBookingRepository(),
		ledger:   memory.NewLedger(),
	}
	f.ledger.Clock = f.clock.Now
	inr := func(v int64) money.Money { return money.Must(v, "INR") }
	deps := &bookinghandlers.Deps{
		UoWFactory: memory.Factory{
			CatalogRepo: memory.NewCatalogRepository(domaincatalog.Resource{
				Ref:                domaincatalog.ResourceRef{Kind: domaincatalog.KindListing, ID: "villa"},
				HostID:             host.ID,
				Title:              "Villa",
				Modes:              []domaincatalog.Mode{domaincatalog.ModeDaily},
				Tariff:             domainpricing.Tariff{BasePrice: inr(100000), SecurityDeposit: inr(20000)},
				CancellationPolicy: "moderate",
				MinNights:          1,
				MaxNights:          30,
				MaxGuests:          4,
				CheckInTime:        "14:00",
				CheckOutTime:       "11:00",
				Active:             true,
			}),
			BookingRepo: f.bookings,
			RefundRepo:  memory.NewRefundRepository(),
			CouponRepo:  memory.NewCouponRepository(),
			RateRepo:    memory.NewRateRepository(domainpricing.RateVersion{ID: "rate-1", RateBps: 1500, EffectiveFrom: t0, IsActive: true}),
		},
		Ledger:   f.ledger,
		Payments: payments.NewSandbox(0),
		Outbox:   memory.NewOutbox(),
		Clock:    f.clock.Now,
	}
	cmdBus := commands.NewInMemoryBus()
	bookinghandlers.Register(cmdBus, queries.NewInMemoryBus(), deps)
	f.bus = middleware.ChainCommands(cmdBus,
		middleware.Validation(middleware.NewStructValidator()),
		middleware.Authorization(middleware.RoleAuthorizer{}),
		middleware.Transaction(deps.UoWFactory, nil),
	)
	f.sweeper = &Sweeper{
		Bus:         f.bus,
		Bookings:    f.bookings,
		Grace:       5 * time.Minute,
		ApprovalSLA: 24 * time.Hour,
		Clock:       f.clock.Now,
	}
	return f
}

func (f *fixture) create(t *testing.T, key string, checkIn, checkOut time.Time) *domainbooking.Booking {
	t.Helper()
	out, err := commands.Dispatch[bookinghandlers.CreateBookingCommand, *dto.BookingDTO](context.Background(), f.bus, bookinghandlers.CreateBookingCommand{
		Principal: bookinghandlers.Principal{Actor: guest},
		StayRequest: bookinghandlers.StayRequest{
			ListingID:   "villa",
			BookingType: string(domaincatalog.ModeDaily),
			CheckIn:     checkIn,
			CheckOut:    checkOut,
			Adults:      1,
		},
		IdempotencyKeyV: key,
	})
	if err != nil {
		t.Fatalf("create %s: %v", key, err)
	}
	return f.load(t, out.ID)
}

func (f *fixture) load(t *testing.T, id string) *domainbooking.Booking {
	t.Helper()
	b, err := f.bookings.ByID(context.Background(), domainbooking.BookingID(id))
	if err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
	return b
}

// stall rewinds a booking to an unfinished payment attempt, as left behind by
// a crash between charge initiation and the pending write.
func (f *fixture) stall(t *testing.T, b *domainbooking.Booking) {
	t.Helper()
	b.Status = domainbooking.StatusProcessing
	b.PaymentStatus = domainbooking.PaymentUnpaid
	b.PaymentTransactionID = ""
	if err := f.bookings.Save(context.Background(), b); err != nil {
		t.Fatalf("stall: %v", err)
	}
}

func (f *fixture) free(t *testing.T, b *domainbooking.Booking) bool {
	t.Helper()
	ok, err := f.ledger.IsAvailable(context.Background(), b.Resource, b.HeldSpan)
	if err != nil {
		t.Fatalf("is available: %v", err)
	}
	return ok
}

func day(d int) time.Time { return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC) }

func TestSweepAbandonedCancelsStuckAttemptsOnly(t *testing.T) {
	f := newFixture(t)
	stuck := f.create(t, "k-stuck", day(10), day(13))
	f.stall(t, stuck)
	pending := f.create(t, "k-pending", day(20), day(22))

	f.clock.Advance(3 * time.Minute)
	if rep := f.sweeper.SweepAbandoned(context.Background()); rep.Cancelled != 0 {
		t.Fatalf("nothing is past the grace window yet, got %+v", rep)
	}

	f.clock.Advance(10 * time.Minute)
	rep := f.sweeper.SweepAbandoned(context.Background())
	if rep.Cancelled != 1 || rep.Failed != 0 {
		t.Fatalf("report = %+v", rep)
	}
	got := f.load(t, string(stuck.ID))
	if got.Status != domainbooking.StatusCancelled || got.CancelledByRole != domainbooking.RoleSystem {
		t.Fatalf("stuck booking = %s by %s", got.Status, got.CancelledByRole)
	}
	if !f.free(t, stuck) {
		t.Fatalf("held dates of the stuck attempt must be available")
	}
	if p := f.load(t, string(pending.ID)); p.Status != domainbooking.StatusPending {
		t.Fatalf("pending booking touched: %s", p.Status)
	}
	if f.free(t, pending) {
		t.Fatalf("pending booking lost its hold")
	}
}

func TestSweepLifecycleExpiresAndCompletes(t *testing.T) {
	f := newFixture(t)
	short := f.create(t, "k-short", day(2), day(3))
	if _, err := commands.Dispatch[bookinghandlers.AcceptBookingCommand, *dto.BookingDTO](context.Background(), f.bus, bookinghandlers.AcceptBookingCommand{
		Principal: bookinghandlers.Principal{Actor: host},
		BookingID: string(short.ID),
	}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	unanswered := f.create(t, "k-late", day(20), day(22))

	f.clock.Advance(12 * time.Hour)
	if rep := f.sweeper.SweepLifecycle(context.Background()); rep != (Report{}) {
		t.Fatalf("early pass must be a no-op, got %+v", rep)
	}

	f.clock.Advance(2 * 24 * time.Hour)
	rep := f.sweeper.SweepLifecycle(context.Background())
	if rep.Expired != 1 || rep.Completed != 1 || rep.Failed != 0 {
		t.Fatalf("report = %+v", rep)
	}
	if got := f.load(t, string(unanswered.ID)); got.Status != domainbooking.StatusExpired {
		t.Fatalf("unanswered booking = %s", got.Status)
	}
	if !f.free(t, unanswered) {
		t.Fatalf("expired booking must release its dates")
	}
	if got := f.load(t, string(short.ID)); got.Status != domainbooking.StatusCompleted {
		t.Fatalf("finished stay = %s", got.Status)
	}
}

func TestRunRequiresDependencies(t *testing.T) {
	if err := (&Sweeper{}).Run(context.Background()); err != ErrSweeperNotConfigured {
		t.Fatalf("expected ErrSweeperNotConfigured, got %v", err)
	}
}
