package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"stayledger/internal/app/commands"
	bookingapp "stayledger/internal/app/handlers/booking"
	"stayledger/internal/app/middleware"
	"stayledger/internal/app/notify"
	"stayledger/internal/app/queries"
	domaincatalog "stayledger/internal/domain/catalog"
	domainpricing "stayledger/internal/domain/pricing"
	"stayledger/internal/domain/shared/money"
	"stayledger/internal/infra/config"
	"stayledger/internal/infra/obs"
	"stayledger/internal/infra/payments"
	"stayledger/internal/infra/storage/memory"
)

var now = time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

func inr(v int64) money.Money { return money.Must(v, "INR") }

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	clock := func() time.Time { return now }
	villa := domaincatalog.Resource{
		Ref:    domaincatalog.ResourceRef{Kind: domaincatalog.KindListing, ID: "villa"},
		HostID: "host-1",
		Title:  "Sea view villa",
		Modes:  []domaincatalog.Mode{domaincatalog.ModeDaily},
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
		Active:             true,
	}
	ledger := memory.NewLedger()
	ledger.Clock = clock
	box := memory.NewOutbox()
	factory := memory.Factory{
		CatalogRepo: memory.NewCatalogRepository(villa),
		BookingRepo: memory.NewBookingRepository(),
		RefundRepo:  memory.NewRefundRepository(),
		CouponRepo:  memory.NewCouponRepository(),
		RateRepo:    memory.NewRateRepository(domainpricing.RateVersion{ID: "rate-1", RateBps: 1500, EffectiveFrom: now, IsActive: true}),
	}
	deps := &bookingapp.Deps{
		UoWFactory:    factory,
		Ledger:        ledger,
		Payments:      payments.NewSandbox(0),
		Notifications: &notify.Dispatcher{Notifier: noopNotifier{}},
		Outbox:        box,
		Clock:         clock,
	}
	cmdBus := commands.NewInMemoryBus()
	queryBus := queries.NewInMemoryBus()
	bookingapp.Register(cmdBus, queryBus, deps)
	validator := middleware.NewStructValidator()
	cmds := middleware.ChainCommands(cmdBus,
		middleware.Validation(validator),
		middleware.Authorization(middleware.RoleAuthorizer{}),
		middleware.Idempotency(memory.NewIdempotencyStore(), nil),
		middleware.Transaction(factory, nil),
		middleware.OutboxFlush(box),
	)
	qs := middleware.ChainQueries(queryBus,
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(middleware.RoleAuthorizer{}),
	)
	metrics := obs.NewMetrics()
	h := NewHandlers(cmds, qs, nil)
	h.Metrics = metrics.Handler()
	h.MetricsMW = metrics.HTTP()
	return NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, h)
}

type noopNotifier struct{}

func (noopNotifier) Send(ctx context.Context, to, template string, data any) error { return nil }

type call struct {
	method, path string
	actor, role  string
	idemKey      string
	body         any
}

func do(t *testing.T, router http.Handler, c call) (int, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if c.body != nil {
		if err := json.NewEncoder(&buf).Encode(c.body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.actor != "" {
		req.Header.Set(headerActorID, c.actor)
		req.Header.Set(headerActorRole, c.role)
	}
	if c.idemKey != "" {
		req.Header.Set(headerIdempotencyKey, c.idemKey)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "" && bytes.HasPrefix(bytes.TrimSpace(rec.Body.Bytes()), []byte("{")) {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec.Code, out
}

func stayBody(in, out string) map[string]any {
	return map[string]any{
		"listing_id":   "villa",
		"booking_type": "daily",
		"check_in":     in,
		"check_out":    out,
		"adults":       1,
	}
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	router := newTestRouter(t)
	body := stayBody("2026-01-10T00:00:00Z", "2026-01-13T00:00:00Z")

	if code, _ := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings", body: body}); code != http.StatusUnauthorized {
		t.Fatalf("anonymous create = %d", code)
	}
	if code, out := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings", actor: "guest-1", role: "guest", body: body}); code != http.StatusBadRequest {
		t.Fatalf("create without key = %d %v", code, out)
	}

	code, created := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings", actor: "guest-1", role: "guest", idemKey: "k-1", body: body})
	if code != http.StatusCreated {
		t.Fatalf("create = %d %v", code, created)
	}
	if created["status"] != "pending" || created["payment_status"] != "pending" {
		t.Fatalf("created = %v", created)
	}
	id, _ := created["id"].(string)

	code, replay := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings", actor: "guest-1", role: "guest", idemKey: "k-1", body: body})
	if code != http.StatusCreated || replay["id"] != id {
		t.Fatalf("replay = %d %v", code, replay)
	}

	code, conflict := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings", actor: "guest-2", role: "guest", idemKey: "k-2", body: body})
	if code != http.StatusConflict || conflict["error"] != "resource_conflict" {
		t.Fatalf("overlap = %d %v", code, conflict)
	}

	if code, _ := do(t, router, call{method: http.MethodGet, path: "/api/v1/bookings/" + id, actor: "guest-2", role: "guest"}); code != http.StatusForbidden {
		t.Fatalf("foreign read = %d", code)
	}
	if code, _ := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings/" + id + "/accept", actor: "guest-1", role: "guest"}); code != http.StatusForbidden {
		t.Fatalf("guest accept = %d", code)
	}

	code, accepted := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings/" + id + "/accept", actor: "host-1", role: "host", body: map[string]string{"message": "welcome"}})
	if code != http.StatusOK || accepted["status"] != "confirmed" {
		t.Fatalf("accept = %d %v", code, accepted)
	}

	code, again := do(t, router, call{method: http.MethodPost, path: "/api/v1/bookings/" + id + "/reject", actor: "host-1", role: "host"})
	if code != http.StatusConflict || again["error"] != "invalid_transition" {
		t.Fatalf("reject after accept = %d %v", code, again)
	}
}

func TestQuoteAndAvailabilityOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	code, quote := do(t, router, call{method: http.MethodPost, path: "/api/v1/quotes", actor: "guest-1", role: "guest", body: stayBody("2026-01-10T00:00:00Z", "2026-01-13T00:00:00Z")})
	if code != http.StatusOK {
		t.Fatalf("quote = %d %v", code, quote)
	}
	receipt, _ := quote["guest_receipt"].(map[string]any)
	total, _ := receipt["total"].(map[string]any)
	if total["amount"] != float64(496035) {
		t.Fatalf("receipt = %v", receipt)
	}

	code, avail := do(t, router, call{method: http.MethodGet, path: "/api/v1/availability?kind=listing&id=villa&start=2026-01-10T00:00:00Z&end=2026-01-12T00:00:00Z&daily=true"})
	if code != http.StatusOK || avail["available"] != true {
		t.Fatalf("availability = %d %v", code, avail)
	}
	if code, _ := do(t, router, call{method: http.MethodGet, path: "/api/v1/availability?kind=boat&id=x&start=2026-01-10T00:00:00Z&end=2026-01-12T00:00:00Z"}); code != http.StatusBadRequest {
		t.Fatalf("bad kind = %d", code)
	}
}

func TestAdminEndpointsOverHTTP(t *testing.T) {
	router := newTestRouter(t)

	if code, _ := do(t, router, call{method: http.MethodPut, path: "/api/v1/admin/platform-rate", actor: "host-1", role: "host", body: map[string]string{"rate": "0.12"}}); code != http.StatusForbidden {
		t.Fatalf("host rate change = %d", code)
	}
	if code, _ := do(t, router, call{method: http.MethodPut, path: "/api/v1/admin/platform-rate", actor: "root", role: "admin", body: map[string]string{"rate": "1.5"}}); code != http.StatusBadRequest {
		t.Fatalf("out of range rate = %d", code)
	}
	code, rate := do(t, router, call{method: http.MethodPut, path: "/api/v1/admin/platform-rate", actor: "root", role: "admin", body: map[string]string{"rate": "0.12"}})
	if code != http.StatusOK {
		t.Fatalf("rate change = %d %v", code, rate)
	}

	code, rel := do(t, router, call{method: http.MethodPost, path: "/api/v1/admin/availability/release", actor: "root", role: "admin", body: map[string]string{
		"kind": "listing", "id": "villa", "start": "2026-01-10T00:00:00Z", "end": "2026-01-12T00:00:00Z",
	}})
	if code != http.StatusOK {
		t.Fatalf("release = %d %v", code, rel)
	}
}

func TestActorHeadersAndHealthEndpoints(t *testing.T) {
	router := newTestRouter(t)

	if code, _ := do(t, router, call{method: http.MethodGet, path: "/api/v1/bookings/x", actor: "sys", role: "system"}); code != http.StatusForbidden {
		t.Fatalf("system role over http = %d", code)
	}
	if code, _ := do(t, router, call{method: http.MethodGet, path: "/api/v1/bookings/x", actor: "u", role: "pilot"}); code != http.StatusBadRequest {
		t.Fatalf("unknown role = %d", code)
	}
	if code, _ := do(t, router, call{method: http.MethodGet, path: "/api/v1/bookings/missing", actor: "guest-1", role: "guest"}); code != http.StatusNotFound {
		t.Fatalf("missing booking = %d", code)
	}
	if code, _ := do(t, router, call{method: http.MethodGet, path: "/livez"}); code != http.StatusOK {
		t.Fatalf("livez = %d", code)
	}
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("stayledger_")) {
		t.Fatalf("metrics = %d", rec.Code)
	}
}
