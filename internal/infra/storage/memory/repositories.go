package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	domainrefunds "stayledger/internal/domain/refunds"
	"stayledger/internal/domain/shared/events"
)

// CatalogRepository keeps bookable resources keyed by "kind:id".
type CatalogRepository struct {
	mu    sync.RWMutex
	items map[string]domaincatalog.Resource
}

func NewCatalogRepository(resources ...domaincatalog.Resource) *CatalogRepository {
	r := &CatalogRepository{items: make(map[string]domaincatalog.Resource)}
	for _, res := range resources {
		r.items[res.Ref.String()] = res
	}
	return r
}

func (r *CatalogRepository) ByRef(ctx context.Context, ref domaincatalog.ResourceRef) (*domaincatalog.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.items[ref.String()]
	if !ok {
		return nil, domaincatalog.ErrResourceNotFound
	}
	return &res, nil
}

func (r *CatalogRepository) Save(ctx context.Context, resource *domaincatalog.Resource) error {
	if err := resource.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[resource.Ref.String()] = *resource
	return nil
}

// BookingRepository stores copies of bookings so callers never share state
// with the store. Save enforces the version check and the live
// idempotency key index.
type BookingRepository struct {
	mu    sync.RWMutex
	items map[domainbooking.BookingID]*domainbooking.Booking
	keys  map[string]domainbooking.BookingID
}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{
		items: make(map[domainbooking.BookingID]*domainbooking.Booking),
		keys:  make(map[string]domainbooking.BookingID),
	}
}

func idempotencyIndex(guestID, key string) string {
	return guestID + "\x00" + key
}

// liveKey reports whether b still claims its idempotency key. Attempts that
// failed before reaching the host give the key back.
func liveKey(b *domainbooking.Booking) bool {
	return !(b.Status == domainbooking.StatusCancelled && b.PaymentStatus == domainbooking.PaymentFailed)
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

func (r *BookingRepository) ByIdempotencyKey(ctx context.Context, guestID, key string) (*domainbooking.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.keys[idempotencyIndex(guestID, key)]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return cloneBooking(r.items[id]), nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := idempotencyIndex(b.GuestID, b.IdempotencyKey)
	current, exists := r.items[b.ID]
	switch {
	case !exists && b.Version != 0:
		return domainbooking.ErrConcurrentUpdate
	case exists && current.Version != b.Version:
		return domainbooking.ErrConcurrentUpdate
	case exists && b.Version == 0:
		return domainbooking.ErrDuplicateBooking
	}
	if owner, taken := r.keys[idx]; taken && owner != b.ID && liveKey(b) {
		return domainbooking.ErrDuplicateBooking
	}
	b.Version++
	r.items[b.ID] = cloneBooking(b)
	if liveKey(b) {
		r.keys[idx] = b.ID
	} else if r.keys[idx] == b.ID {
		delete(r.keys, idx)
	}
	return nil
}

func (r *BookingRepository) ListStale(ctx context.Context, status domainbooking.Status, cutoff time.Time, limit int) ([]*domainbooking.Booking, error) {
	return r.list(limit, func(b *domainbooking.Booking) bool {
		return b.Status == status && b.UpdatedAt.Before(cutoff)
	}), nil
}

func (r *BookingRepository) ListEndedBefore(ctx context.Context, status domainbooking.Status, cutoff time.Time, limit int) ([]*domainbooking.Booking, error) {
	return r.list(limit, func(b *domainbooking.Booking) bool {
		return b.Status == status && b.End().Before(cutoff)
	}), nil
}

func (r *BookingRepository) list(limit int, match func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainbooking.Booking, 0)
	for _, b := range r.items {
		if match(b) {
			out = append(out, cloneBooking(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func cloneBooking(b *domainbooking.Booking) *domainbooking.Booking {
	cp := *b
	cp.EventRecorder = events.EventRecorder{}
	if b.Stay != nil {
		v := *b.Stay
		cp.Stay = &v
	}
	if b.Slot != nil {
		v := *b.Slot
		cp.Slot = &v
	}
	cp.CancelledAt = cloneTime(b.CancelledAt)
	cp.CheckedInAt = cloneTime(b.CheckedInAt)
	cp.AcceptedAt = cloneTime(b.AcceptedAt)
	cp.CompletedAt = cloneTime(b.CompletedAt)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// RefundRepository keeps refund rows per booking in creation order.
type RefundRepository struct {
	mu    sync.RWMutex
	items map[string][]domainrefunds.Refund
}

func NewRefundRepository() *RefundRepository {
	return &RefundRepository{items: make(map[string][]domainrefunds.Refund)}
}

// Save inserts a refund or replaces the row with the same id.
func (r *RefundRepository) Save(ctx context.Context, refund *domainrefunds.Refund) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.items[refund.BookingID]
	for i := range rows {
		if rows[i].ID == refund.ID {
			rows[i] = *refund
			return nil
		}
	}
	r.items[refund.BookingID] = append(rows, *refund)
	return nil
}

func (r *RefundRepository) ListByBooking(ctx context.Context, bookingID string) ([]*domainrefunds.Refund, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rows := r.items[bookingID]
	out := make([]*domainrefunds.Refund, 0, len(rows))
	for i := range rows {
		v := rows[i]
		out = append(out, &v)
	}
	return out, nil
}

var (
	_ domaincatalog.Repository = (*CatalogRepository)(nil)
	_ domainbooking.Repository = (*BookingRepository)(nil)
	_ domainrefunds.Repository = (*RefundRepository)(nil)
)
