package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stayledger/internal/domain/availability"
	"stayledger/internal/domain/catalog"
	"stayledger/internal/domain/pricing"
	"stayledger/internal/domain/refunds"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/events"
	"stayledger/internal/domain/shared/money"
)

var (
	ErrBookingNotFound     = errors.New("booking: not found")
	ErrInvalidTransition   = errors.New("booking: invalid state transition")
	ErrAlreadyCheckedIn    = errors.New("booking: guest already checked in")
	ErrUnauthorized        = errors.New("booking: actor may not perform this action")
	ErrStayStarted         = errors.New("booking: stay has already started")
	ErrTooEarly            = errors.New("booking: operation not permitted before the stay window")
	ErrCancellationLocked  = errors.New("booking: cancellation is not permitted this close to check-in")
	ErrRefundExceedsTotal  = errors.New("booking: refunds would exceed the amount charged")
	ErrInvalidGuests       = errors.New("booking: at least one adult is required")
	ErrShapeMismatch       = errors.New("booking: temporal shape does not match booking type")
	ErrGuestRequired       = errors.New("booking: guest id is required")
	ErrConcurrentUpdate    = errors.New("booking: booking was modified concurrently")
	ErrDuplicateBooking    = errors.New("booking: booking already exists")
	ErrIdempotencyRequired = errors.New("booking: idempotency key is required")
)

type BookingID string

type Status string

const (
	StatusBlocked    Status = "blocked"
	StatusProcessing Status = "processing"
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusExpired    Status = "expired"
)

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusExpired
}

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
	PaymentRefunded          PaymentStatus = "refunded"
)

type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
	RefundFailed    RefundStatus = "failed"
)

// TransitionError reports a guard failure together with the current and
// requested states.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("booking: cannot move from %s to %s", e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func transition(from, to Status) error {
	return &TransitionError{From: from, To: to}
}

type Guests struct {
	Adults   int
	Children int
	Infants  int
}

func (g Guests) Validate() error {
	if g.Adults < 1 || g.Children < 0 || g.Infants < 0 {
		return ErrInvalidGuests
	}
	return nil
}

// Occupancy counts everyone who takes a bed; infants do not.
func (g Guests) Occupancy() int {
	return g.Adults + g.Children
}

type Requester struct {
	IP        string
	UserAgent string
}

type Booking struct {
	ID             BookingID
	IdempotencyKey string
	GuestID        string
	HostID         string
	Resource       catalog.ResourceRef
	Type           catalog.Mode
	// Stay is set for daily and 24-hour bookings, Slot for services.
	Stay     *daterange.DateRange
	Slot     *daterange.DateRange
	HeldSpan availability.Span
	Guests   Guests

	Pricing            pricing.Breakdown
	CancellationPolicy refunds.Policy

	Status               Status
	PaymentStatus        PaymentStatus
	PaymentTransactionID string
	RefundAmount         money.Money
	RefundStatus         RefundStatus

	CancelledBy     string
	CancelledByRole Role
	CancelledAt     *time.Time
	CancelReason    string
	CheckedIn       bool
	CheckedInAt     *time.Time
	CheckedInBy     string
	AcceptedAt      *time.Time
	CompletedAt     *time.Time
	HostMessage     string

	Requester  Requester
	CouponCode string

	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ByIdempotencyKey(ctx context.Context, guestID, key string) (*Booking, error)
	// Save inserts a booking with Version 0 or updates one whose stored
	// version equals b.Version; on success b.Version is incremented.
	Save(ctx context.Context, b *Booking) error
	// ListStale returns bookings in status last updated before cutoff.
	ListStale(ctx context.Context, status Status, cutoff time.Time, limit int) ([]*Booking, error)
	// ListEndedBefore returns bookings in status whose stay ended before cutoff.
	ListEndedBefore(ctx context.Context, status Status, cutoff time.Time, limit int) ([]*Booking, error)
}

type CreateParams struct {
	ID                 BookingID
	IdempotencyKey     string
	GuestID            string
	HostID             string
	Resource           catalog.ResourceRef
	Type               catalog.Mode
	Window             daterange.DateRange
	HeldSpan           availability.Span
	Guests             Guests
	Pricing            pricing.Breakdown
	CancellationPolicy refunds.Policy
	Requester          Requester
	CouponCode         string
	CreatedAt          time.Time
}

// NewBooking creates a booking in the blocked state: the availability hold
// is taken but payment has not started.
func NewBooking(p CreateParams) (*Booking, error) {
	if strings.TrimSpace(p.GuestID) == "" {
		return nil, ErrGuestRequired
	}
	if strings.TrimSpace(p.IdempotencyKey) == "" {
		return nil, ErrIdempotencyRequired
	}
	if err := p.Resource.Validate(); err != nil {
		return nil, err
	}
	if err := p.Guests.Validate(); err != nil {
		return nil, err
	}
	if err := p.Window.Validate(); err != nil {
		return nil, err
	}
	window := p.Window
	b := &Booking{
		ID:                 p.ID,
		IdempotencyKey:     p.IdempotencyKey,
		GuestID:            p.GuestID,
		HostID:             p.HostID,
		Resource:           p.Resource,
		Type:               p.Type,
		HeldSpan:           p.HeldSpan,
		Guests:             p.Guests,
		Pricing:            p.Pricing,
		CancellationPolicy: p.CancellationPolicy,
		Status:             StatusBlocked,
		PaymentStatus:      PaymentUnpaid,
		RefundAmount:       money.Zero(p.Pricing.Currency),
		RefundStatus:       RefundNone,
		Requester:          p.Requester,
		CouponCode:         p.CouponCode,
		CreatedAt:          p.CreatedAt.UTC(),
		UpdatedAt:          p.CreatedAt.UTC(),
	}
	switch p.Type {
	case catalog.ModeDaily, catalog.ModeHourly24:
		if p.Resource.Kind != catalog.KindListing {
			return nil, ErrShapeMismatch
		}
		b.Stay = &window
	case catalog.ModeService:
		if p.Resource.Kind != catalog.KindService {
			return nil, ErrShapeMismatch
		}
		b.Slot = &window
	default:
		return nil, ErrShapeMismatch
	}
	return b, nil
}

// Window is the booked interval regardless of shape.
func (b *Booking) Window() daterange.DateRange {
	if b.Slot != nil {
		return *b.Slot
	}
	if b.Stay != nil {
		return *b.Stay
	}
	return daterange.DateRange{}
}

func (b *Booking) Start() time.Time { return b.Window().CheckIn }
func (b *Booking) End() time.Time   { return b.Window().CheckOut }

func (b *Booking) Total() money.Money { return b.Pricing.TotalAmount }

// Charged reports whether the gateway has taken the guest's money.
func (b *Booking) Charged() bool {
	switch b.PaymentStatus {
	case PaymentPending, PaymentPaid, PaymentPartiallyRefunded:
		return true
	}
	return false
}

func (b *Booking) touch(now time.Time) time.Time {
	at := now.UTC()
	b.UpdatedAt = at
	return at
}

// StartPayment moves a blocked booking into processing.
func (b *Booking) StartPayment(now time.Time) error {
	if b.Status != StatusBlocked {
		return transition(b.Status, StatusProcessing)
	}
	b.Status = StatusProcessing
	b.touch(now)
	return nil
}

// MarkPending records a settled charge and hands the booking to the host.
func (b *Booking) MarkPending(transactionID string, now time.Time) error {
	if b.Status != StatusProcessing {
		return transition(b.Status, StatusPending)
	}
	b.Status = StatusPending
	b.PaymentStatus = PaymentPending
	b.PaymentTransactionID = transactionID
	at := b.touch(now)
	b.Record(Requested{
		BookingID: b.ID,
		Resource:  b.Resource.String(),
		GuestID:   b.GuestID,
		HostID:    b.HostID,
		Start:     b.Start(),
		End:       b.End(),
		Total:     b.Total(),
		At:        at,
	})
	return nil
}

// AbortCreation cancels a booking whose creation failed before it reached
// the host.
func (b *Booking) AbortCreation(reason string, now time.Time) error {
	if b.Status != StatusBlocked && b.Status != StatusProcessing {
		return transition(b.Status, StatusCancelled)
	}
	b.PaymentStatus = PaymentFailed
	b.cancel(SystemActor(), reason, now)
	return nil
}

func (b *Booking) Accept(actor Actor, message string, now time.Time) error {
	if !actor.IsHostOf(b) {
		return ErrUnauthorized
	}
	if b.Status != StatusPending {
		return transition(b.Status, StatusConfirmed)
	}
	b.Status = StatusConfirmed
	b.PaymentStatus = PaymentPaid
	b.HostMessage = strings.TrimSpace(message)
	at := b.touch(now)
	b.AcceptedAt = &at
	b.Record(Accepted{BookingID: b.ID, HostID: b.HostID, GuestID: b.GuestID, Message: b.HostMessage, At: at})
	return nil
}

func (b *Booking) Reject(actor Actor, reason string, now time.Time) error {
	if !actor.IsHostOf(b) {
		return ErrUnauthorized
	}
	if b.Status != StatusPending {
		return transition(b.Status, StatusCancelled)
	}
	b.cancel(actor, reason, now)
	b.Record(Rejected{BookingID: b.ID, HostID: b.HostID, GuestID: b.GuestID, Reason: reason, At: b.UpdatedAt})
	return nil
}

// RefundReason resolves which refund rule a cancellation by actor falls
// under in the current state.
func (b *Booking) RefundReason(actor Actor) refunds.Reason {
	switch actor.Role {
	case RoleHost:
		return refunds.ReasonHostCancel
	case RoleAdmin, RoleSystem:
		return refunds.ReasonSystem
	}
	if b.Status == StatusConfirmed {
		return refunds.ReasonGuestRequest
	}
	return refunds.ReasonPendingCancel
}

// CheckCancel runs every cancellation guard without mutating the booking.
func (b *Booking) CheckCancel(actor Actor, now time.Time) error {
	if !actor.CanCancel(b) {
		return ErrUnauthorized
	}
	switch b.Status {
	case StatusPending, StatusConfirmed:
	case StatusBlocked, StatusProcessing:
		if actor.Role != RoleSystem && actor.Role != RoleAdmin {
			return transition(b.Status, StatusCancelled)
		}
		return nil
	default:
		return transition(b.Status, StatusCancelled)
	}
	if b.CheckedIn {
		return ErrAlreadyCheckedIn
	}
	if !now.Before(b.Start()) {
		return ErrStayStarted
	}
	return nil
}

// Cancel applies a cancellation whose refund has already been decided.
func (b *Booking) Cancel(actor Actor, reason string, decision refunds.Decision, now time.Time) error {
	if err := b.CheckCancel(actor, now); err != nil {
		return err
	}
	b.cancel(actor, reason, now)
	b.Record(Cancelled{
		BookingID:  b.ID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Reason:     reason,
		RefundType: decision.Type,
		Refund:     decision.Amount,
		At:         b.UpdatedAt,
	})
	return nil
}

func (b *Booking) cancel(actor Actor, reason string, now time.Time) {
	at := b.touch(now)
	b.Status = StatusCancelled
	b.CancelledBy = actor.ID
	b.CancelledByRole = actor.Role
	b.CancelledAt = &at
	b.CancelReason = strings.TrimSpace(reason)
}

// Expire ends a pending booking the host never answered.
func (b *Booking) Expire(now time.Time) error {
	if b.Status != StatusPending {
		return transition(b.Status, StatusExpired)
	}
	at := b.touch(now)
	b.Status = StatusExpired
	b.CancelledBy = SystemActor().ID
	b.CancelledByRole = RoleSystem
	b.CancelledAt = &at
	b.CancelReason = "host approval window elapsed"
	b.Record(Expired{BookingID: b.ID, At: at})
	return nil
}

func (b *Booking) CheckIn(actor Actor, now time.Time) error {
	if !actor.IsHostOf(b) && actor.Role != RoleAdmin {
		return ErrUnauthorized
	}
	if b.Status != StatusConfirmed {
		return transition(b.Status, StatusConfirmed)
	}
	if b.CheckedIn {
		return ErrAlreadyCheckedIn
	}
	if now.Before(daterange.StartOfDay(b.Start())) {
		return ErrTooEarly
	}
	at := b.touch(now)
	b.CheckedIn = true
	b.CheckedInAt = &at
	b.CheckedInBy = actor.ID
	b.Record(CheckedIn{BookingID: b.ID, By: actor.ID, At: at})
	return nil
}

func (b *Booking) Complete(actor Actor, now time.Time) error {
	if !actor.IsHostOf(b) && actor.Role != RoleAdmin && actor.Role != RoleSystem {
		return ErrUnauthorized
	}
	if b.Status != StatusConfirmed {
		return transition(b.Status, StatusCompleted)
	}
	if !now.After(b.End()) {
		return ErrTooEarly
	}
	at := b.touch(now)
	b.Status = StatusCompleted
	b.CompletedAt = &at
	b.Record(Completed{BookingID: b.ID, At: at})
	return nil
}

// RecordRefund books a refund delta. The original charge stays untouched
// and the running refund total can never exceed it.
func (b *Booking) RecordRefund(r *refunds.Refund, now time.Time) error {
	if r == nil || r.Amount.Amount <= 0 {
		return nil
	}
	if r.Status != refunds.StatusFailed {
		next, err := b.RefundAmount.Add(r.Amount)
		if err != nil {
			return err
		}
		if next.Amount > b.Total().Amount {
			return ErrRefundExceedsTotal
		}
		b.RefundAmount = next
	}
	switch r.Status {
	case refunds.StatusProcessed:
		b.RefundStatus = RefundProcessed
	case refunds.StatusFailed:
		b.RefundStatus = RefundFailed
	default:
		b.RefundStatus = RefundPending
	}
	b.PaymentStatus = b.refundedPaymentStatus()
	at := b.touch(now)
	b.Record(RefundRecorded{BookingID: b.ID, RefundID: r.ID, Reason: r.Reason, Amount: r.Amount, At: at})
	return nil
}

// refundedPaymentStatus derives the payment status from the refunded total.
// Failed refunds are not part of RefundAmount.
func (b *Booking) refundedPaymentStatus() PaymentStatus {
	switch {
	case b.RefundAmount.Amount <= 0:
		if b.PaymentStatus == PaymentRefunded || b.PaymentStatus == PaymentPartiallyRefunded {
			return PaymentPaid
		}
		return b.PaymentStatus
	case b.RefundAmount.Amount >= b.Total().Amount:
		return PaymentRefunded
	default:
		return PaymentPartiallyRefunded
	}
}

// ReverseCharge records the refund of a charge taken by a creation attempt
// that could not be completed. The booking keeps payment_failed.
func (b *Booking) ReverseCharge(transactionID string, r *refunds.Refund, now time.Time) {
	b.PaymentTransactionID = transactionID
	if r.Status == refunds.StatusProcessed {
		b.RefundAmount = r.Amount
		b.RefundStatus = RefundProcessed
	} else {
		b.RefundStatus = RefundFailed
	}
	at := b.touch(now)
	b.Record(RefundRecorded{BookingID: b.ID, RefundID: r.ID, Reason: r.Reason, Amount: r.Amount, At: at})
}

// CanRefundDeposit reports whether the deposit line can still be returned.
func (b *Booking) CanRefundDeposit(actor Actor) error {
	if !actor.IsHostOf(b) && actor.Role != RoleAdmin {
		return ErrUnauthorized
	}
	if b.Status != StatusCompleted {
		return transition(b.Status, StatusCompleted)
	}
	return nil
}

// MarkRefundSettled reflects the gateway outcome of r. A failed refund no
// longer counts toward RefundAmount so it can be retried.
func (b *Booking) MarkRefundSettled(r *refunds.Refund, ok bool, now time.Time) {
	if ok {
		b.RefundStatus = RefundProcessed
		b.touch(now)
		return
	}
	b.RefundStatus = RefundFailed
	if r != nil && r.Amount.Amount > 0 {
		if next, err := b.RefundAmount.Sub(r.Amount); err == nil {
			if next.Amount < 0 {
				next.Amount = 0
			}
			b.RefundAmount = next
			b.PaymentStatus = b.refundedPaymentStatus()
		}
	}
	b.touch(now)
}
