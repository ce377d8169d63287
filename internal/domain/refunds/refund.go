package refunds

import (
	"context"
	"errors"
	"time"

	"stayledger/internal/domain/shared/money"
)

var ErrUnknownReason = errors.New("refunds: unknown refund reason")

type Reason string

const (
	ReasonHostCancel          Reason = "host_cancel"
	ReasonHostReject          Reason = "host_reject"
	ReasonGuestRequest        Reason = "guest_request"
	ReasonPendingCancel       Reason = "pending_cancel"
	ReasonSystem              Reason = "system"
	ReasonSecurityDepositOnly Reason = "security_deposit_only"
)

type Type string

const (
	TypeFull                Type = "full"
	TypePartial             Type = "partial"
	TypeSecurityDepositOnly Type = "security_deposit_only"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Decision is the refund that a reason and policy quote resolve to.
type Decision struct {
	Reason     Reason
	Type       Type
	Percentage int
	Amount     money.Money
}

// Apply resolves the refund for reason. Host, reject, pending and system
// reasons always refund the whole charge; a guest request follows the
// policy quote; a deposit refund covers only the deposit line.
func Apply(reason Reason, quote Quote, total, deposit money.Money) (Decision, error) {
	switch reason {
	case ReasonHostCancel, ReasonHostReject, ReasonPendingCancel, ReasonSystem:
		return Decision{Reason: reason, Type: TypeFull, Percentage: 100, Amount: total}, nil
	case ReasonGuestRequest:
		t := TypePartial
		if quote.Percentage == 100 {
			t = TypeFull
		}
		return Decision{Reason: reason, Type: t, Percentage: quote.Percentage, Amount: quote.Amount}, nil
	case ReasonSecurityDepositOnly:
		return Decision{Reason: reason, Type: TypeSecurityDepositOnly, Amount: deposit}, nil
	default:
		return Decision{}, ErrUnknownReason
	}
}

// Refund is one settlement adjustment against a booking. The original
// charge is never mutated.
type Refund struct {
	ID         string
	BookingID  string
	Reason     Reason
	Type       Type
	Percentage int
	Amount     money.Money
	Status     Status
	GatewayRef string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (r *Refund) MarkProcessed(gatewayRef string, now time.Time) {
	r.Status = StatusProcessed
	r.GatewayRef = gatewayRef
	r.UpdatedAt = now.UTC()
}

func (r *Refund) MarkFailed(now time.Time) {
	r.Status = StatusFailed
	r.UpdatedAt = now.UTC()
}

type Repository interface {
	Save(ctx context.Context, refund *Refund) error
	ListByBooking(ctx context.Context, bookingID string) ([]*Refund, error)
}
