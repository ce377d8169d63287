package booking

import (
	"context"
	"time"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/dto"
	handlersupport "stayledger/internal/app/handlers/support"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domainrefunds "stayledger/internal/domain/refunds"
	"stayledger/internal/domain/shared/money"
)

// mutate loads a booking, applies fn and saves it with the version check.
func (d *Deps) mutate(ctx context.Context, op string, id string, fn func(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error) (*dto.BookingDTO, error) {
	var out dto.BookingDTO
	err := handlersupport.InUnit(ctx, d.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(id))
		if err != nil {
			return err
		}
		if err := fn(ctx, unit, b); err != nil {
			return err
		}
		if err := d.persist(ctx, unit, b); err != nil {
			return err
		}
		out = dto.MapBooking(b)
		return nil
	})
	if err != nil {
		return nil, d.fail(op, err)
	}
	return &out, nil
}

// afterTerminal releases the hold once the terminal state is committed.
func (d *Deps) afterTerminal(ctx context.Context, b *domainbooking.Booking) {
	snapshot := *b
	uow.AfterCommit(ctx, func(ctx context.Context) {
		d.releaseHold(ctx, &snapshot)
	})
}

type AcceptBookingHandler struct {
	Deps *Deps
}

func (h *AcceptBookingHandler) Handle(ctx context.Context, cmd AcceptBookingCommand) (*dto.BookingDTO, error) {
	d := h.Deps
	return d.mutate(ctx, acceptBookingKey, cmd.BookingID, func(ctx context.Context, _ uow.UnitOfWork, b *domainbooking.Booking) error {
		if err := b.Accept(cmd.Actor, cmd.Message, d.now()); err != nil {
			return err
		}
		if err := d.Ledger.Promote(ctx, b.Resource, string(b.ID)); err != nil {
			return err
		}
		d.notify(ctx, b.GuestID, policies.TemplateBookingAccepted, dto.MapBooking(b))
		return nil
	})
}

type RejectBookingHandler struct {
	Deps *Deps
}

func (h *RejectBookingHandler) Handle(ctx context.Context, cmd RejectBookingCommand) (*dto.BookingDTO, error) {
	d := h.Deps
	return d.mutate(ctx, rejectBookingKey, cmd.BookingID, func(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
		charged := b.Charged()
		if err := b.Reject(cmd.Actor, cmd.Reason, d.now()); err != nil {
			return err
		}
		decision, err := domainrefunds.Apply(domainrefunds.ReasonHostReject, domainrefunds.Quote{}, b.Total(), b.Pricing.SecurityDeposit)
		if err != nil {
			return err
		}
		if _, err := d.recordRefund(ctx, unit, b, decision, charged); err != nil {
			return err
		}
		d.afterTerminal(ctx, b)
		d.notify(ctx, b.GuestID, policies.TemplateBookingRejected, dto.MapBooking(b))
		return nil
	})
}

// decideCancellation resolves the refund a cancellation by actor earns now.
func decideCancellation(b *domainbooking.Booking, actor domainbooking.Actor, now time.Time) (domainrefunds.Decision, domainrefunds.Quote, error) {
	if err := b.CheckCancel(actor, now); err != nil {
		return domainrefunds.Decision{}, domainrefunds.Quote{}, err
	}
	quote, err := domainrefunds.Compute(b.CancellationPolicy, now, b.Start(), b.Total())
	if err != nil {
		return domainrefunds.Decision{}, domainrefunds.Quote{}, err
	}
	reason := b.RefundReason(actor)
	if reason == domainrefunds.ReasonGuestRequest && !quote.Allowed {
		return domainrefunds.Decision{}, quote, domainbooking.ErrCancellationLocked
	}
	decision, err := domainrefunds.Apply(reason, quote, b.Total(), b.Pricing.SecurityDeposit)
	if err != nil {
		return domainrefunds.Decision{}, quote, err
	}
	if !b.Charged() {
		decision.Amount = money.Zero(b.Total().Currency)
	}
	return decision, quote, nil
}

type CancelBookingHandler struct {
	Deps *Deps
}

func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.BookingDTO, error) {
	d := h.Deps
	return d.mutate(ctx, cancelBookingKey, cmd.BookingID, func(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
		now := d.now()
		charged := b.Charged()
		hostKnows := b.Status == domainbooking.StatusPending || b.Status == domainbooking.StatusConfirmed
		decision, _, err := decideCancellation(b, cmd.Actor, now)
		if err != nil {
			return err
		}
		if err := b.Cancel(cmd.Actor, cmd.Reason, decision, now); err != nil {
			return err
		}
		if _, err := d.recordRefund(ctx, unit, b, decision, charged); err != nil {
			return err
		}
		d.afterTerminal(ctx, b)
		view := dto.MapBooking(b)
		if cmd.Actor.ID != b.GuestID {
			d.notify(ctx, b.GuestID, policies.TemplateBookingCancelled, view)
		}
		if cmd.Actor.ID != b.HostID && hostKnows {
			d.notify(ctx, b.HostID, policies.TemplateBookingCancelled, view)
		}
		return nil
	})
}

type CheckInHandler struct {
	Deps *Deps
}

func (h *CheckInHandler) Handle(ctx context.Context, cmd CheckInCommand) (*dto.BookingDTO, error) {
	d := h.Deps
	return d.mutate(ctx, checkInKey, cmd.BookingID, func(_ context.Context, _ uow.UnitOfWork, b *domainbooking.Booking) error {
		return b.CheckIn(cmd.Actor, d.now())
	})
}

type CompleteBookingHandler struct {
	Deps *Deps
}

func (h *CompleteBookingHandler) Handle(ctx context.Context, cmd CompleteBookingCommand) (*dto.BookingDTO, error) {
	d := h.Deps
	return d.mutate(ctx, completeBookingKey, cmd.BookingID, func(ctx context.Context, _ uow.UnitOfWork, b *domainbooking.Booking) error {
		if err := b.Complete(cmd.Actor, d.now()); err != nil {
			return err
		}
		d.notify(ctx, b.GuestID, policies.TemplateBookingCompleted, dto.MapBooking(b))
		return nil
	})
}

type ExpireBookingHandler struct {
	Deps *Deps
}

func (h *ExpireBookingHandler) Handle(ctx context.Context, cmd ExpireBookingCommand) (*dto.BookingDTO, error) {
	d := h.Deps
	return d.mutate(ctx, expireBookingKey, cmd.BookingID, func(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
		charged := b.Charged()
		if err := b.Expire(d.now()); err != nil {
			return err
		}
		decision, err := domainrefunds.Apply(domainrefunds.ReasonSystem, domainrefunds.Quote{}, b.Total(), b.Pricing.SecurityDeposit)
		if err != nil {
			return err
		}
		if _, err := d.recordRefund(ctx, unit, b, decision, charged); err != nil {
			return err
		}
		d.afterTerminal(ctx, b)
		d.notify(ctx, b.GuestID, policies.TemplateBookingExpired, dto.MapBooking(b))
		return nil
	})
}

var (
	_ commands.Handler[AcceptBookingCommand, *dto.BookingDTO]   = (*AcceptBookingHandler)(nil)
	_ commands.Handler[RejectBookingCommand, *dto.BookingDTO]   = (*RejectBookingHandler)(nil)
	_ commands.Handler[CancelBookingCommand, *dto.BookingDTO]   = (*CancelBookingHandler)(nil)
	_ commands.Handler[CheckInCommand, *dto.BookingDTO]         = (*CheckInHandler)(nil)
	_ commands.Handler[CompleteBookingCommand, *dto.BookingDTO] = (*CompleteBookingHandler)(nil)
	_ commands.Handler[ExpireBookingCommand, *dto.BookingDTO]   = (*ExpireBookingHandler)(nil)
)
