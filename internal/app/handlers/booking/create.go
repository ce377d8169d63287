package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/commands"
	"stayledger/internal/app/dto"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/uow"
	domainavailability "stayledger/internal/domain/availability"
	domainbooking "stayledger/internal/domain/booking"
	domaincoupons "stayledger/internal/domain/coupons"
	domainrefunds "stayledger/internal/domain/refunds"
)

// CreateBookingHandler takes the hold, charges the guest and hands the
// booking to the host. Every step commits on its own so a crash leaves a
// blocked or processing row for the sweeper to clean up.
type CreateBookingHandler struct {
	Deps *Deps
}

func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.BookingDTO, error) {
	const op = createBookingKey
	d := h.Deps
	now := d.now()
	key := strings.TrimSpace(cmd.IdempotencyKeyV)
	if key == "" {
		return nil, apperr.New(apperr.KindValidation, op, domainbooking.ErrIdempotencyRequired)
	}

	var (
		stay     resolvedStay
		b        *domainbooking.Booking
		existing *domainbooking.Booking
	)
	err := uow.Run(ctx, d.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		found, err := unit.Bookings().ByIdempotencyKey(ctx, cmd.Actor.ID, key)
		switch {
		case err == nil && !abandoned(found):
			existing = found
			return nil
		case err != nil && !errors.Is(err, domainbooking.ErrBookingNotFound):
			return err
		}
		stay, err = resolveStay(ctx, op, unit, cmd.StayRequest, now)
		if err != nil {
			return err
		}
		policy, err := domainrefunds.ParsePolicy(stay.Resource.CancellationPolicy)
		if err != nil {
			return err
		}
		breakdown, coupon, err := priceStay(ctx, op, unit, stay, cmd.CouponCode, cmd.Actor.ID, now)
		if err != nil {
			return err
		}
		couponCode := ""
		if coupon != nil {
			couponCode = coupon.Code
		}
		b, err = domainbooking.NewBooking(domainbooking.CreateParams{
			ID:                 domainbooking.BookingID(d.newID()),
			IdempotencyKey:     key,
			GuestID:            cmd.Actor.ID,
			HostID:             stay.Resource.HostID,
			Resource:           stay.Resource.Ref,
			Type:               stay.Mode,
			Window:             stay.Window,
			HeldSpan:           stay.Span,
			Guests:             stay.Guests,
			Pricing:            breakdown,
			CancellationPolicy: policy,
			Requester:          domainbooking.Requester{IP: cmd.RequesterIP, UserAgent: cmd.UserAgent},
			CouponCode:         couponCode,
			CreatedAt:          now,
		})
		return err
	})
	if err != nil {
		return nil, d.fail(op, err)
	}
	if existing != nil {
		out := dto.MapBooking(existing)
		return &out, nil
	}

	if b.CouponCode != "" {
		if err := d.redeem(ctx, b.CouponCode, b.GuestID); err != nil {
			return nil, d.fail(op, err)
		}
	}

	if err := d.Ledger.Hold(ctx, b.Resource, b.HeldSpan, string(b.ID)); err != nil {
		d.unredeem(ctx, b)
		if errors.Is(err, domainavailability.ErrConflict) {
			d.metrics().HoldConflict()
			return nil, apperr.New(apperr.KindResourceConflict, op, err)
		}
		return nil, d.fail(op, err)
	}

	err = uow.Run(ctx, d.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		return d.persist(ctx, unit, b)
	})
	if err != nil {
		d.releaseHold(ctx, b)
		d.unredeem(ctx, b)
		if errors.Is(err, domainbooking.ErrDuplicateBooking) {
			return h.replay(ctx, op, cmd.Actor.ID, key)
		}
		return nil, d.fail(op, err)
	}

	if txID, err := h.settle(ctx, b, cmd.PaymentMethod); err != nil {
		d.metrics().SettlementFailed(settlementReason(err))
		d.logger().Warn("booking settlement failed", "booking_id", b.ID, "error", err)
		d.abort(ctx, b, txID, err)
		return nil, apperr.New(apperr.KindUpstreamFailure, op, err)
	}

	out := dto.MapBooking(b)
	return &out, nil
}

// settle moves the booking through processing into pending around the
// gateway charge. The transaction id is returned whenever the charge went
// through, even if the pending state could not be stored.
func (h *CreateBookingHandler) settle(ctx context.Context, b *domainbooking.Booking, method string) (string, error) {
	d := h.Deps
	err := uow.Run(ctx, d.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := b.StartPayment(d.now()); err != nil {
			return err
		}
		return d.persist(ctx, unit, b)
	})
	if err != nil {
		return "", err
	}

	settleCtx, cancel := context.WithTimeout(ctx, d.settleTimeout())
	defer cancel()
	settlement, err := d.Payments.Settle(settleCtx, policies.SettleRequest{
		BookingID:      string(b.ID),
		IdempotencyKey: b.IdempotencyKey,
		Amount:         b.Total(),
		Method:         method,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: %v", policies.ErrPaymentTimeout, err)
		}
		return "", err
	}
	if settlement.Status != policies.SettlementSucceeded {
		return "", policies.ErrPaymentDeclined
	}

	txID := settlement.TransactionID
	err = uow.Run(ctx, d.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		if err := b.MarkPending(txID, d.now()); err != nil {
			return err
		}
		if err := d.persist(ctx, unit, b); err != nil {
			return err
		}
		snapshot := *b
		d.notify(ctx, b.HostID, policies.TemplateBookingRequested, dto.MapBooking(&snapshot))
		uow.AfterCommit(ctx, func(ctx context.Context) {
			d.archiveReceipt(ctx, &snapshot)
		})
		return nil
	})
	return txID, err
}

// replay returns the booking a concurrent request with the same key created.
func (h *CreateBookingHandler) replay(ctx context.Context, op, guestID, key string) (*dto.BookingDTO, error) {
	var out dto.BookingDTO
	err := uow.Run(ctx, h.Deps.UoWFactory, uow.TxOptions{ReadOnly: true}, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByIdempotencyKey(ctx, guestID, key)
		if err != nil {
			return err
		}
		out = dto.MapBooking(b)
		return nil
	})
	if err != nil {
		return nil, h.Deps.fail(op, err)
	}
	return &out, nil
}

// abandoned reports whether a previous attempt under the same key failed
// before it reached the host, in which case the key may be reused.
func abandoned(b *domainbooking.Booking) bool {
	return b.Status == domainbooking.StatusCancelled && b.PaymentStatus == domainbooking.PaymentFailed
}

func settlementReason(err error) string {
	switch {
	case errors.Is(err, policies.ErrPaymentDeclined):
		return "declined"
	case errors.Is(err, policies.ErrPaymentTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

func (d *Deps) redeem(ctx context.Context, code, guestID string) error {
	return uow.Run(ctx, d.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Coupons().Redeem(ctx, code, guestID)
	})
}

func (d *Deps) unredeem(ctx context.Context, b *domainbooking.Booking) {
	if b.CouponCode == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	err := uow.Run(ctx, d.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		return unit.Coupons().Unredeem(ctx, b.CouponCode, b.GuestID)
	})
	if err != nil && !errors.Is(err, domaincoupons.ErrCouponNotFound) {
		d.logger().Error("coupon unredeem failed", "booking_id", b.ID, "coupon", b.CouponCode, "error", err)
	}
}

// releaseHold returns the booking's cells to available. Release is
// idempotent so a failure here is only logged.
func (d *Deps) releaseHold(ctx context.Context, b *domainbooking.Booking) {
	ctx = context.WithoutCancel(ctx)
	if err := d.Ledger.Release(ctx, b.Resource, b.HeldSpan, string(b.ID)); err != nil {
		d.logger().Error("ledger release failed", "booking_id", b.ID, "resource", b.Resource.String(), "error", err)
	}
}

// abort rolls back a creation attempt whose settlement failed. A charge
// that already went through (txID set) is refunded in full and recorded as
// a system refund.
func (d *Deps) abort(ctx context.Context, b *domainbooking.Booking, txID string, cause error) {
	ctx = context.WithoutCancel(ctx)
	d.releaseHold(ctx, b)
	d.unredeem(ctx, b)
	var reversal *domainrefunds.Refund
	if txID != "" {
		reversal = d.reverseCharge(ctx, b, txID)
	}
	err := uow.Run(ctx, d.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		current, err := unit.Bookings().ByID(ctx, b.ID)
		if err != nil {
			return err
		}
		now := d.now()
		if err := current.AbortCreation("payment failed: "+cause.Error(), now); err != nil {
			return err
		}
		if reversal != nil {
			if err := unit.Refunds().Save(ctx, reversal); err != nil {
				return err
			}
			current.ReverseCharge(txID, reversal, now)
		}
		return d.persist(ctx, unit, current)
	})
	if err != nil {
		d.logger().Error("booking abort failed", "booking_id", b.ID, "error", err)
	}
}

// reverseCharge refunds the whole charge of an aborted creation at the
// gateway and returns the refund row describing the outcome.
func (d *Deps) reverseCharge(ctx context.Context, b *domainbooking.Booking, txID string) *domainrefunds.Refund {
	now := d.now()
	r := &domainrefunds.Refund{
		ID:         d.newID(),
		BookingID:  string(b.ID),
		Reason:     domainrefunds.ReasonSystem,
		Type:       domainrefunds.TypeFull,
		Percentage: 100,
		Amount:     b.Total(),
		Status:     domainrefunds.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if d.Payments == nil {
		r.MarkFailed(now)
		return r
	}
	callCtx, cancel := context.WithTimeout(ctx, d.settleTimeout())
	res, err := d.Payments.Refund(callCtx, policies.RefundRequest{
		BookingID:     string(b.ID),
		RefundID:      r.ID,
		TransactionID: txID,
		Amount:        r.Amount,
	})
	cancel()
	if err != nil {
		d.logger().Error("charge reversal failed", "booking_id", b.ID, "transaction_id", txID, "error", err)
		r.MarkFailed(d.now())
		return r
	}
	d.metrics().RefundIssued(string(r.Reason), r.Amount.Amount)
	r.MarkProcessed(res.Reference, d.now())
	return r
}

func (d *Deps) archiveReceipt(ctx context.Context, b *domainbooking.Booking) {
	if d.Receipts == nil {
		return
	}
	if err := d.Receipts.Put(ctx, string(b.ID), b.Pricing); err != nil {
		d.logger().Warn("receipt archive failed", "booking_id", b.ID, "error", err)
	}
}

var _ commands.Handler[CreateBookingCommand, *dto.BookingDTO] = (*CreateBookingHandler)(nil)
