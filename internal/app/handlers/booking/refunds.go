package booking

import (
	"context"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/dto"
	handlersupport "stayledger/internal/app/handlers/support"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/uow"
	domainbooking "stayledger/internal/domain/booking"
	domainrefunds "stayledger/internal/domain/refunds"
)

// recordRefund appends a refund row for decision and schedules the gateway
// call for after the commit. Nothing is refunded when the guest was never
// charged.
func (d *Deps) recordRefund(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking, decision domainrefunds.Decision, charged bool) (*domainrefunds.Refund, error) {
	if !charged || decision.Amount.Amount <= 0 {
		return nil, nil
	}
	now := d.now()
	r := &domainrefunds.Refund{
		ID:         d.newID(),
		BookingID:  string(b.ID),
		Reason:     decision.Reason,
		Type:       decision.Type,
		Percentage: decision.Percentage,
		Amount:     decision.Amount,
		Status:     domainrefunds.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := b.RecordRefund(r, now); err != nil {
		return nil, err
	}
	if err := unit.Refunds().Save(ctx, r); err != nil {
		return nil, err
	}
	snapshot := *r
	txID := b.PaymentTransactionID
	uow.AfterCommit(ctx, func(ctx context.Context) {
		d.settleRefund(ctx, b.ID, txID, &snapshot)
	})
	return r, nil
}

// settleRefund pushes a recorded refund to the gateway and stores the
// outcome. A failed refund stays on the booking as refund_status=failed.
func (d *Deps) settleRefund(ctx context.Context, bookingID domainbooking.BookingID, txID string, r *domainrefunds.Refund) {
	if d.Payments == nil {
		return
	}
	callCtx, cancel := context.WithTimeout(ctx, d.settleTimeout())
	res, err := d.Payments.Refund(callCtx, policies.RefundRequest{
		BookingID:     string(bookingID),
		RefundID:      r.ID,
		TransactionID: txID,
		Amount:        r.Amount,
	})
	cancel()
	ok := err == nil
	if ok {
		d.metrics().RefundIssued(string(r.Reason), r.Amount.Amount)
	} else {
		d.logger().Error("gateway refund failed", "booking_id", bookingID, "refund_id", r.ID, "error", err)
	}

	var guestID string
	err = uow.Run(ctx, d.UoWFactory, uow.TxOptions{}, func(ctx context.Context, unit uow.UnitOfWork) error {
		now := d.now()
		if ok {
			r.MarkProcessed(res.Reference, now)
		} else {
			r.MarkFailed(now)
		}
		if err := unit.Refunds().Save(ctx, r); err != nil {
			return err
		}
		b, err := unit.Bookings().ByID(ctx, bookingID)
		if err != nil {
			return err
		}
		guestID = b.GuestID
		b.MarkRefundSettled(r, ok, now)
		return d.persist(ctx, unit, b)
	})
	if err != nil {
		d.logger().Error("refund outcome not stored", "booking_id", bookingID, "refund_id", r.ID, "error", err)
		return
	}
	if ok {
		d.Notifications.Dispatch(ctx, guestID, policies.TemplateRefundIssued, dto.MapRefund(r))
	}
}

// RefundSecurityDepositHandler returns the deposit line once a stay is over.
type RefundSecurityDepositHandler struct {
	Deps *Deps
}

func (h *RefundSecurityDepositHandler) Handle(ctx context.Context, cmd RefundSecurityDepositCommand) (*dto.BookingWithRefundsDTO, error) {
	const op = refundSecurityDepositKey
	d := h.Deps
	var out dto.BookingWithRefundsDTO
	err := handlersupport.InUnit(ctx, d.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, domainbooking.BookingID(cmd.BookingID))
		if err != nil {
			return err
		}
		if err := b.CanRefundDeposit(cmd.Actor); err != nil {
			return err
		}
		deposit := b.Pricing.SecurityDeposit
		if deposit.Amount <= 0 {
			return invalid(op, "booking has no security deposit")
		}
		existing, err := unit.Refunds().ListByBooking(ctx, string(b.ID))
		if err != nil {
			return err
		}
		for _, r := range existing {
			if r.Reason == domainrefunds.ReasonSecurityDepositOnly && r.Status != domainrefunds.StatusFailed {
				return invalid(op, "security deposit already refunded")
			}
		}
		decision, err := domainrefunds.Apply(domainrefunds.ReasonSecurityDepositOnly, domainrefunds.Quote{}, b.Total(), deposit)
		if err != nil {
			return err
		}
		r, err := d.recordRefund(ctx, unit, b, decision, b.Charged())
		if err != nil {
			return err
		}
		if r == nil {
			return invalid(op, "booking was never charged")
		}
		if err := d.persist(ctx, unit, b); err != nil {
			return err
		}
		out.Booking = dto.MapBooking(b)
		out.Refunds = mapRefunds(append(existing, r))
		return nil
	})
	if err != nil {
		return nil, d.fail(op, err)
	}
	return &out, nil
}

func mapRefunds(rows []*domainrefunds.Refund) []dto.RefundDTO {
	out := make([]dto.RefundDTO, 0, len(rows))
	for _, r := range rows {
		if r == nil {
			continue
		}
		out = append(out, dto.MapRefund(r))
	}
	return out
}

var _ commands.Handler[RefundSecurityDepositCommand, *dto.BookingWithRefundsDTO] = (*RefundSecurityDepositHandler)(nil)
