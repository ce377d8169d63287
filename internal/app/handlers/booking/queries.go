package booking

import (
	"context"
	"errors"
	"time"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/dto"
	handlersupport "stayledger/internal/app/handlers/support"
	"stayledger/internal/app/queries"
	domainavailability "stayledger/internal/domain/availability"
	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/money"
)

// QuotePriceHandler prices a stay without holding anything or redeeming
// the coupon.
type QuotePriceHandler struct {
	Deps *Deps
}

func (h *QuotePriceHandler) Handle(ctx context.Context, q QuotePriceQuery) (dto.QuoteDTO, error) {
	const op = quotePriceKey
	d := h.Deps
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, d.UoWFactory)
	if err != nil {
		return dto.QuoteDTO{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	now := d.now()
	stay, err := resolveStay(execCtx, op, unit, q.StayRequest, now)
	if err != nil {
		return dto.QuoteDTO{}, d.fail(op, err)
	}
	breakdown, _, err := priceStay(execCtx, op, unit, stay, q.CouponCode, q.Actor.ID, now)
	if err != nil {
		return dto.QuoteDTO{}, d.fail(op, err)
	}
	return dto.QuoteDTO{
		Resource: dto.ResourceDTO{Kind: string(stay.Resource.Ref.Kind), ID: stay.Resource.Ref.ID},
		Pricing:  dto.MapBreakdown(breakdown),
		Receipt:  dto.MapReceipt(breakdown.GuestReceipt()),
		Payout:   dto.MapPayout(breakdown.HostPayout()),
	}, nil
}

// CancellationPreviewHandler reports what a cancellation by the caller
// would refund right now.
type CancellationPreviewHandler struct {
	Deps *Deps
}

func (h *CancellationPreviewHandler) Handle(ctx context.Context, q CancellationPreviewQuery) (dto.CancellationPreviewDTO, error) {
	const op = cancellationPreviewKey
	d := h.Deps
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, d.UoWFactory)
	if err != nil {
		return dto.CancellationPreviewDTO{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.CancellationPreviewDTO{}, d.fail(op, err)
	}
	if !q.Actor.CanView(b) {
		return dto.CancellationPreviewDTO{}, apperr.New(apperr.KindUnauthorized, op, domainbooking.ErrUnauthorized)
	}
	now := d.now()
	out := dto.CancellationPreviewDTO{
		BookingID: string(b.ID),
		Policy:    string(b.CancellationPolicy),
		Reason:    string(b.RefundReason(q.Actor)),
		HoursLeft: b.Start().Sub(now).Hours(),
		Amount:    dto.MapMoney(money.Zero(b.Total().Currency)),
	}
	decision, quote, err := decideCancellation(b, q.Actor, now)
	if err != nil {
		if errors.Is(err, domainbooking.ErrUnauthorized) {
			return dto.CancellationPreviewDTO{}, apperr.New(apperr.KindUnauthorized, op, err)
		}
		out.Blocker = err.Error()
		out.Percentage = quote.Percentage
		return out, nil
	}
	out.Allowed = true
	out.RefundType = string(decision.Type)
	out.Percentage = decision.Percentage
	out.Amount = dto.MapMoney(decision.Amount)
	return out, nil
}

// GetBookingHandler returns a booking with its refund rows to its parties.
type GetBookingHandler struct {
	Deps *Deps
}

func (h *GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (dto.BookingWithRefundsDTO, error) {
	const op = getBookingKey
	d := h.Deps
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, d.UoWFactory)
	if err != nil {
		return dto.BookingWithRefundsDTO{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return dto.BookingWithRefundsDTO{}, d.fail(op, err)
	}
	if !q.Actor.CanView(b) {
		return dto.BookingWithRefundsDTO{}, apperr.New(apperr.KindUnauthorized, op, domainbooking.ErrUnauthorized)
	}
	rows, err := unit.Refunds().ListByBooking(execCtx, string(b.ID))
	if err != nil {
		return dto.BookingWithRefundsDTO{}, d.fail(op, err)
	}
	return dto.BookingWithRefundsDTO{Booking: dto.MapBooking(b), Refunds: mapRefunds(rows)}, nil
}

// CheckAvailabilityHandler answers whether a span could be held now.
type CheckAvailabilityHandler struct {
	Deps *Deps
}

func (h *CheckAvailabilityHandler) Handle(ctx context.Context, q CheckAvailabilityQuery) (dto.AvailabilityDTO, error) {
	const op = checkAvailabilityKey
	d := h.Deps
	ref := domaincatalog.ResourceRef{Kind: domaincatalog.Kind(q.ResourceKind), ID: q.ResourceID}
	if err := ref.Validate(); err != nil {
		return dto.AvailabilityDTO{}, d.fail(op, err)
	}
	span, err := querySpan(q.Start, q.End, q.BufferHours, q.Daily)
	if err != nil {
		return dto.AvailabilityDTO{}, d.fail(op, err)
	}
	ok, err := d.Ledger.IsAvailable(ctx, ref, span)
	if err != nil {
		return dto.AvailabilityDTO{}, d.fail(op, err)
	}
	cells, err := d.Ledger.Cells(ctx, ref, span.Bounds())
	if err != nil {
		return dto.AvailabilityDTO{}, d.fail(op, err)
	}
	return dto.AvailabilityDTO{
		Resource:  dto.ResourceDTO{Kind: string(ref.Kind), ID: ref.ID},
		Start:     span.Start,
		End:       span.End,
		Available: ok,
		Cells:     dto.MapCells(cells),
	}, nil
}

func querySpan(start, end time.Time, bufferHours int, daily bool) (domainavailability.Span, error) {
	if daily {
		return domainavailability.DailySpan(daterange.StartOfDay(start), daterange.StartOfDay(end))
	}
	return domainavailability.TimedSpan(start, end, time.Duration(bufferHours)*time.Hour)
}

var (
	_ queries.Handler[QuotePriceQuery, dto.QuoteDTO]                        = (*QuotePriceHandler)(nil)
	_ queries.Handler[CancellationPreviewQuery, dto.CancellationPreviewDTO] = (*CancellationPreviewHandler)(nil)
	_ queries.Handler[GetBookingQuery, dto.BookingWithRefundsDTO]           = (*GetBookingHandler)(nil)
	_ queries.Handler[CheckAvailabilityQuery, dto.AvailabilityDTO]          = (*CheckAvailabilityHandler)(nil)
)
