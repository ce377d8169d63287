package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/uow"
	domainavailability "stayledger/internal/domain/availability"
	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	domaincoupons "stayledger/internal/domain/coupons"
	domainpricing "stayledger/internal/domain/pricing"
	"stayledger/internal/domain/shared/daterange"
)

// resolvedStay is a StayRequest checked against the resource's rules.
type resolvedStay struct {
	Resource *domaincatalog.Resource
	Mode     domaincatalog.Mode
	Window   daterange.DateRange
	Span     domainavailability.Span
	Shape    domainpricing.StayShape
	Guests   domainbooking.Guests
}

func (r StayRequest) ref() domaincatalog.ResourceRef {
	if strings.TrimSpace(r.ServiceID) != "" {
		return domaincatalog.ResourceRef{Kind: domaincatalog.KindService, ID: strings.TrimSpace(r.ServiceID)}
	}
	return domaincatalog.ResourceRef{Kind: domaincatalog.KindListing, ID: strings.TrimSpace(r.ListingID)}
}

func invalid(op, format string, args ...any) error {
	return apperr.Newf(apperr.KindValidation, op, format, args...)
}

func resolveStay(ctx context.Context, op string, unit uow.UnitOfWork, req StayRequest, now time.Time) (resolvedStay, error) {
	if (strings.TrimSpace(req.ListingID) == "") == (strings.TrimSpace(req.ServiceID) == "") {
		return resolvedStay{}, invalid(op, "exactly one of listing or service must be targeted")
	}
	resource, err := unit.Catalog().ByRef(ctx, req.ref())
	if err != nil {
		return resolvedStay{}, mapErr(op, err)
	}
	if !resource.Active {
		return resolvedStay{}, apperr.New(apperr.KindNotFound, op, domaincatalog.ErrResourceNotFound)
	}
	mode := domaincatalog.Mode(req.BookingType)
	if !resource.Supports(mode) {
		return resolvedStay{}, invalid(op, "resource cannot be booked as %s", mode)
	}
	guests := domainbooking.Guests{Adults: req.Adults, Children: req.Children, Infants: req.Infants}
	if err := guests.Validate(); err != nil {
		return resolvedStay{}, mapErr(op, err)
	}
	if resource.MaxGuests > 0 && guests.Occupancy() > resource.MaxGuests {
		return resolvedStay{}, invalid(op, "resource accepts at most %d guests", resource.MaxGuests)
	}

	out := resolvedStay{Resource: resource, Mode: mode, Guests: guests}
	buffer := time.Duration(resource.HostBufferHours) * time.Hour
	switch mode {
	case domaincatalog.ModeDaily:
		days, err := daterange.NewDays(req.CheckIn, req.CheckOut)
		if err != nil {
			return resolvedStay{}, invalid(op, "check-out must be after check-in")
		}
		nights := days.Nights()
		if resource.MinNights > 0 && nights < resource.MinNights {
			return resolvedStay{}, invalid(op, "minimum stay is %d nights", resource.MinNights)
		}
		if resource.MaxNights > 0 && nights > resource.MaxNights {
			return resolvedStay{}, invalid(op, "maximum stay is %d nights", resource.MaxNights)
		}
		if days.CheckIn.Before(daterange.StartOfDay(now)) {
			return resolvedStay{}, invalid(op, "check-in date is in the past")
		}
		out.Window = daterange.DateRange{
			CheckIn:  daterange.AtClock(days.CheckIn, resource.CheckInTime),
			CheckOut: daterange.AtClock(days.CheckOut, resource.CheckOutTime),
		}
		if err := out.Window.Validate(); err != nil {
			out.Window = days
		}
		out.Span, err = domainavailability.DailySpan(days.CheckIn, days.CheckOut)
		if err != nil {
			return resolvedStay{}, mapErr(op, err)
		}
		out.Shape = domainpricing.StayShape{Nights: nights, Adults: guests.Adults}
	case domaincatalog.ModeHourly24:
		if req.TotalHours < 24 {
			return resolvedStay{}, invalid(op, "24-hour stays need at least 24 hours")
		}
		if resource.MinHours > 0 && req.TotalHours < resource.MinHours {
			return resolvedStay{}, invalid(op, "minimum stay is %d hours", resource.MinHours)
		}
		start := req.CheckIn.UTC()
		if start.IsZero() || !start.After(now) {
			return resolvedStay{}, invalid(op, "check-in must be in the future")
		}
		end := start.Add(time.Duration(req.TotalHours) * time.Hour)
		out.Window = daterange.DateRange{CheckIn: start, CheckOut: end}
		out.Span, err = domainavailability.TimedSpan(start, end, buffer)
		if err != nil {
			return resolvedStay{}, mapErr(op, err)
		}
		out.Shape = domainpricing.StayShape{Hours: req.TotalHours, Adults: guests.Adults}
	case domaincatalog.ModeService:
		window, err := daterange.New(req.SlotStart, req.SlotEnd)
		if err != nil {
			return resolvedStay{}, invalid(op, "slot end must be after slot start")
		}
		if !window.CheckIn.After(now) {
			return resolvedStay{}, invalid(op, "slot must start in the future")
		}
		if resource.MinHours > 0 && window.Hours() < resource.MinHours {
			return resolvedStay{}, invalid(op, "minimum slot is %d hours", resource.MinHours)
		}
		out.Window = window
		out.Span, err = domainavailability.TimedSpan(window.CheckIn, window.CheckOut, buffer)
		if err != nil {
			return resolvedStay{}, mapErr(op, err)
		}
		out.Shape = domainpricing.StayShape{Adults: guests.Adults}
	default:
		return resolvedStay{}, invalid(op, "unknown booking type %q", req.BookingType)
	}
	return out, nil
}

// priceStay runs the pricing engine with the active platform rate and an
// optional coupon. The coupon is only checked here; redemption happens later.
func priceStay(ctx context.Context, op string, unit uow.UnitOfWork, stay resolvedStay, couponCode, userID string, now time.Time) (domainpricing.Breakdown, *domaincoupons.Coupon, error) {
	tariff, err := stay.Resource.TariffFor(stay.Mode)
	if err != nil {
		return domainpricing.Breakdown{}, nil, mapErr(op, err)
	}
	discount := domainpricing.Discount{}
	var coupon *domaincoupons.Coupon
	if code := domaincoupons.Normalize(couponCode); code != "" {
		coupon, err = unit.Coupons().ByCode(ctx, code)
		if err != nil {
			return domainpricing.Breakdown{}, nil, mapErr(op, err)
		}
		base, err := domainpricing.PreDiscountSubtotal(tariff, stay.Shape)
		if err != nil {
			return domainpricing.Breakdown{}, nil, mapErr(op, err)
		}
		if err := coupon.CanApply(userID, base, now); err != nil {
			return domainpricing.Breakdown{}, nil, mapErr(op, err)
		}
		amount, err := coupon.Discount(base)
		if err != nil {
			return domainpricing.Breakdown{}, nil, mapErr(op, err)
		}
		discount = domainpricing.Discount{Amount: amount, CouponCode: coupon.Code}
	}
	rate, err := unit.Rates().Active(ctx)
	if err != nil {
		return domainpricing.Breakdown{}, nil, mapErr(op, fmt.Errorf("active platform rate: %w", err))
	}
	breakdown, err := domainpricing.Compute(tariff, stay.Shape, discount, domainpricing.DefaultFees(rate.RateBps, rate.ID))
	if err != nil {
		return domainpricing.Breakdown{}, nil, mapErr(op, err)
	}
	if err := breakdown.Reconcile(); err != nil {
		return domainpricing.Breakdown{}, nil, mapErr(op, err)
	}
	return breakdown, coupon, nil
}
