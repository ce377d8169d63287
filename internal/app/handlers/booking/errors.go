package booking

import (
	"context"
	"errors"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/policies"
	domainavailability "stayledger/internal/domain/availability"
	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	domaincoupons "stayledger/internal/domain/coupons"
	domainpricing "stayledger/internal/domain/pricing"
	domainrefunds "stayledger/internal/domain/refunds"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/money"
)

var validationErrors = []error{
	daterange.ErrInvalidRange,
	money.ErrCurrencyMismatch,
	money.ErrInvalidCurrency,
	money.ErrInvalidRate,
	domainpricing.ErrCurrencyUnset,
	domainpricing.ErrNegativeComponent,
	domainpricing.ErrInvalidDuration,
	domainpricing.ErrInvalidExtension,
	domainpricing.ErrInvalidGuests,
	domainpricing.ErrUnknownUnit,
	domainpricing.ErrInvalidRate,
	domainbooking.ErrInvalidGuests,
	domainbooking.ErrShapeMismatch,
	domainbooking.ErrGuestRequired,
	domainbooking.ErrIdempotencyRequired,
	domainbooking.ErrInvalidRole,
	domaincatalog.ErrInvalidKind,
	domaincatalog.ErrModeMismatch,
	domaincoupons.ErrCouponExpired,
	domaincoupons.ErrBelowMinimum,
	domaincoupons.ErrAlreadyRedeemed,
	domaincoupons.ErrCurrencyMismatch,
	domainavailability.ErrInvalidSpan,
	domainrefunds.ErrUnknownPolicy,
}

// mapErr translates domain and collaborator failures into the application
// error taxonomy.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	var te *domainbooking.TransitionError
	if errors.As(err, &te) {
		return apperr.Transition(op, string(te.From), string(te.To), err)
	}
	switch {
	case errors.Is(err, domainbooking.ErrBookingNotFound),
		errors.Is(err, domaincatalog.ErrResourceNotFound),
		errors.Is(err, domaincoupons.ErrCouponNotFound):
		return apperr.New(apperr.KindNotFound, op, err)
	case errors.Is(err, domainbooking.ErrUnauthorized):
		return apperr.New(apperr.KindUnauthorized, op, err)
	case errors.Is(err, domainbooking.ErrAlreadyCheckedIn),
		errors.Is(err, domainbooking.ErrStayStarted),
		errors.Is(err, domainbooking.ErrTooEarly),
		errors.Is(err, domainbooking.ErrCancellationLocked),
		errors.Is(err, domainbooking.ErrConcurrentUpdate),
		errors.Is(err, domainbooking.ErrInvalidTransition):
		return apperr.New(apperr.KindInvalidTransition, op, err)
	case errors.Is(err, domainavailability.ErrConflict):
		return apperr.New(apperr.KindResourceConflict, op, err)
	case errors.Is(err, domainpricing.ErrUnreconciled),
		errors.Is(err, domainbooking.ErrRefundExceedsTotal),
		errors.Is(err, domainpricing.ErrNoActiveRate):
		return apperr.New(apperr.KindInconsistent, op, err)
	case errors.Is(err, policies.ErrPaymentDeclined),
		errors.Is(err, policies.ErrPaymentTimeout),
		errors.Is(err, context.DeadlineExceeded):
		return apperr.New(apperr.KindUpstreamFailure, op, err)
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return apperr.New(apperr.KindValidation, op, err)
		}
	}
	return err
}

// fail maps err and raises an alert for inconsistencies.
func (d *Deps) fail(op string, err error) error {
	mapped := mapErr(op, err)
	if errors.Is(mapped, apperr.Inconsistent) {
		d.metrics().Inconsistency(op)
		d.logger().Error("invariant violated", "op", op, "error", err, "alert", true)
	}
	return mapped
}
