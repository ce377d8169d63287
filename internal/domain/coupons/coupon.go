package coupons

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayledger/internal/domain/shared/money"
)

var (
	ErrCouponNotFound   = errors.New("coupons: coupon not found")
	ErrCouponExpired    = errors.New("coupons: coupon is outside its validity window")
	ErrBelowMinimum     = errors.New("coupons: booking amount is below the coupon minimum")
	ErrAlreadyRedeemed  = errors.New("coupons: coupon already used by this user")
	ErrInvalidType      = errors.New("coupons: discount type must be percentage or fixed")
	ErrInvalidPercent   = errors.New("coupons: percentage must be within (0, 10000] bps")
	ErrCurrencyMismatch = errors.New("coupons: coupon currency differs from booking currency")
)

type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

type Coupon struct {
	Code             string
	Type             Type
	PercentBps       money.BasisPoints
	FixedAmount      money.Money
	MaxDiscount      money.Money
	MinBookingAmount money.Money
	ValidFrom        time.Time
	ValidTo          time.Time
	UsedBy           []string
}

// Normalize upper-cases coupon codes so lookups are case-insensitive.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c Coupon) Validate() error {
	switch c.Type {
	case TypePercentage:
		if c.PercentBps <= 0 || c.PercentBps > 10000 {
			return ErrInvalidPercent
		}
	case TypeFixed:
		if c.FixedAmount.Amount <= 0 {
			return ErrInvalidType
		}
	default:
		return ErrInvalidType
	}
	return nil
}

func (c Coupon) UsedByUser(userID string) bool {
	for _, id := range c.UsedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// CanApply checks the window, minimum amount and per-user ledger. amount is
// the pre-discount host subtotal.
func (c Coupon) CanApply(userID string, amount money.Money, now time.Time) error {
	if !c.ValidFrom.IsZero() && now.Before(c.ValidFrom) {
		return ErrCouponExpired
	}
	if !c.ValidTo.IsZero() && now.After(c.ValidTo) {
		return ErrCouponExpired
	}
	if c.MinBookingAmount.Currency != "" && c.MinBookingAmount.Currency != amount.Currency {
		return ErrCurrencyMismatch
	}
	if amount.Amount < c.MinBookingAmount.Amount {
		return ErrBelowMinimum
	}
	if c.UsedByUser(userID) {
		return ErrAlreadyRedeemed
	}
	return nil
}

// Discount returns the discount for amount: a percentage capped by
// MaxDiscount, or a fixed value capped by the amount itself.
func (c Coupon) Discount(amount money.Money) (money.Money, error) {
	var value int64
	switch c.Type {
	case TypePercentage:
		value = money.RoundRate(amount.Amount, c.PercentBps)
		if c.MaxDiscount.Amount > 0 && value > c.MaxDiscount.Amount {
			value = c.MaxDiscount.Amount
		}
	case TypeFixed:
		if c.FixedAmount.Currency != "" && c.FixedAmount.Currency != amount.Currency {
			return money.Money{}, ErrCurrencyMismatch
		}
		value = c.FixedAmount.Amount
	default:
		return money.Money{}, ErrInvalidType
	}
	if value > amount.Amount {
		value = amount.Amount
	}
	if value < 0 {
		value = 0
	}
	return money.Money{Amount: value, Currency: amount.Currency}, nil
}

type Repository interface {
	ByCode(ctx context.Context, code string) (*Coupon, error)
	Save(ctx context.Context, coupon *Coupon) error
	// Redeem atomically adds userID to the usage ledger, failing with
	// ErrAlreadyRedeemed when it is already present.
	Redeem(ctx context.Context, code, userID string) error
	Unredeem(ctx context.Context, code, userID string) error
}
