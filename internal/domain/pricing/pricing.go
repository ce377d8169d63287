package pricing

import (
	"errors"
	"fmt"

	"stayledger/internal/domain/shared/money"
)

var (
	ErrCurrencyUnset     = errors.New("pricing: currency must be defined")
	ErrNegativeComponent = errors.New("pricing: tariff components cannot be negative")
	ErrInvalidDuration   = errors.New("pricing: invalid stay duration")
	ErrInvalidExtension  = errors.New("pricing: hourly extension must be 6, 12 or 18 hours")
	ErrInvalidGuests     = errors.New("pricing: at least one adult is required")
	ErrUnknownUnit       = errors.New("pricing: unknown tariff unit")
)

// Unit describes what the base price of a tariff is charged per.
type Unit string

const (
	UnitNight Unit = "night"
	UnitDay24 Unit = "day24"
	UnitSlot  Unit = "slot"
)

const (
	DefaultGSTRate         money.BasisPoints = 1800
	DefaultProcessingRate  money.BasisPoints = 290
	DefaultProcessingFixed int64             = 3000
)

// extensionTiers maps the hours beyond whole 24-hour blocks to the surcharge
// percentage of the 24-hour rate.
var extensionTiers = map[int]int{
	6:  30,
	12: 60,
	18: 75,
}

type Tariff struct {
	Unit            Unit
	BasePrice       money.Money
	ExtraGuestPrice money.Money
	CleaningFee     money.Money
	ServiceFee      money.Money
	SecurityDeposit money.Money
}

func (t Tariff) Currency() string {
	return t.BasePrice.Currency
}

func (t Tariff) Validate() error {
	if t.BasePrice.Currency == "" {
		return ErrCurrencyUnset
	}
	for _, m := range []money.Money{t.BasePrice, t.ExtraGuestPrice, t.CleaningFee, t.ServiceFee, t.SecurityDeposit} {
		if m.Amount < 0 {
			return ErrNegativeComponent
		}
		if m.Currency != "" && m.Currency != t.BasePrice.Currency {
			return money.ErrCurrencyMismatch
		}
	}
	switch t.Unit {
	case UnitNight, UnitDay24, UnitSlot:
	default:
		return ErrUnknownUnit
	}
	return nil
}

// StayShape is the requested quantity: nights for nightly tariffs, total
// hours for 24-hour tariffs; slot tariffs ignore both.
type StayShape struct {
	Nights int
	Hours  int
	Adults int
}

type Discount struct {
	Amount     money.Money
	CouponCode string
}

// FeeSchedule carries the rates in force when a quote is produced. The
// platform rate comes from the active PricingConfig version.
type FeeSchedule struct {
	PlatformRate       money.BasisPoints
	RateVersionID      string
	GSTRate            money.BasisPoints
	ProcessingRate     money.BasisPoints
	ProcessingFixedFee int64
}

// DefaultFees returns the statutory schedule for the given platform rate.
func DefaultFees(platformRate money.BasisPoints, versionID string) FeeSchedule {
	return FeeSchedule{
		PlatformRate:       platformRate,
		RateVersionID:      versionID,
		GSTRate:            DefaultGSTRate,
		ProcessingRate:     DefaultProcessingRate,
		ProcessingFixedFee: DefaultProcessingFixed,
	}
}

// Breakdown is the persisted pricing snapshot. Every intermediate value is
// kept so that guest, host and platform views reconcile without recomputation.
type Breakdown struct {
	Currency         string
	Unit             Unit
	Nights           int
	Hours            int
	DurationUnits    int
	ExtraGuests      int
	ExtensionPercent int

	BaseAmount          money.Money
	ExtraGuestCost      money.Money
	CleaningFee         money.Money
	ServiceFee          money.Money
	SecurityDeposit     money.Money
	HourlyExtensionCost money.Money
	DiscountAmount      money.Money
	HostSubtotal        money.Money
	Subtotal            money.Money
	PlatformFee         money.Money
	GST                 money.Money
	ProcessingFee       money.Money
	TotalAmount         money.Money
	HostEarning         money.Money

	PlatformFeeRate    money.BasisPoints
	RateVersionID      string
	GSTRate            money.BasisPoints
	ProcessingRate     money.BasisPoints
	ProcessingFixedFee money.Money
	CouponCode         string
}

type duration struct {
	units            int
	extensionPercent int
}

func resolveDuration(t Tariff, s StayShape) (duration, error) {
	switch t.Unit {
	case UnitNight:
		if s.Nights < 1 {
			return duration{}, fmt.Errorf("%w: nights must be positive", ErrInvalidDuration)
		}
		return duration{units: s.Nights}, nil
	case UnitDay24:
		if s.Hours < 24 {
			return duration{}, fmt.Errorf("%w: at least 24 hours required", ErrInvalidDuration)
		}
		d := duration{units: s.Hours / 24}
		if rem := s.Hours % 24; rem != 0 {
			pct, ok := extensionTiers[rem]
			if !ok {
				return duration{}, ErrInvalidExtension
			}
			d.extensionPercent = pct
		}
		return d, nil
	case UnitSlot:
		return duration{units: 1}, nil
	default:
		return duration{}, ErrUnknownUnit
	}
}

// PreDiscountSubtotal returns the host subtotal before any discount. Coupon
// bounds are evaluated against it.
func PreDiscountSubtotal(t Tariff, s StayShape) (money.Money, error) {
	b, err := Compute(t, s, Discount{}, FeeSchedule{})
	if err != nil {
		return money.Money{}, err
	}
	return b.HostSubtotal, nil
}

// Compute prices a stay. The steps run in a fixed order with rounding after
// each one; reordering them changes totals by rounding drift.
func Compute(t Tariff, s StayShape, d Discount, fees FeeSchedule) (Breakdown, error) {
	if err := t.Validate(); err != nil {
		return Breakdown{}, err
	}
	if s.Adults < 1 {
		return Breakdown{}, ErrInvalidGuests
	}
	dur, err := resolveDuration(t, s)
	if err != nil {
		return Breakdown{}, err
	}
	cur := t.Currency()
	if d.Amount.Amount < 0 {
		return Breakdown{}, ErrNegativeComponent
	}
	if d.Amount.Currency != "" && d.Amount.Currency != cur {
		return Breakdown{}, money.ErrCurrencyMismatch
	}

	// 1. base amount and the 24-hour extension surcharge
	baseAmount := t.BasePrice.Amount * int64(dur.units)
	extension := money.RoundRate(t.BasePrice.Amount, money.BasisPoints(dur.extensionPercent)*100)

	// 2. extra guests beyond the first adult, per duration unit
	extraGuests := s.Adults - 1
	if extraGuests < 0 {
		extraGuests = 0
	}
	extraGuestCost := t.ExtraGuestPrice.Amount * int64(extraGuests) * int64(dur.units)

	// 3. host subtotal, deposit excluded
	preDiscount := baseAmount + extraGuestCost + t.CleaningFee.Amount + t.ServiceFee.Amount + extension
	discount := d.Amount.Amount
	if discount > preDiscount {
		discount = preDiscount
	}
	hostSubtotal := preDiscount - discount

	// 4. customer-facing subtotal
	subtotal := hostSubtotal + t.SecurityDeposit.Amount

	// 5. platform commission on host revenue only
	platformFee := money.RoundRate(hostSubtotal, fees.PlatformRate)

	// 6. tax on the full subtotal, deposit included
	gst := money.RoundRate(subtotal, fees.GSTRate)

	// 7. processing
	processingFee := money.RoundRate(subtotal, fees.ProcessingRate) + fees.ProcessingFixedFee

	// 8. total charged
	total := subtotal + platformFee + gst + processingFee

	// 9. host earning
	hostEarning := hostSubtotal - platformFee

	m := func(v int64) money.Money { return money.Money{Amount: v, Currency: cur} }
	return Breakdown{
		Currency:            cur,
		Unit:                t.Unit,
		Nights:              s.Nights,
		Hours:               s.Hours,
		DurationUnits:       dur.units,
		ExtraGuests:         extraGuests,
		ExtensionPercent:    dur.extensionPercent,
		BaseAmount:          m(baseAmount),
		ExtraGuestCost:      m(extraGuestCost),
		CleaningFee:         m(t.CleaningFee.Amount),
		ServiceFee:          m(t.ServiceFee.Amount),
		SecurityDeposit:     m(t.SecurityDeposit.Amount),
		HourlyExtensionCost: m(extension),
		DiscountAmount:      m(discount),
		HostSubtotal:        m(hostSubtotal),
		Subtotal:            m(subtotal),
		PlatformFee:         m(platformFee),
		GST:                 m(gst),
		ProcessingFee:       m(processingFee),
		TotalAmount:         m(total),
		HostEarning:         m(hostEarning),
		PlatformFeeRate:     fees.PlatformRate,
		RateVersionID:       fees.RateVersionID,
		GSTRate:             fees.GSTRate,
		ProcessingRate:      fees.ProcessingRate,
		ProcessingFixedFee:  m(fees.ProcessingFixedFee),
		CouponCode:          d.CouponCode,
	}, nil
}
