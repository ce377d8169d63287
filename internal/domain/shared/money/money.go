package money

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrInvalidCurrency  = errors.New("money: invalid currency code")
	ErrCurrencyMismatch = errors.New("money: currency mismatch")
	ErrInvalidRate      = errors.New("money: invalid rate")
)

// BasisPoints expresses a rate in hundredths of a percent (1500 = 15%).
type BasisPoints int64

const bpsBase = 10_000

// Money keeps amounts in integer minor units (paise, cents) so that every
// rounded step of a price computation is exact to two decimals.
type Money struct {
	Amount   int64
	Currency string
}

// New constructs Money validating minimal invariants.
func New(amount int64, currency string) (Money, error) {
	if len(currency) != 3 {
		return Money{}, ErrInvalidCurrency
	}
	return Money{Amount: amount, Currency: strings.ToUpper(currency)}, nil
}

// Must creates Money and panics if validation fails; useful in tests and fixtures.
func Must(amount int64, currency string) Money {
	m, err := New(amount, currency)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns an empty amount in the given currency.
func Zero(currency string) Money {
	return Money{Currency: strings.ToUpper(currency)}
}

// Add adds two money values ensuring currencies match.
func (m Money) Add(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount + other.Amount, Currency: m.Currency}, nil
}

// Sub subtracts other from the receiver.
func (m Money) Sub(other Money) (Money, error) {
	if err := m.ensureSameCurrency(other); err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount - other.Amount, Currency: m.Currency}, nil
}

// Multiply multiplies the amount by the provided factor.
func (m Money) Multiply(times int64) Money {
	return Money{Amount: m.Amount * times, Currency: m.Currency}
}

// ApplyRate returns m × rate rounded half-up to the nearest minor unit.
func (m Money) ApplyRate(rate BasisPoints) Money {
	return Money{Amount: RoundRate(m.Amount, rate), Currency: m.Currency}
}

// Percent returns m × percent / 100 rounded half-up.
func (m Money) Percent(percent int) Money {
	return m.ApplyRate(BasisPoints(percent) * 100)
}

// IsZero returns true if the amount equals zero.
func (m Money) IsZero() bool {
	return m.Amount == 0
}

// GreaterThan compares amounts; currencies are assumed to match.
func (m Money) GreaterThan(other Money) bool {
	return m.Amount > other.Amount
}

// Decimal renders the amount with two decimals, e.g. "4960.35".
func (m Money) Decimal() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

func (m Money) String() string {
	return m.Decimal() + " " + m.Currency
}

func (m Money) ensureSameCurrency(other Money) error {
	if m.Currency == "" || other.Currency == "" {
		return ErrInvalidCurrency
	}
	if m.Currency != other.Currency {
		return ErrCurrencyMismatch
	}
	return nil
}

// RoundRate computes amount × rate / 10000 with half-up rounding
// (half away from zero for negative amounts).
func RoundRate(amount int64, rate BasisPoints) int64 {
	product := amount * int64(rate)
	if product >= 0 {
		return (product + bpsBase/2) / bpsBase
	}
	return -((-product + bpsBase/2) / bpsBase)
}

// ParseRate converts a decimal fraction such as "0.15" into basis points.
func ParseRate(raw string) (BasisPoints, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, ErrInvalidRate
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRate, raw)
	}
	if f < 0 || f >= 1 {
		return 0, fmt.Errorf("%w: %q must be within [0,1)", ErrInvalidRate, raw)
	}
	return BasisPoints(math.Round(f * bpsBase)), nil
}

// ParseAmount converts a decimal string such as "30.00" into minor units.
func ParseAmount(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("money: invalid amount %q: %w", raw, err)
	}
	return int64(math.Round(f * 100)), nil
}

// Fraction renders the rate as a decimal fraction, e.g. 1500 -> "0.15".
func (b BasisPoints) Fraction() string {
	return strconv.FormatFloat(float64(b)/bpsBase, 'f', -1, 64)
}
