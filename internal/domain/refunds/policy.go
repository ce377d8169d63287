package refunds

import (
	"errors"
	"time"

	"stayledger/internal/domain/shared/money"
)

var ErrUnknownPolicy = errors.New("refunds: unknown cancellation policy")

type Policy string

const (
	Flexible    Policy = "flexible"
	Moderate    Policy = "moderate"
	Strict      Policy = "strict"
	SuperStrict Policy = "super_strict"
)

// super_strict bookings cannot be cancelled at all inside this window.
const superStrictLockout = 168 * time.Hour

func ParsePolicy(raw string) (Policy, error) {
	switch p := Policy(raw); p {
	case Flexible, Moderate, Strict, SuperStrict:
		return p, nil
	case "":
		return Moderate, nil
	default:
		return "", ErrUnknownPolicy
	}
}

// Quote is the refund a guest-requested cancellation earns at a moment in time.
type Quote struct {
	Policy     Policy
	Percentage int
	Amount     money.Money
	Allowed    bool
	HoursLeft  float64
}

// Compute maps a policy and the time left before check-in onto a refund
// percentage. Thresholds are exclusive: exactly 24h before check-in is
// already inside the final day.
func Compute(policy Policy, now, checkIn time.Time, total money.Money) (Quote, error) {
	left := checkIn.Sub(now)
	pct := 0
	allowed := true
	switch policy {
	case Flexible:
		if left > 24*time.Hour {
			pct = 100
		}
	case Moderate:
		switch {
		case left > 120*time.Hour:
			pct = 100
		case left > 24*time.Hour:
			pct = 50
		}
	case Strict:
		if left > 168*time.Hour {
			pct = 50
		}
	case SuperStrict:
		allowed = left > superStrictLockout
	default:
		return Quote{}, ErrUnknownPolicy
	}
	return Quote{
		Policy:     policy,
		Percentage: pct,
		Amount:     total.Percent(pct),
		Allowed:    allowed,
		HoursLeft:  left.Hours(),
	}, nil
}
