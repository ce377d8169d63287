package pricing

import (
	"context"
	"errors"
	"time"

	"stayledger/internal/domain/shared/money"
)

var (
	ErrNoActiveRate = errors.New("pricing: no active platform fee rate")
	ErrInvalidRate  = errors.New("pricing: platform fee rate must be within [0, 10000) bps")
)

// RateVersion is one row of the append-only platform fee history. Exactly one
// version is active at a time.
type RateVersion struct {
	ID            string
	RateBps       money.BasisPoints
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	IsActive      bool
	ChangedBy     string
}

// RateRepository stores PricingConfig versions.
type RateRepository interface {
	Active(ctx context.Context) (RateVersion, error)
	// ChangeRate closes the active version and appends next as the new active one.
	ChangeRate(ctx context.Context, next RateVersion) (RateVersion, error)
	History(ctx context.Context) ([]RateVersion, error)
}

// NewRateVersion validates a requested rate change.
func NewRateVersion(id string, rate money.BasisPoints, changedBy string, now time.Time) (RateVersion, error) {
	if rate < 0 || rate >= 10000 {
		return RateVersion{}, ErrInvalidRate
	}
	return RateVersion{
		ID:            id,
		RateBps:       rate,
		EffectiveFrom: now.UTC(),
		IsActive:      true,
		ChangedBy:     changedBy,
	}, nil
}

// Close marks the version as superseded at now.
func (v *RateVersion) Close(now time.Time) {
	at := now.UTC()
	v.EffectiveTo = &at
	v.IsActive = false
}
