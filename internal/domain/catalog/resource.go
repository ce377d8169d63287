package catalog

import (
	"context"
	"errors"
	"strings"

	"stayledger/internal/domain/pricing"
)

var (
	ErrResourceNotFound = errors.New("catalog: resource not found")
	ErrInvalidKind      = errors.New("catalog: resource kind must be listing or service")
	ErrHostRequired     = errors.New("catalog: host id is required")
	ErrGuestsLimit      = errors.New("catalog: max guests must be at least 1")
	ErrNightsRange      = errors.New("catalog: min nights must be <= max nights")
	ErrModeMismatch     = errors.New("catalog: booking mode does not match resource kind")
)

type Kind string

const (
	KindListing Kind = "listing"
	KindService Kind = "service"
)

// ResourceRef identifies exactly one bookable listing or service.
type ResourceRef struct {
	Kind Kind
	ID   string
}

func (r ResourceRef) String() string {
	return string(r.Kind) + ":" + r.ID
}

func (r ResourceRef) Validate() error {
	if r.Kind != KindListing && r.Kind != KindService {
		return ErrInvalidKind
	}
	if strings.TrimSpace(r.ID) == "" {
		return ErrResourceNotFound
	}
	return nil
}

// Mode is how a resource is booked.
type Mode string

const (
	ModeDaily    Mode = "daily"
	ModeHourly24 Mode = "hourly24"
	ModeService  Mode = "service"
)

// Unit maps the booking mode onto the tariff unit the pricing engine uses.
func (m Mode) Unit() pricing.Unit {
	switch m {
	case ModeHourly24:
		return pricing.UnitDay24
	case ModeService:
		return pricing.UnitSlot
	default:
		return pricing.UnitNight
	}
}

type Resource struct {
	Ref                ResourceRef
	HostID             string
	Title              string
	Modes              []Mode
	Tariff             pricing.Tariff
	HourlyTariff       *pricing.Tariff
	CancellationPolicy string
	MinNights          int
	MaxNights          int
	MinHours           int
	MaxGuests          int
	HostBufferHours    int
	CheckInTime        string
	CheckOutTime       string
	Active             bool
}

func (r Resource) Validate() error {
	if err := r.Ref.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(r.HostID) == "" {
		return ErrHostRequired
	}
	if r.MaxGuests < 1 {
		return ErrGuestsLimit
	}
	if r.MaxNights > 0 && r.MinNights > r.MaxNights {
		return ErrNightsRange
	}
	for _, m := range r.modes() {
		t, err := r.TariffFor(m)
		if err != nil {
			return err
		}
		if err := t.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (r Resource) modes() []Mode {
	if r.Ref.Kind == KindService {
		return []Mode{ModeService}
	}
	if len(r.Modes) == 0 {
		return []Mode{ModeDaily}
	}
	return r.Modes
}

// Supports reports whether the resource can be booked in mode m.
func (r Resource) Supports(m Mode) bool {
	if r.Ref.Kind == KindService {
		return m == ModeService
	}
	if m == ModeService {
		return false
	}
	if len(r.Modes) == 0 {
		return m == ModeDaily
	}
	for _, candidate := range r.Modes {
		if candidate == m {
			return true
		}
	}
	return false
}

// TariffFor returns the tariff charged for mode m. Listings may carry a
// separate 24-hour tariff.
func (r Resource) TariffFor(m Mode) (pricing.Tariff, error) {
	if !r.Supports(m) {
		return pricing.Tariff{}, ErrModeMismatch
	}
	t := r.Tariff
	if m == ModeHourly24 && r.HourlyTariff != nil {
		t = *r.HourlyTariff
	}
	t.Unit = m.Unit()
	return t, nil
}

type Repository interface {
	ByRef(ctx context.Context, ref ResourceRef) (*Resource, error)
	Save(ctx context.Context, resource *Resource) error
}
