package catalog

import (
	"errors"
	"testing"

	"stayledger/internal/domain/pricing"
	"stayledger/internal/domain/shared/money"
)

func TestResourceTariffForMode(t *testing.T) {
	hourly := pricing.Tariff{BasePrice: money.Must(150000, "INR")}
	r := Resource{
		Ref:          ResourceRef{Kind: KindListing, ID: "villa"},
		HostID:       "host-1",
		MaxGuests:    4,
		Modes:        []Mode{ModeDaily, ModeHourly24},
		Tariff:       pricing.Tariff{BasePrice: money.Must(100000, "INR")},
		HourlyTariff: &hourly,
	}
	if err := r.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	daily, err := r.TariffFor(ModeDaily)
	if err != nil || daily.Unit != pricing.UnitNight || daily.BasePrice.Amount != 100000 {
		t.Fatalf("daily tariff = %+v, %v", daily, err)
	}
	h24, err := r.TariffFor(ModeHourly24)
	if err != nil || h24.Unit != pricing.UnitDay24 || h24.BasePrice.Amount != 150000 {
		t.Fatalf("hourly tariff = %+v, %v", h24, err)
	}
	if _, err := r.TariffFor(ModeService); !errors.Is(err, ErrModeMismatch) {
		t.Fatalf("expected ErrModeMismatch, got %v", err)
	}
}

func TestServiceOnlySupportsSlots(t *testing.T) {
	r := Resource{Ref: ResourceRef{Kind: KindService, ID: "chef"}, Modes: []Mode{ModeDaily}}
	if r.Supports(ModeDaily) || !r.Supports(ModeService) {
		t.Fatal("service resources must only support slot bookings")
	}
}
