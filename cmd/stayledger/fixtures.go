package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	domaincatalog "stayledger/internal/domain/catalog"
	domainpricing "stayledger/internal/domain/pricing"
	"stayledger/internal/domain/shared/money"
)

type resourceFixture struct {
	Kind               string         `json:"kind"`
	ID                 string         `json:"id"`
	HostID             string         `json:"host_id"`
	Title              string         `json:"title"`
	Modes              []string       `json:"modes"`
	Currency           string         `json:"currency"`
	Tariff             tariffFixture  `json:"tariff"`
	HourlyTariff       *tariffFixture `json:"hourly_tariff"`
	CancellationPolicy string         `json:"cancellation_policy"`
	MinNights          int            `json:"min_nights"`
	MaxNights          int            `json:"max_nights"`
	MinHours           int            `json:"min_hours"`
	MaxGuests          int            `json:"max_guests"`
	HostBufferHours    int            `json:"host_buffer_hours"`
	CheckInTime        string         `json:"check_in_time"`
	CheckOutTime       string         `json:"check_out_time"`
	Inactive           bool           `json:"inactive"`
}

type tariffFixture struct {
	BasePrice       int64 `json:"base_price"`
	ExtraGuestPrice int64 `json:"extra_guest_price"`
	CleaningFee     int64 `json:"cleaning_fee"`
	ServiceFee      int64 `json:"service_fee"`
	SecurityDeposit int64 `json:"security_deposit"`
}

func (t tariffFixture) toDomain(currency string) domainpricing.Tariff {
	m := func(v int64) money.Money { return money.Money{Amount: v, Currency: currency} }
	return domainpricing.Tariff{
		BasePrice:       m(t.BasePrice),
		ExtraGuestPrice: m(t.ExtraGuestPrice),
		CleaningFee:     m(t.CleaningFee),
		ServiceFee:      m(t.ServiceFee),
		SecurityDeposit: m(t.SecurityDeposit),
	}
}

func (fx resourceFixture) toDomain() *domaincatalog.Resource {
	modes := make([]domaincatalog.Mode, 0, len(fx.Modes))
	for _, m := range fx.Modes {
		modes = append(modes, domaincatalog.Mode(m))
	}
	r := &domaincatalog.Resource{
		Ref:                domaincatalog.ResourceRef{Kind: domaincatalog.Kind(fx.Kind), ID: fx.ID},
		HostID:             fx.HostID,
		Title:              fx.Title,
		Modes:              modes,
		Tariff:             fx.Tariff.toDomain(fx.Currency),
		CancellationPolicy: fx.CancellationPolicy,
		MinNights:          fx.MinNights,
		MaxNights:          fx.MaxNights,
		MinHours:           fx.MinHours,
		MaxGuests:          fx.MaxGuests,
		HostBufferHours:    fx.HostBufferHours,
		CheckInTime:        fx.CheckInTime,
		CheckOutTime:       fx.CheckOutTime,
		Active:             !fx.Inactive,
	}
	if fx.HourlyTariff != nil {
		hourly := fx.HourlyTariff.toDomain(fx.Currency)
		r.HourlyTariff = &hourly
	}
	return r
}

func (a *application) loadResourceFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("resource fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("resource fixtures file empty", "path", path)
		return nil
	}

	var fixtures []resourceFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}
	for _, fx := range fixtures {
		resource := fx.toDomain()
		if err := resource.Validate(); err != nil {
			logger.Error("fixture invalid", "resource", resource.Ref.String(), "error", err)
			continue
		}
		if err := a.catalog.Save(ctx, resource); err != nil {
			logger.Error("cannot store fixture resource", "resource", resource.Ref.String(), "error", err)
			continue
		}
		logger.Info("resource fixture imported", "resource", resource.Ref.String())
	}
	return nil
}
