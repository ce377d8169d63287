package dto

import (
	domainpricing "stayledger/internal/domain/pricing"
)

// BreakdownDTO exposes every persisted intermediate of a price computation.
type BreakdownDTO struct {
	Currency            string   `json:"currency"`
	Unit                string   `json:"unit"`
	Nights              int      `json:"nights,omitempty"`
	Hours               int      `json:"hours,omitempty"`
	DurationUnits       int      `json:"duration_units"`
	ExtraGuests         int      `json:"extra_guests"`
	ExtensionPercent    int      `json:"extension_percent,omitempty"`
	BaseAmount          MoneyDTO `json:"base_amount"`
	ExtraGuestCost      MoneyDTO `json:"extra_guest_cost"`
	CleaningFee         MoneyDTO `json:"cleaning_fee"`
	ServiceFee          MoneyDTO `json:"service_fee"`
	SecurityDeposit     MoneyDTO `json:"security_deposit"`
	HourlyExtensionCost MoneyDTO `json:"hourly_extension_cost"`
	DiscountAmount      MoneyDTO `json:"discount_amount"`
	HostSubtotal        MoneyDTO `json:"host_subtotal"`
	Subtotal            MoneyDTO `json:"subtotal"`
	PlatformFee         MoneyDTO `json:"platform_fee"`
	GST                 MoneyDTO `json:"gst"`
	ProcessingFee       MoneyDTO `json:"processing_fee"`
	TotalAmount         MoneyDTO `json:"total_amount"`
	HostEarning         MoneyDTO `json:"host_earning"`
	PlatformFeeRate     string   `json:"platform_fee_rate"`
	RateVersionID       string   `json:"rate_version_id"`
	CouponCode          string   `json:"coupon_code,omitempty"`
}

func MapBreakdown(b domainpricing.Breakdown) BreakdownDTO {
	return BreakdownDTO{
		Currency:            b.Currency,
		Unit:                string(b.Unit),
		Nights:              b.Nights,
		Hours:               b.Hours,
		DurationUnits:       b.DurationUnits,
		ExtraGuests:         b.ExtraGuests,
		ExtensionPercent:    b.ExtensionPercent,
		BaseAmount:          MapMoney(b.BaseAmount),
		ExtraGuestCost:      MapMoney(b.ExtraGuestCost),
		CleaningFee:         MapMoney(b.CleaningFee),
		ServiceFee:          MapMoney(b.ServiceFee),
		SecurityDeposit:     MapMoney(b.SecurityDeposit),
		HourlyExtensionCost: MapMoney(b.HourlyExtensionCost),
		DiscountAmount:      MapMoney(b.DiscountAmount),
		HostSubtotal:        MapMoney(b.HostSubtotal),
		Subtotal:            MapMoney(b.Subtotal),
		PlatformFee:         MapMoney(b.PlatformFee),
		GST:                 MapMoney(b.GST),
		ProcessingFee:       MapMoney(b.ProcessingFee),
		TotalAmount:         MapMoney(b.TotalAmount),
		HostEarning:         MapMoney(b.HostEarning),
		PlatformFeeRate:     b.PlatformFeeRate.Fraction(),
		RateVersionID:       b.RateVersionID,
		CouponCode:          b.CouponCode,
	}
}

type QuoteDTO struct {
	Resource ResourceDTO  `json:"resource"`
	Pricing  BreakdownDTO `json:"pricing"`
	Receipt  ReceiptDTO   `json:"guest_receipt"`
	Payout   PayoutDTO    `json:"host_payout"`
}

type ReceiptDTO struct {
	Subtotal        MoneyDTO `json:"subtotal"`
	SecurityDeposit MoneyDTO `json:"security_deposit"`
	PlatformFee     MoneyDTO `json:"platform_fee"`
	GST             MoneyDTO `json:"gst"`
	ProcessingFee   MoneyDTO `json:"processing_fee"`
	Discount        MoneyDTO `json:"discount"`
	Total           MoneyDTO `json:"total"`
}

type PayoutDTO struct {
	HostSubtotal MoneyDTO `json:"host_subtotal"`
	PlatformFee  MoneyDTO `json:"platform_fee"`
	Earning      MoneyDTO `json:"earning"`
}

func MapReceipt(r domainpricing.GuestReceipt) ReceiptDTO {
	return ReceiptDTO{
		Subtotal:        MapMoney(r.Subtotal),
		SecurityDeposit: MapMoney(r.SecurityDeposit),
		PlatformFee:     MapMoney(r.PlatformFee),
		GST:             MapMoney(r.GST),
		ProcessingFee:   MapMoney(r.ProcessingFee),
		Discount:        MapMoney(r.Discount),
		Total:           MapMoney(r.Total),
	}
}

func MapPayout(p domainpricing.HostPayout) PayoutDTO {
	return PayoutDTO{
		HostSubtotal: MapMoney(p.HostSubtotal),
		PlatformFee:  MapMoney(p.PlatformFee),
		Earning:      MapMoney(p.Earning),
	}
}

type RateVersionDTO struct {
	ID            string `json:"id"`
	Rate          string `json:"rate"`
	RateBps       int64  `json:"rate_bps"`
	EffectiveFrom string `json:"effective_from"`
	EffectiveTo   string `json:"effective_to,omitempty"`
	IsActive      bool   `json:"is_active"`
	ChangedBy     string `json:"changed_by"`
}

func MapRateVersion(v domainpricing.RateVersion) RateVersionDTO {
	out := RateVersionDTO{
		ID:            v.ID,
		Rate:          v.RateBps.Fraction(),
		RateBps:       int64(v.RateBps),
		EffectiveFrom: v.EffectiveFrom.Format("2006-01-02T15:04:05Z07:00"),
		IsActive:      v.IsActive,
		ChangedBy:     v.ChangedBy,
	}
	if v.EffectiveTo != nil {
		out.EffectiveTo = v.EffectiveTo.Format("2006-01-02T15:04:05Z07:00")
	}
	return out
}
