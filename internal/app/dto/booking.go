package dto

import (
	"time"

	domainbooking "stayledger/internal/domain/booking"
	"stayledger/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Display  string `json:"display"`
}

type GuestsDTO struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

type ResourceDTO struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

type BookingDTO struct {
	ID                   string       `json:"id"`
	IdempotencyKey       string       `json:"idempotency_key"`
	GuestID              string       `json:"guest_id"`
	HostID               string       `json:"host_id"`
	ListingID            string       `json:"listing_id,omitempty"`
	ServiceID            string       `json:"service_id,omitempty"`
	BookingType          string       `json:"booking_type"`
	CheckIn              *time.Time   `json:"check_in,omitempty"`
	CheckOut             *time.Time   `json:"check_out,omitempty"`
	SlotStart            *time.Time   `json:"slot_start,omitempty"`
	SlotEnd              *time.Time   `json:"slot_end,omitempty"`
	Guests               GuestsDTO    `json:"guests"`
	Status               string       `json:"status"`
	PaymentStatus        string       `json:"payment_status"`
	PaymentTransactionID string       `json:"payment_transaction_id,omitempty"`
	CancellationPolicy   string       `json:"cancellation_policy"`
	RefundAmount         MoneyDTO     `json:"refund_amount"`
	RefundStatus         string       `json:"refund_status"`
	CancelledBy          string       `json:"cancelled_by,omitempty"`
	CancelledAt          *time.Time   `json:"cancelled_at,omitempty"`
	CancelReason         string       `json:"cancel_reason,omitempty"`
	CheckedIn            bool         `json:"checked_in"`
	CheckedInAt          *time.Time   `json:"checked_in_at,omitempty"`
	CheckedInBy          string       `json:"checked_in_by,omitempty"`
	AcceptedAt           *time.Time   `json:"accepted_at,omitempty"`
	CompletedAt          *time.Time   `json:"completed_at,omitempty"`
	HostMessage          string       `json:"host_message,omitempty"`
	CouponCode           string       `json:"coupon_code,omitempty"`
	Pricing              BreakdownDTO `json:"pricing"`
	CreatedAt            time.Time    `json:"created_at"`
	UpdatedAt            time.Time    `json:"updated_at"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
		Display:  value.Decimal(),
	}
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func MapBooking(b *domainbooking.Booking) BookingDTO {
	out := BookingDTO{
		ID:                   string(b.ID),
		IdempotencyKey:       b.IdempotencyKey,
		GuestID:              b.GuestID,
		HostID:               b.HostID,
		BookingType:          string(b.Type),
		Guests:               GuestsDTO{Adults: b.Guests.Adults, Children: b.Guests.Children, Infants: b.Guests.Infants},
		Status:               string(b.Status),
		PaymentStatus:        string(b.PaymentStatus),
		PaymentTransactionID: b.PaymentTransactionID,
		CancellationPolicy:   string(b.CancellationPolicy),
		RefundAmount:         MapMoney(b.RefundAmount),
		RefundStatus:         string(b.RefundStatus),
		CancelledBy:          b.CancelledBy,
		CancelledAt:          b.CancelledAt,
		CancelReason:         b.CancelReason,
		CheckedIn:            b.CheckedIn,
		CheckedInAt:          b.CheckedInAt,
		CheckedInBy:          b.CheckedInBy,
		AcceptedAt:           b.AcceptedAt,
		CompletedAt:          b.CompletedAt,
		HostMessage:          b.HostMessage,
		CouponCode:           b.CouponCode,
		Pricing:              MapBreakdown(b.Pricing),
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
	}
	if b.Resource.Kind == "service" {
		out.ServiceID = b.Resource.ID
	} else {
		out.ListingID = b.Resource.ID
	}
	if b.Stay != nil {
		out.CheckIn = timePtr(b.Stay.CheckIn)
		out.CheckOut = timePtr(b.Stay.CheckOut)
	}
	if b.Slot != nil {
		out.SlotStart = timePtr(b.Slot.CheckIn)
		out.SlotEnd = timePtr(b.Slot.CheckOut)
	}
	return out
}
