package dto

import (
	"time"

	domainrefunds "stayledger/internal/domain/refunds"
)

type RefundDTO struct {
	ID         string    `json:"id"`
	BookingID  string    `json:"booking_id"`
	Reason     string    `json:"reason"`
	Type       string    `json:"type"`
	Percentage int       `json:"percentage"`
	Amount     MoneyDTO  `json:"amount"`
	Status     string    `json:"status"`
	GatewayRef string    `json:"gateway_ref,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func MapRefund(r *domainrefunds.Refund) RefundDTO {
	return RefundDTO{
		ID:         r.ID,
		BookingID:  r.BookingID,
		Reason:     string(r.Reason),
		Type:       string(r.Type),
		Percentage: r.Percentage,
		Amount:     MapMoney(r.Amount),
		Status:     string(r.Status),
		GatewayRef: r.GatewayRef,
		CreatedAt:  r.CreatedAt,
	}
}

type CancellationPreviewDTO struct {
	BookingID  string   `json:"booking_id"`
	Allowed    bool     `json:"allowed"`
	Blocker    string   `json:"blocker,omitempty"`
	Policy     string   `json:"policy"`
	Reason     string   `json:"reason"`
	RefundType string   `json:"refund_type"`
	Percentage int      `json:"percentage"`
	Amount     MoneyDTO `json:"amount"`
	HoursLeft  float64  `json:"hours_until_start"`
}

type BookingWithRefundsDTO struct {
	Booking BookingDTO  `json:"booking"`
	Refunds []RefundDTO `json:"refunds"`
}
