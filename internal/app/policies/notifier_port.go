package policies

import "context"

const (
	TemplateBookingRequested = "booking_requested"
	TemplateBookingAccepted  = "booking_accepted"
	TemplateBookingRejected  = "booking_rejected"
	TemplateBookingCancelled = "booking_cancelled"
	TemplateBookingExpired   = "booking_expired"
	TemplateBookingCompleted = "booking_completed"
	TemplateRefundIssued     = "refund_issued"
)

type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}
