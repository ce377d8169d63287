package policies

import (
	"context"

	"stayledger/internal/domain/pricing"
)

// ReceiptArchive stores the immutable pricing snapshot of a booking.
type ReceiptArchive interface {
	Put(ctx context.Context, bookingID string, breakdown pricing.Breakdown) error
}
