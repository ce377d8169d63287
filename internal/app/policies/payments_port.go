package policies

import (
	"context"
	"errors"

	"stayledger/internal/domain/shared/money"
)

var (
	ErrPaymentDeclined = errors.New("payments: charge declined")
	ErrPaymentTimeout  = errors.New("payments: gateway timed out")
)

type SettlementStatus string

const (
	SettlementSucceeded SettlementStatus = "succeeded"
	SettlementDeclined  SettlementStatus = "declined"
)

type SettleRequest struct {
	BookingID      string
	IdempotencyKey string
	Amount         money.Money
	Method         string
}

type Settlement struct {
	TransactionID string
	Status        SettlementStatus
}

type RefundRequest struct {
	BookingID     string
	RefundID      string
	TransactionID string
	Amount        money.Money
}

type RefundResult struct {
	Reference string
}

// PaymentGateway settles charges synchronously. Settle must honour ctx
// deadlines; a declined charge is reported as ErrPaymentDeclined.
type PaymentGateway interface {
	Settle(ctx context.Context, req SettleRequest) (Settlement, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
}
