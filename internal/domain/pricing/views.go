package pricing

import (
	"errors"
	"fmt"

	"stayledger/internal/domain/shared/money"
)

var ErrUnreconciled = errors.New("pricing: breakdown does not reconcile")

// GuestReceipt is what the guest is charged.
type GuestReceipt struct {
	Subtotal        money.Money
	SecurityDeposit money.Money
	PlatformFee     money.Money
	GST             money.Money
	ProcessingFee   money.Money
	Discount        money.Money
	Total           money.Money
}

// HostPayout is what the host is owed; the deposit is never host revenue.
type HostPayout struct {
	HostSubtotal money.Money
	PlatformFee  money.Money
	Earning      money.Money
}

// PlatformRevenue is the marketplace's share of one booking.
type PlatformRevenue struct {
	Commission    money.Money
	ProcessingFee money.Money
	GSTCollected  money.Money
	RateBps       money.BasisPoints
	RateVersionID string
}

func (b Breakdown) GuestReceipt() GuestReceipt {
	return GuestReceipt{
		Subtotal:        b.Subtotal,
		SecurityDeposit: b.SecurityDeposit,
		PlatformFee:     b.PlatformFee,
		GST:             b.GST,
		ProcessingFee:   b.ProcessingFee,
		Discount:        b.DiscountAmount,
		Total:           b.TotalAmount,
	}
}

func (b Breakdown) HostPayout() HostPayout {
	return HostPayout{
		HostSubtotal: b.HostSubtotal,
		PlatformFee:  b.PlatformFee,
		Earning:      b.HostEarning,
	}
}

func (b Breakdown) PlatformRevenue() PlatformRevenue {
	return PlatformRevenue{
		Commission:    b.PlatformFee,
		ProcessingFee: b.ProcessingFee,
		GSTCollected:  b.GST,
		RateBps:       b.PlatformFeeRate,
		RateVersionID: b.RateVersionID,
	}
}

// Reconcile checks that the three views agree with each other to the minor unit.
func (b Breakdown) Reconcile() error {
	receipt := b.GuestReceipt()
	payout := b.HostPayout()
	revenue := b.PlatformRevenue()

	if got := receipt.Subtotal.Amount + receipt.PlatformFee.Amount + receipt.GST.Amount + receipt.ProcessingFee.Amount; got != receipt.Total.Amount {
		return fmt.Errorf("%w: guest total %d != components %d", ErrUnreconciled, receipt.Total.Amount, got)
	}
	if got := payout.Earning.Amount + revenue.Commission.Amount; got != payout.HostSubtotal.Amount {
		return fmt.Errorf("%w: host earning + commission %d != host subtotal %d", ErrUnreconciled, got, payout.HostSubtotal.Amount)
	}
	if got := b.HostSubtotal.Amount + b.SecurityDeposit.Amount; got != b.Subtotal.Amount {
		return fmt.Errorf("%w: host subtotal + deposit %d != subtotal %d", ErrUnreconciled, got, b.Subtotal.Amount)
	}
	lines := b.BaseAmount.Amount + b.ExtraGuestCost.Amount + b.CleaningFee.Amount + b.ServiceFee.Amount + b.HourlyExtensionCost.Amount - b.DiscountAmount.Amount
	if lines != b.HostSubtotal.Amount {
		return fmt.Errorf("%w: line items %d != host subtotal %d", ErrUnreconciled, lines, b.HostSubtotal.Amount)
	}
	return nil
}
