package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"stayledger/internal/app/notify"
	"stayledger/internal/app/outbox"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/uow"
	domainavailability "stayledger/internal/domain/availability"
	domainbooking "stayledger/internal/domain/booking"
	"stayledger/internal/domain/shared/events"
)

const defaultSettleTimeout = 10 * time.Second

// Metrics receives booking lifecycle observations.
type Metrics interface {
	BookingTransition(status string)
	HoldConflict()
	SettlementFailed(reason string)
	RefundIssued(reason string, amountMinor int64)
	Inconsistency(op string)
}

type noopMetrics struct{}

func (noopMetrics) BookingTransition(string)   {}
func (noopMetrics) HoldConflict()              {}
func (noopMetrics) SettlementFailed(string)    {}
func (noopMetrics) RefundIssued(string, int64) {}
func (noopMetrics) Inconsistency(string)       {}

// Deps are the collaborators shared by every booking handler.
type Deps struct {
	UoWFactory    uow.UoWFactory
	Ledger        domainavailability.Ledger
	Payments      policies.PaymentGateway
	Notifications *notify.Dispatcher
	Receipts      policies.ReceiptArchive
	Outbox        outbox.Outbox
	Encoder       outbox.EventEncoder
	Metrics       Metrics
	Logger        *slog.Logger
	SettleTimeout time.Duration
	Clock         func() time.Time
	NewID         func() string
}

func (d *Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

func (d *Deps) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

func (d *Deps) metrics() Metrics {
	if d.Metrics != nil {
		return d.Metrics
	}
	return noopMetrics{}
}

func (d *Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

func (d *Deps) settleTimeout() time.Duration {
	if d.SettleTimeout > 0 {
		return d.SettleTimeout
	}
	return defaultSettleTimeout
}

func (d *Deps) encoder() outbox.EventEncoder {
	if d.Encoder != nil {
		return d.Encoder
	}
	return outbox.JSONEventEncoder{}
}

// publish moves the aggregate's pending events into the outbox.
func (d *Deps) publish(ctx context.Context, rec interface{ Drain() []events.DomainEvent }) error {
	return outbox.RecordDomainEvents(ctx, d.Outbox, d.encoder(), rec.Drain())
}

func (d *Deps) notify(ctx context.Context, to, template string, data any) {
	uow.AfterCommit(ctx, func(ctx context.Context) {
		d.Notifications.Dispatch(ctx, to, template, data)
	})
}

// persist saves b with its version check and queues its pending events.
func (d *Deps) persist(ctx context.Context, unit uow.UnitOfWork, b *domainbooking.Booking) error {
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return err
	}
	d.metrics().BookingTransition(string(b.Status))
	return d.publish(ctx, &b.EventRecorder)
}
