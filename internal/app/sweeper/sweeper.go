package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/dto"
	bookinghandlers "stayledger/internal/app/handlers/booking"
	domainbooking "stayledger/internal/domain/booking"
)

var ErrSweeperNotConfigured = errors.New("sweeper: missing dependencies")

// Source lists the bookings the sweeper acts on.
type Source interface {
	ListStale(ctx context.Context, status domainbooking.Status, cutoff time.Time, limit int) ([]*domainbooking.Booking, error)
	ListEndedBefore(ctx context.Context, status domainbooking.Status, cutoff time.Time, limit int) ([]*domainbooking.Booking, error)
}

// Metrics counts sweeper transitions by action and outcome.
type Metrics interface {
	SweepTransition(action string, ok bool)
}

// Sweeper drives time-based transitions through the command bus so that they
// share validation, authorization and transactions with user commands.
type Sweeper struct {
	Bus         commands.Bus
	Bookings    Source
	Interval    time.Duration
	Grace       time.Duration
	SLAInterval time.Duration
	ApprovalSLA time.Duration
	BatchSize   int
	Clock       func() time.Time
	Logger      *slog.Logger
	Metrics     Metrics
}

// Report counts the transitions issued by one pass.
type Report struct {
	Cancelled int
	Expired   int
	Completed int
	Failed    int
}

func (s *Sweeper) Run(ctx context.Context) error {
	if s.Bus == nil || s.Bookings == nil {
		return ErrSweeperNotConfigured
	}
	fast := time.NewTicker(s.interval())
	defer fast.Stop()
	slow := time.NewTicker(s.slaInterval())
	defer slow.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-fast.C:
			s.report("abandoned attempts", s.SweepAbandoned(ctx))
		case <-slow.C:
			s.report("approval and completion", s.SweepLifecycle(ctx))
		}
	}
}

// SweepAbandoned cancels blocked and processing bookings older than the
// grace period. Pending bookings are never touched here.
func (s *Sweeper) SweepAbandoned(ctx context.Context) Report {
	var rep Report
	cutoff := s.now().Add(-s.grace())
	for _, status := range []domainbooking.Status{domainbooking.StatusBlocked, domainbooking.StatusProcessing} {
		items, err := s.Bookings.ListStale(ctx, status, cutoff, s.batchSize())
		if err != nil {
			s.logger().Error("sweeper list failed", "status", status, "err", err)
			rep.Failed++
			continue
		}
		for _, b := range items {
			_, err := commands.Dispatch[bookinghandlers.CancelBookingCommand, *dto.BookingDTO](ctx, s.Bus, bookinghandlers.CancelBookingCommand{
				Principal: bookinghandlers.Principal{Actor: domainbooking.SystemActor()},
				BookingID: string(b.ID),
				Reason:    "payment attempt abandoned",
			})
			if s.outcome(b, "cancel", err) {
				rep.Cancelled++
			} else {
				rep.Failed++
			}
		}
	}
	return rep
}

// SweepLifecycle expires pending bookings past the approval window and
// completes confirmed stays whose end has passed.
func (s *Sweeper) SweepLifecycle(ctx context.Context) Report {
	var rep Report
	now := s.now()
	system := bookinghandlers.Principal{Actor: domainbooking.SystemActor()}

	pending, err := s.Bookings.ListStale(ctx, domainbooking.StatusPending, now.Add(-s.approvalSLA()), s.batchSize())
	if err != nil {
		s.logger().Error("sweeper list failed", "status", domainbooking.StatusPending, "err", err)
		rep.Failed++
	}
	for _, b := range pending {
		_, err := commands.Dispatch[bookinghandlers.ExpireBookingCommand, *dto.BookingDTO](ctx, s.Bus, bookinghandlers.ExpireBookingCommand{
			Principal: system,
			BookingID: string(b.ID),
		})
		if s.outcome(b, "expire", err) {
			rep.Expired++
		} else {
			rep.Failed++
		}
	}

	ended, err := s.Bookings.ListEndedBefore(ctx, domainbooking.StatusConfirmed, now, s.batchSize())
	if err != nil {
		s.logger().Error("sweeper list failed", "status", domainbooking.StatusConfirmed, "err", err)
		rep.Failed++
	}
	for _, b := range ended {
		_, err := commands.Dispatch[bookinghandlers.CompleteBookingCommand, *dto.BookingDTO](ctx, s.Bus, bookinghandlers.CompleteBookingCommand{
			Principal: system,
			BookingID: string(b.ID),
		})
		if s.outcome(b, "complete", err) {
			rep.Completed++
		} else {
			rep.Failed++
		}
	}
	return rep
}

func (s *Sweeper) outcome(b *domainbooking.Booking, action string, err error) bool {
	if s.Metrics != nil {
		s.Metrics.SweepTransition(action, err == nil)
	}
	if err == nil {
		return true
	}
	// a concurrent user transition wins; the next pass sees the new status
	s.logger().Warn("sweeper transition skipped", "action", action, "booking_id", b.ID, "status", b.Status, "err", err)
	return false
}

func (s *Sweeper) report(pass string, rep Report) {
	if rep == (Report{}) {
		return
	}
	s.logger().Info("sweeper pass", "pass", pass, "cancelled", rep.Cancelled, "expired", rep.Expired, "completed", rep.Completed, "failed", rep.Failed)
}

func (s *Sweeper) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

func (s *Sweeper) interval() time.Duration {
	if s.Interval <= 0 {
		return 2 * time.Minute
	}
	return s.Interval
}

func (s *Sweeper) slaInterval() time.Duration {
	if s.SLAInterval <= 0 {
		return 15 * time.Minute
	}
	return s.SLAInterval
}

func (s *Sweeper) grace() time.Duration {
	if s.Grace <= 0 {
		return 5 * time.Minute
	}
	return s.Grace
}

func (s *Sweeper) approvalSLA() time.Duration {
	if s.ApprovalSLA <= 0 {
		return 24 * time.Hour
	}
	return s.ApprovalSLA
}

func (s *Sweeper) batchSize() int {
	if s.BatchSize <= 0 {
		return 100
	}
	return s.BatchSize
}

func (s *Sweeper) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
