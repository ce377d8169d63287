package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	domainavailability "stayledger/internal/domain/availability"
	domaincatalog "stayledger/internal/domain/catalog"
)

var ErrLedgerContention = errors.New("mongo: calendar changed concurrently, retries exhausted")

// Ledger stores one calendar document per resource and applies every change
// with a compare-and-swap on its version. A ctx carrying a session joins the
// surrounding transaction.
type Ledger struct {
	Clock   func() time.Time
	Sink    domainavailability.EventSink
	Retries int

	col *mongo.Collection
}

func NewLedger(db *mongo.Database, retries int) *Ledger {
	if retries <= 0 {
		retries = 5
	}
	return &Ledger{col: db.Collection(colCalendars), Retries: retries}
}

func (l *Ledger) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

func (l *Ledger) load(ctx context.Context, ref domaincatalog.ResourceRef) (*domainavailability.Calendar, error) {
	var doc calendarDocument
	if err := l.col.FindOne(ctx, bson.M{"_id": ref.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domainavailability.NewCalendar(ref), nil
		}
		return nil, err
	}
	return doc.toCalendar(ref), nil
}

// store reports false when another writer won the race.
func (l *Ledger) store(ctx context.Context, cal *domainavailability.Calendar, expected int64) (bool, error) {
	doc := newCalendarDocument(cal)
	doc.Version = expected + 1
	if expected == 0 {
		if _, err := l.col.InsertOne(ctx, doc); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
	res, err := l.col.UpdateOne(ctx,
		bson.M{"_id": doc.ID, "version": expected},
		bson.M{"$set": bson.M{"cells": doc.Cells, "version": doc.Version}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// write reloads and reapplies fn until the swap lands. A calendar that fn
// leaves untouched is not written back.
func (l *Ledger) write(ctx context.Context, ref domaincatalog.ResourceRef, fn func(cal *domainavailability.Calendar) (bool, error)) error {
	for attempt := 0; attempt < l.Retries; attempt++ {
		cal, err := l.load(ctx, ref)
		if err != nil {
			return err
		}
		expected := cal.Version
		changed, ferr := fn(cal)
		if !changed {
			l.emit(ctx, cal)
			return ferr
		}
		cal.Compact()
		ok, err := l.store(ctx, cal, expected)
		if err != nil {
			return err
		}
		if ok {
			l.emit(ctx, cal)
			return ferr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return ErrLedgerContention
}

func (l *Ledger) emit(ctx context.Context, cal *domainavailability.Calendar) {
	evs := cal.Drain()
	if l.Sink != nil && len(evs) > 0 {
		l.Sink(ctx, evs)
	}
}

func (l *Ledger) Hold(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span, bookingID string) error {
	return l.write(ctx, ref, func(cal *domainavailability.Calendar) (bool, error) {
		if err := cal.Hold(span, bookingID, domainavailability.StatusHeld, domainavailability.ReasonBooking, l.now()); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (l *Ledger) Promote(ctx context.Context, ref domaincatalog.ResourceRef, bookingID string) error {
	return l.write(ctx, ref, func(cal *domainavailability.Calendar) (bool, error) {
		return cal.Promote(bookingID, l.now()) > 0, nil
	})
}

func (l *Ledger) Release(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span, bookingID string) error {
	return l.write(ctx, ref, func(cal *domainavailability.Calendar) (bool, error) {
		return cal.Release(span, bookingID, l.now()) > 0, nil
	})
}

func (l *Ledger) IsAvailable(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span) (bool, error) {
	if err := span.Validate(); err != nil {
		return false, err
	}
	cal, err := l.load(ctx, ref)
	if err != nil {
		return false, err
	}
	return cal.CanHold(span), nil
}

func (l *Ledger) ForceRelease(ctx context.Context, ref domaincatalog.ResourceRef, span domainavailability.Span, owners []string) ([]string, error) {
	var released []string
	err := l.write(ctx, ref, func(cal *domainavailability.Calendar) (bool, error) {
		released = cal.ForceRelease(span, owners, l.now())
		return len(released) > 0, nil
	})
	return released, err
}

func (l *Ledger) Cells(ctx context.Context, ref domaincatalog.ResourceRef, window domainavailability.Interval) ([]domainavailability.Cell, error) {
	cal, err := l.load(ctx, ref)
	if err != nil {
		return nil, err
	}
	return cal.CellsIn(window), nil
}

var _ domainavailability.Ledger = (*Ledger)(nil)
