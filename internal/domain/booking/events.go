package booking

import (
	"time"

	"stayledger/internal/domain/refunds"
	"stayledger/internal/domain/shared/money"
)

type Requested struct {
	BookingID BookingID
	Resource  string
	GuestID   string
	HostID    string
	Start     time.Time
	End       time.Time
	Total     money.Money
	At        time.Time
}

func (e Requested) EventName() string     { return "booking.requested" }
func (e Requested) AggregateID() string   { return string(e.BookingID) }
func (e Requested) OccurredAt() time.Time { return e.At }

type Accepted struct {
	BookingID BookingID
	HostID    string
	GuestID   string
	Message   string
	At        time.Time
}

func (e Accepted) EventName() string     { return "booking.accepted" }
func (e Accepted) AggregateID() string   { return string(e.BookingID) }
func (e Accepted) OccurredAt() time.Time { return e.At }

type Rejected struct {
	BookingID BookingID
	HostID    string
	GuestID   string
	Reason    string
	At        time.Time
}

func (e Rejected) EventName() string     { return "booking.rejected" }
func (e Rejected) AggregateID() string   { return string(e.BookingID) }
func (e Rejected) OccurredAt() time.Time { return e.At }

type Cancelled struct {
	BookingID  BookingID
	ActorID    string
	ActorRole  Role
	Reason     string
	RefundType refunds.Type
	Refund     money.Money
	At         time.Time
}

func (e Cancelled) EventName() string     { return "booking.cancelled" }
func (e Cancelled) AggregateID() string   { return string(e.BookingID) }
func (e Cancelled) OccurredAt() time.Time { return e.At }

type Expired struct {
	BookingID BookingID
	At        time.Time
}

func (e Expired) EventName() string     { return "booking.expired" }
func (e Expired) AggregateID() string   { return string(e.BookingID) }
func (e Expired) OccurredAt() time.Time { return e.At }

type CheckedIn struct {
	BookingID BookingID
	By        string
	At        time.Time
}

func (e CheckedIn) EventName() string     { return "booking.checked_in" }
func (e CheckedIn) AggregateID() string   { return string(e.BookingID) }
func (e CheckedIn) OccurredAt() time.Time { return e.At }

type Completed struct {
	BookingID BookingID
	At        time.Time
}

func (e Completed) EventName() string     { return "booking.completed" }
func (e Completed) AggregateID() string   { return string(e.BookingID) }
func (e Completed) OccurredAt() time.Time { return e.At }

type RefundRecorded struct {
	BookingID BookingID
	RefundID  string
	Reason    refunds.Reason
	Amount    money.Money
	At        time.Time
}

func (e RefundRecorded) EventName() string     { return "booking.refund_recorded" }
func (e RefundRecorded) AggregateID() string   { return string(e.BookingID) }
func (e RefundRecorded) OccurredAt() time.Time { return e.At }
