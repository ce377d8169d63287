package availability

import "time"

type Held struct {
	Resource  string
	Span      Span
	BookingID string
	Status    Status
	At        time.Time
}

func (e Held) EventName() string     { return "calendar.held" }
func (e Held) AggregateID() string   { return e.Resource }
func (e Held) OccurredAt() time.Time { return e.At }

type Released struct {
	Resource  string
	Span      Span
	BookingID string
	Cells     int
	At        time.Time
}

func (e Released) EventName() string     { return "calendar.released" }
func (e Released) AggregateID() string   { return e.Resource }
func (e Released) OccurredAt() time.Time { return e.At }

type Promoted struct {
	Resource  string
	BookingID string
	Cells     int
	At        time.Time
}

func (e Promoted) EventName() string     { return "calendar.promoted" }
func (e Promoted) AggregateID() string   { return e.Resource }
func (e Promoted) OccurredAt() time.Time { return e.At }

type ForceReleased struct {
	Resource   string
	Span       Span
	BookingIDs []string
	At         time.Time
}

func (e ForceReleased) EventName() string     { return "calendar.force_released" }
func (e ForceReleased) AggregateID() string   { return e.Resource }
func (e ForceReleased) OccurredAt() time.Time { return e.At }

type ConflictPrevented struct {
	Resource  string
	Span      Span
	BookingID string
	At        time.Time
}

func (e ConflictPrevented) EventName() string     { return "calendar.overbooking_prevented" }
func (e ConflictPrevented) AggregateID() string   { return e.Resource }
func (e ConflictPrevented) OccurredAt() time.Time { return e.At }
