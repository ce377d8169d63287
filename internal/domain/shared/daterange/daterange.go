package daterange

import (
	"errors"
	"time"
)

var (
	ErrInvalidRange = errors.New("daterange: checkout must be after checkin")
)

const day = 24 * time.Hour

// DateRange represents a half-open interval [checkIn, checkOut).
type DateRange struct {
	CheckIn  time.Time
	CheckOut time.Time
}

func New(checkIn, checkOut time.Time) (DateRange, error) {
	dr := DateRange{CheckIn: checkIn.UTC(), CheckOut: checkOut.UTC()}
	if err := dr.Validate(); err != nil {
		return DateRange{}, err
	}
	return dr, nil
}

// NewDays builds a range from the calendar dates of checkIn and checkOut,
// dropping any clock component.
func NewDays(checkIn, checkOut time.Time) (DateRange, error) {
	return New(StartOfDay(checkIn), StartOfDay(checkOut))
}

func (dr DateRange) Validate() error {
	if dr.CheckOut.IsZero() || dr.CheckIn.IsZero() {
		return ErrInvalidRange
	}
	if !dr.CheckOut.After(dr.CheckIn) {
		return ErrInvalidRange
	}
	return nil
}

func (dr DateRange) Nights() int {
	return int(dr.CheckOut.Sub(dr.CheckIn) / day)
}

func (dr DateRange) Hours() int {
	return int(dr.CheckOut.Sub(dr.CheckIn) / time.Hour)
}

func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.CheckIn.Before(other.CheckOut) && other.CheckIn.Before(dr.CheckOut)
}

func (dr DateRange) Contains(other DateRange) bool {
	return !other.CheckIn.Before(dr.CheckIn) && !other.CheckOut.After(dr.CheckOut)
}

func (dr DateRange) ContainsInstant(t time.Time) bool {
	t = t.UTC()
	return !t.Before(dr.CheckIn) && t.Before(dr.CheckOut)
}

// Days returns the start of every calendar day covered by the range.
func (dr DateRange) Days() []time.Time {
	out := make([]time.Time, 0, dr.Nights())
	for d := StartOfDay(dr.CheckIn); d.Before(dr.CheckOut); d = d.Add(day) {
		out = append(out, d)
	}
	return out
}

// StartOfDay truncates t to UTC midnight.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AtClock places a "HH:MM" clock time on the calendar date of t. An empty or
// malformed clock keeps midnight.
func AtClock(t time.Time, clock string) time.Time {
	base := StartOfDay(t)
	if clock == "" {
		return base
	}
	parsed, err := time.Parse("15:04", clock)
	if err != nil {
		return base
	}
	return base.Add(time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute)
}
