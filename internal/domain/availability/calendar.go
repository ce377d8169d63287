package availability

import (
	"context"
	"errors"
	"sort"
	"time"

	"stayledger/internal/domain/catalog"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/events"
)

var (
	ErrConflict        = errors.New("availability: span overlaps an unavailable cell")
	ErrInvalidSpan     = errors.New("availability: span end must be after start")
	ErrBookingRequired = errors.New("availability: booking id is required")
)

type Status string

const (
	StatusAvailable Status = "available"
	StatusHeld      Status = "held"
	StatusBooked    Status = "booked"
)

const (
	ReasonBooking    = "booking"
	ReasonAdminBlock = "admin_block"
)

type SpanKind string

const (
	SpanDaily SpanKind = "daily"
	SpanTimed SpanKind = "timed"
)

const day = 24 * time.Hour

// Interval is a half-open [Start, End) window.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Span is what a booking reserves. Daily spans cover whole nights; timed
// spans cover an exact window plus the host buffer after it.
type Span struct {
	Kind   SpanKind
	Start  time.Time
	End    time.Time
	Buffer time.Duration
}

// DailySpan covers every night from checkIn up to, not including, checkOut.
func DailySpan(checkIn, checkOut time.Time) (Span, error) {
	r, err := daterange.NewDays(checkIn, checkOut)
	if err != nil {
		return Span{}, ErrInvalidSpan
	}
	return Span{Kind: SpanDaily, Start: r.CheckIn, End: r.CheckOut}, nil
}

func TimedSpan(start, end time.Time, buffer time.Duration) (Span, error) {
	if !end.After(start) || buffer < 0 {
		return Span{}, ErrInvalidSpan
	}
	return Span{Kind: SpanTimed, Start: start.UTC(), End: end.UTC(), Buffer: buffer}, nil
}

func (s Span) Validate() error {
	if !s.End.After(s.Start) || s.Buffer < 0 {
		return ErrInvalidSpan
	}
	if s.Kind != SpanDaily && s.Kind != SpanTimed {
		return ErrInvalidSpan
	}
	return nil
}

// Intervals returns the cells the span occupies.
func (s Span) Intervals() []Interval {
	if s.Kind == SpanDaily {
		out := make([]Interval, 0, int(s.End.Sub(s.Start)/day))
		for d := daterange.StartOfDay(s.Start); d.Before(s.End); d = d.Add(day) {
			out = append(out, Interval{Start: d, End: d.Add(day)})
		}
		return out
	}
	return []Interval{{Start: s.Start, End: s.End.Add(s.Buffer)}}
}

// Bounds is the overall window covered by the span, buffer included.
func (s Span) Bounds() Interval {
	return Interval{Start: s.Start, End: s.End.Add(s.Buffer)}
}

type Cell struct {
	Start     time.Time
	End       time.Time
	Status    Status
	BookingID string
	Reason    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c Cell) Interval() Interval {
	return Interval{Start: c.Start, End: c.End}
}

// Calendar holds every non-released cell of one resource.
type Calendar struct {
	Resource catalog.ResourceRef
	Cells    []Cell
	Version  int64
	events.EventRecorder
}

func NewCalendar(ref catalog.ResourceRef) *Calendar {
	return &Calendar{Resource: ref}
}

func (c *Calendar) CanHold(span Span) bool {
	for _, want := range span.Intervals() {
		for _, cell := range c.Cells {
			if cell.Status != StatusAvailable && cell.Interval().Overlaps(want) {
				return false
			}
		}
	}
	return true
}

// Hold marks every cell of span as status for bookingID or changes nothing.
func (c *Calendar) Hold(span Span, bookingID string, status Status, reason string, now time.Time) error {
	if err := span.Validate(); err != nil {
		return err
	}
	if bookingID == "" {
		return ErrBookingRequired
	}
	if status == "" || status == StatusAvailable {
		status = StatusHeld
	}
	if reason == "" {
		reason = ReasonBooking
	}
	if !c.CanHold(span) {
		c.Record(ConflictPrevented{Resource: c.Resource.String(), Span: span, BookingID: bookingID, At: now.UTC()})
		return ErrConflict
	}
	intervals := span.Intervals()
	c.pruneAvailable(intervals)
	at := now.UTC()
	for _, iv := range intervals {
		c.Cells = append(c.Cells, Cell{
			Start:     iv.Start,
			End:       iv.End,
			Status:    status,
			BookingID: bookingID,
			Reason:    reason,
			CreatedAt: at,
			UpdatedAt: at,
		})
	}
	c.sort()
	c.Record(Held{Resource: c.Resource.String(), Span: span, BookingID: bookingID, Status: status, At: at})
	return nil
}

// Release returns the cells of span owned by bookingID to available. Cells
// owned by anyone else are left alone; releasing twice is a no-op.
func (c *Calendar) Release(span Span, bookingID string, now time.Time) int {
	bounds := span.Bounds()
	released := 0
	at := now.UTC()
	for i := range c.Cells {
		cell := &c.Cells[i]
		if cell.Status == StatusAvailable || cell.BookingID != bookingID {
			continue
		}
		if !cell.Interval().Overlaps(bounds) {
			continue
		}
		cell.Status = StatusAvailable
		cell.BookingID = ""
		cell.UpdatedAt = at
		released++
	}
	if released > 0 {
		c.Record(Released{Resource: c.Resource.String(), Span: span, BookingID: bookingID, Cells: released, At: at})
	}
	return released
}

// Promote turns the held cells of bookingID into booked ones.
func (c *Calendar) Promote(bookingID string, now time.Time) int {
	promoted := 0
	at := now.UTC()
	for i := range c.Cells {
		cell := &c.Cells[i]
		if cell.BookingID == bookingID && cell.Status == StatusHeld {
			cell.Status = StatusBooked
			cell.UpdatedAt = at
			promoted++
		}
	}
	if promoted > 0 {
		c.Record(Promoted{Resource: c.Resource.String(), BookingID: bookingID, Cells: promoted, At: at})
	}
	return promoted
}

// ForceRelease frees the cells overlapping span that belong to one of
// owners, whatever their status, and returns the owners that lost a cell.
// Cells of any other booking are left alone.
func (c *Calendar) ForceRelease(span Span, owners []string, now time.Time) []string {
	bounds := span.Bounds()
	at := now.UTC()
	allowed := make(map[string]bool, len(owners))
	for _, id := range owners {
		allowed[id] = true
	}
	seen := map[string]struct{}{}
	var released []string
	for i := range c.Cells {
		cell := &c.Cells[i]
		if cell.Status == StatusAvailable || !allowed[cell.BookingID] || !cell.Interval().Overlaps(bounds) {
			continue
		}
		if _, ok := seen[cell.BookingID]; !ok {
			seen[cell.BookingID] = struct{}{}
			released = append(released, cell.BookingID)
		}
		cell.Status = StatusAvailable
		cell.BookingID = ""
		cell.UpdatedAt = at
	}
	if len(released) > 0 {
		c.Record(ForceReleased{Resource: c.Resource.String(), Span: span, BookingIDs: released, At: at})
	}
	return released
}

// CellsIn returns the cells overlapping window, in start order.
func (c *Calendar) CellsIn(window Interval) []Cell {
	var out []Cell
	for _, cell := range c.Cells {
		if cell.Interval().Overlaps(window) {
			out = append(out, cell)
		}
	}
	return out
}

// Compact drops released cells.
func (c *Calendar) Compact() {
	kept := c.Cells[:0]
	for _, cell := range c.Cells {
		if cell.Status != StatusAvailable {
			kept = append(kept, cell)
		}
	}
	c.Cells = kept
}

func (c *Calendar) pruneAvailable(intervals []Interval) {
	kept := c.Cells[:0]
	for _, cell := range c.Cells {
		drop := false
		if cell.Status == StatusAvailable {
			for _, iv := range intervals {
				if cell.Interval().Overlaps(iv) {
					drop = true
					break
				}
			}
		}
		if !drop {
			kept = append(kept, cell)
		}
	}
	c.Cells = kept
}

func (c *Calendar) sort() {
	sort.SliceStable(c.Cells, func(i, j int) bool {
		return c.Cells[i].Start.Before(c.Cells[j].Start)
	})
}

// Ledger is the single source of truth for conflict prevention. Every
// implementation makes Hold atomic across all cells of the span.
type Ledger interface {
	Hold(ctx context.Context, ref catalog.ResourceRef, span Span, bookingID string) error
	Promote(ctx context.Context, ref catalog.ResourceRef, bookingID string) error
	Release(ctx context.Context, ref catalog.ResourceRef, span Span, bookingID string) error
	IsAvailable(ctx context.Context, ref catalog.ResourceRef, span Span) (bool, error)
	ForceRelease(ctx context.Context, ref catalog.ResourceRef, span Span, owners []string) ([]string, error)
	Cells(ctx context.Context, ref catalog.ResourceRef, window Interval) ([]Cell, error)
}

// EventSink receives calendar events once a ledger write is durable.
type EventSink func(ctx context.Context, evs []events.DomainEvent)
