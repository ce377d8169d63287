package mongo

import (
	"time"

	domainavailability "stayledger/internal/domain/availability"
	domainbooking "stayledger/internal/domain/booking"
	domaincatalog "stayledger/internal/domain/catalog"
	domaincoupons "stayledger/internal/domain/coupons"
	domainpricing "stayledger/internal/domain/pricing"
	domainrefunds "stayledger/internal/domain/refunds"
	"stayledger/internal/domain/shared/daterange"
	"stayledger/internal/domain/shared/money"
)

type moneyDocument struct {
	Amount   int64  `bson:"amount"`
	Currency string `bson:"currency"`
}

func newMoney(m money.Money) moneyDocument {
	return moneyDocument{Amount: m.Amount, Currency: m.Currency}
}

func (d moneyDocument) toMoney() money.Money {
	return money.Money{Amount: d.Amount, Currency: d.Currency}
}

type rangeDocument struct {
	CheckIn  time.Time `bson:"checkin"`
	CheckOut time.Time `bson:"checkout"`
}

type spanDocument struct {
	Kind     string    `bson:"kind"`
	Start    time.Time `bson:"start"`
	End      time.Time `bson:"end"`
	BufferMS int64     `bson:"buffer_ms"`
}

func newSpan(s domainavailability.Span) spanDocument {
	return spanDocument{Kind: string(s.Kind), Start: s.Start, End: s.End, BufferMS: s.Buffer.Milliseconds()}
}

func (d spanDocument) toSpan() domainavailability.Span {
	return domainavailability.Span{
		Kind:   domainavailability.SpanKind(d.Kind),
		Start:  d.Start.UTC(),
		End:    d.End.UTC(),
		Buffer: time.Duration(d.BufferMS) * time.Millisecond,
	}
}

// bookingDocument.IdemLive mirrors IdempotencyKey while the booking still
// claims it and is unset otherwise; the partial unique index on
// (guest_id, idem_live) lets an aborted attempt give its key back.
type bookingDocument struct {
	ID             string        `bson:"_id"`
	IdempotencyKey string        `bson:"idempotency_key"`
	IdemLive       string        `bson:"idem_live,omitempty"`
	GuestID        string        `bson:"guest_id"`
	HostID         string        `bson:"host_id"`
	ResourceKind   string        `bson:"resource_kind"`
	ResourceID     string        `bson:"resource_id"`
	Type           string        `bson:"type"`
	Shape          string        `bson:"shape"`
	Window         rangeDocument `bson:"window"`
	HeldSpan       spanDocument  `bson:"held_span"`
	Adults         int           `bson:"adults"`
	Children       int           `bson:"children"`
	Infants        int           `bson:"infants"`

	Pricing            domainpricing.Breakdown `bson:"pricing"`
	CancellationPolicy string                  `bson:"cancellation_policy"`

	Status               string        `bson:"status"`
	PaymentStatus        string        `bson:"payment_status"`
	PaymentTransactionID string        `bson:"payment_transaction_id,omitempty"`
	RefundAmount         moneyDocument `bson:"refund_amount"`
	RefundStatus         string        `bson:"refund_status"`

	CancelledBy     string     `bson:"cancelled_by,omitempty"`
	CancelledByRole string     `bson:"cancelled_by_role,omitempty"`
	CancelledAt     *time.Time `bson:"cancelled_at,omitempty"`
	CancelReason    string     `bson:"cancel_reason,omitempty"`
	CheckedIn       bool       `bson:"checked_in"`
	CheckedInAt     *time.Time `bson:"checked_in_at,omitempty"`
	CheckedInBy     string     `bson:"checked_in_by,omitempty"`
	AcceptedAt      *time.Time `bson:"accepted_at,omitempty"`
	CompletedAt     *time.Time `bson:"completed_at,omitempty"`
	HostMessage     string     `bson:"host_message,omitempty"`

	RequesterIP string `bson:"requester_ip,omitempty"`
	UserAgent   string `bson:"user_agent,omitempty"`
	CouponCode  string `bson:"coupon_code,omitempty"`

	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
	Version   int64     `bson:"version"`
}

const (
	shapeStay = "stay"
	shapeSlot = "slot"
)

func liveKey(b *domainbooking.Booking) bool {
	return !(b.Status == domainbooking.StatusCancelled && b.PaymentStatus == domainbooking.PaymentFailed)
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	w := b.Window()
	shape := shapeStay
	if b.Slot != nil {
		shape = shapeSlot
	}
	doc := bookingDocument{
		ID:                   string(b.ID),
		IdempotencyKey:       b.IdempotencyKey,
		GuestID:              b.GuestID,
		HostID:               b.HostID,
		ResourceKind:         string(b.Resource.Kind),
		ResourceID:           b.Resource.ID,
		Type:                 string(b.Type),
		Shape:                shape,
		Window:               rangeDocument{CheckIn: w.CheckIn, CheckOut: w.CheckOut},
		HeldSpan:             newSpan(b.HeldSpan),
		Adults:               b.Guests.Adults,
		Children:             b.Guests.Children,
		Infants:              b.Guests.Infants,
		Pricing:              b.Pricing,
		CancellationPolicy:   string(b.CancellationPolicy),
		Status:               string(b.Status),
		PaymentStatus:        string(b.PaymentStatus),
		PaymentTransactionID: b.PaymentTransactionID,
		RefundAmount:         newMoney(b.RefundAmount),
		RefundStatus:         string(b.RefundStatus),
		CancelledBy:          b.CancelledBy,
		CancelledByRole:      string(b.CancelledByRole),
		CancelledAt:          b.CancelledAt,
		CancelReason:         b.CancelReason,
		CheckedIn:            b.CheckedIn,
		CheckedInAt:          b.CheckedInAt,
		CheckedInBy:          b.CheckedInBy,
		AcceptedAt:           b.AcceptedAt,
		CompletedAt:          b.CompletedAt,
		HostMessage:          b.HostMessage,
		RequesterIP:          b.Requester.IP,
		UserAgent:            b.Requester.UserAgent,
		CouponCode:           b.CouponCode,
		CreatedAt:            b.CreatedAt,
		UpdatedAt:            b.UpdatedAt,
		Version:              b.Version,
	}
	if liveKey(b) {
		doc.IdemLive = b.IdempotencyKey
	}
	return doc
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	window := daterange.DateRange{CheckIn: d.Window.CheckIn.UTC(), CheckOut: d.Window.CheckOut.UTC()}
	b := &domainbooking.Booking{
		ID:                   domainbooking.BookingID(d.ID),
		IdempotencyKey:       d.IdempotencyKey,
		GuestID:              d.GuestID,
		HostID:               d.HostID,
		Resource:             domaincatalog.ResourceRef{Kind: domaincatalog.Kind(d.ResourceKind), ID: d.ResourceID},
		Type:                 domaincatalog.Mode(d.Type),
		HeldSpan:             d.HeldSpan.toSpan(),
		Guests:               domainbooking.Guests{Adults: d.Adults, Children: d.Children, Infants: d.Infants},
		Pricing:              d.Pricing,
		CancellationPolicy:   domainrefunds.Policy(d.CancellationPolicy),
		Status:               domainbooking.Status(d.Status),
		PaymentStatus:        domainbooking.PaymentStatus(d.PaymentStatus),
		PaymentTransactionID: d.PaymentTransactionID,
		RefundAmount:         d.RefundAmount.toMoney(),
		RefundStatus:         domainbooking.RefundStatus(d.RefundStatus),
		CancelledBy:          d.CancelledBy,
		CancelledByRole:      domainbooking.Role(d.CancelledByRole),
		CancelledAt:          utcPtr(d.CancelledAt),
		CancelReason:         d.CancelReason,
		CheckedIn:            d.CheckedIn,
		CheckedInAt:          utcPtr(d.CheckedInAt),
		CheckedInBy:          d.CheckedInBy,
		AcceptedAt:           utcPtr(d.AcceptedAt),
		CompletedAt:          utcPtr(d.CompletedAt),
		HostMessage:          d.HostMessage,
		Requester:            domainbooking.Requester{IP: d.RequesterIP, UserAgent: d.UserAgent},
		CouponCode:           d.CouponCode,
		CreatedAt:            d.CreatedAt.UTC(),
		UpdatedAt:            d.UpdatedAt.UTC(),
		Version:              d.Version,
	}
	if d.Shape == shapeSlot {
		b.Slot = &window
	} else {
		b.Stay = &window
	}
	return b
}

type refundDocument struct {
	ID         string        `bson:"_id"`
	BookingID  string        `bson:"booking_id"`
	Reason     string        `bson:"reason"`
	Type       string        `bson:"type"`
	Percentage int           `bson:"percentage"`
	Amount     moneyDocument `bson:"amount"`
	Status     string        `bson:"status"`
	GatewayRef string        `bson:"gateway_ref,omitempty"`
	CreatedAt  time.Time     `bson:"created_at"`
	UpdatedAt  time.Time     `bson:"updated_at"`
}

func newRefundDocument(r *domainrefunds.Refund) refundDocument {
	return refundDocument{
		ID:         r.ID,
		BookingID:  r.BookingID,
		Reason:     string(r.Reason),
		Type:       string(r.Type),
		Percentage: r.Percentage,
		Amount:     newMoney(r.Amount),
		Status:     string(r.Status),
		GatewayRef: r.GatewayRef,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

func (d refundDocument) toRefund() *domainrefunds.Refund {
	return &domainrefunds.Refund{
		ID:         d.ID,
		BookingID:  d.BookingID,
		Reason:     domainrefunds.Reason(d.Reason),
		Type:       domainrefunds.Type(d.Type),
		Percentage: d.Percentage,
		Amount:     d.Amount.toMoney(),
		Status:     domainrefunds.Status(d.Status),
		GatewayRef: d.GatewayRef,
		CreatedAt:  d.CreatedAt.UTC(),
		UpdatedAt:  d.UpdatedAt.UTC(),
	}
}

type couponDocument struct {
	Code             string        `bson:"_id"`
	Type             string        `bson:"type"`
	PercentBps       int64         `bson:"percent_bps"`
	FixedAmount      moneyDocument `bson:"fixed_amount"`
	MaxDiscount      moneyDocument `bson:"max_discount"`
	MinBookingAmount moneyDocument `bson:"min_booking_amount"`
	ValidFrom        time.Time     `bson:"valid_from"`
	ValidTo          time.Time     `bson:"valid_to"`
	UsedBy           []string      `bson:"used_by"`
}

func newCouponDocument(c *domaincoupons.Coupon) couponDocument {
	used := c.UsedBy
	if used == nil {
		used = []string{}
	}
	return couponDocument{
		Code:             domaincoupons.Normalize(c.Code),
		Type:             string(c.Type),
		PercentBps:       int64(c.PercentBps),
		FixedAmount:      newMoney(c.FixedAmount),
		MaxDiscount:      newMoney(c.MaxDiscount),
		MinBookingAmount: newMoney(c.MinBookingAmount),
		ValidFrom:        c.ValidFrom,
		ValidTo:          c.ValidTo,
		UsedBy:           used,
	}
}

func (d couponDocument) toCoupon() *domaincoupons.Coupon {
	return &domaincoupons.Coupon{
		Code:             d.Code,
		Type:             domaincoupons.Type(d.Type),
		PercentBps:       money.BasisPoints(d.PercentBps),
		FixedAmount:      d.FixedAmount.toMoney(),
		MaxDiscount:      d.MaxDiscount.toMoney(),
		MinBookingAmount: d.MinBookingAmount.toMoney(),
		ValidFrom:        d.ValidFrom.UTC(),
		ValidTo:          d.ValidTo.UTC(),
		UsedBy:           append([]string(nil), d.UsedBy...),
	}
}

type rateDocument struct {
	ID            string     `bson:"_id"`
	RateBps       int64      `bson:"rate_bps"`
	EffectiveFrom time.Time  `bson:"effective_from"`
	EffectiveTo   *time.Time `bson:"effective_to,omitempty"`
	IsActive      bool       `bson:"is_active"`
	ChangedBy     string     `bson:"changed_by"`
}

func newRateDocument(v domainpricing.RateVersion) rateDocument {
	return rateDocument{
		ID:            v.ID,
		RateBps:       int64(v.RateBps),
		EffectiveFrom: v.EffectiveFrom,
		EffectiveTo:   v.EffectiveTo,
		IsActive:      v.IsActive,
		ChangedBy:     v.ChangedBy,
	}
}

func (d rateDocument) toVersion() domainpricing.RateVersion {
	return domainpricing.RateVersion{
		ID:            d.ID,
		RateBps:       money.BasisPoints(d.RateBps),
		EffectiveFrom: d.EffectiveFrom.UTC(),
		EffectiveTo:   utcPtr(d.EffectiveTo),
		IsActive:      d.IsActive,
		ChangedBy:     d.ChangedBy,
	}
}

type resourceDocument struct {
	ID                 string                `bson:"_id"`
	Kind               string                `bson:"kind"`
	ResourceID         string                `bson:"resource_id"`
	HostID             string                `bson:"host_id"`
	Title              string                `bson:"title"`
	Modes              []string              `bson:"modes"`
	Tariff             domainpricing.Tariff  `bson:"tariff"`
	HourlyTariff       *domainpricing.Tariff `bson:"hourly_tariff,omitempty"`
	CancellationPolicy string                `bson:"cancellation_policy"`
	MinNights          int                   `bson:"min_nights"`
	MaxNights          int                   `bson:"max_nights"`
	MinHours           int                   `bson:"min_hours"`
	MaxGuests          int                   `bson:"max_guests"`
	HostBufferHours    int                   `bson:"host_buffer_hours"`
	CheckInTime        string                `bson:"check_in_time"`
	CheckOutTime       string                `bson:"check_out_time"`
	Active             bool                  `bson:"active"`
}

func newResourceDocument(r *domaincatalog.Resource) resourceDocument {
	modes := make([]string, 0, len(r.Modes))
	for _, m := range r.Modes {
		modes = append(modes, string(m))
	}
	return resourceDocument{
		ID:                 r.Ref.String(),
		Kind:               string(r.Ref.Kind),
		ResourceID:         r.Ref.ID,
		HostID:             r.HostID,
		Title:              r.Title,
		Modes:              modes,
		Tariff:             r.Tariff,
		HourlyTariff:       r.HourlyTariff,
		CancellationPolicy: r.CancellationPolicy,
		MinNights:          r.MinNights,
		MaxNights:          r.MaxNights,
		MinHours:           r.MinHours,
		MaxGuests:          r.MaxGuests,
		HostBufferHours:    r.HostBufferHours,
		CheckInTime:        r.CheckInTime,
		CheckOutTime:       r.CheckOutTime,
		Active:             r.Active,
	}
}

func (d resourceDocument) toResource() *domaincatalog.Resource {
	modes := make([]domaincatalog.Mode, 0, len(d.Modes))
	for _, m := range d.Modes {
		modes = append(modes, domaincatalog.Mode(m))
	}
	return &domaincatalog.Resource{
		Ref:                domaincatalog.ResourceRef{Kind: domaincatalog.Kind(d.Kind), ID: d.ResourceID},
		HostID:             d.HostID,
		Title:              d.Title,
		Modes:              modes,
		Tariff:             d.Tariff,
		HourlyTariff:       d.HourlyTariff,
		CancellationPolicy: d.CancellationPolicy,
		MinNights:          d.MinNights,
		MaxNights:          d.MaxNights,
		MinHours:           d.MinHours,
		MaxGuests:          d.MaxGuests,
		HostBufferHours:    d.HostBufferHours,
		CheckInTime:        d.CheckInTime,
		CheckOutTime:       d.CheckOutTime,
		Active:             d.Active,
	}
}

type cellDocument struct {
	Start     time.Time `bson:"start"`
	End       time.Time `bson:"end"`
	Status    string    `bson:"status"`
	BookingID string    `bson:"booking_id,omitempty"`
	Reason    string    `bson:"reason,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type calendarDocument struct {
	ID      string         `bson:"_id"`
	Kind    string         `bson:"kind"`
	ItemID  string         `bson:"item_id"`
	Cells   []cellDocument `bson:"cells"`
	Version int64          `bson:"version"`
}

func newCalendarDocument(c *domainavailability.Calendar) calendarDocument {
	cells := make([]cellDocument, 0, len(c.Cells))
	for _, cell := range c.Cells {
		cells = append(cells, cellDocument{
			Start:     cell.Start,
			End:       cell.End,
			Status:    string(cell.Status),
			BookingID: cell.BookingID,
			Reason:    cell.Reason,
			CreatedAt: cell.CreatedAt,
			UpdatedAt: cell.UpdatedAt,
		})
	}
	return calendarDocument{
		ID:      c.Resource.String(),
		Kind:    string(c.Resource.Kind),
		ItemID:  c.Resource.ID,
		Cells:   cells,
		Version: c.Version,
	}
}

func (d calendarDocument) toCalendar(ref domaincatalog.ResourceRef) *domainavailability.Calendar {
	cal := domainavailability.NewCalendar(ref)
	cal.Version = d.Version
	for _, c := range d.Cells {
		cal.Cells = append(cal.Cells, domainavailability.Cell{
			Start:     c.Start.UTC(),
			End:       c.End.UTC(),
			Status:    domainavailability.Status(c.Status),
			BookingID: c.BookingID,
			Reason:    c.Reason,
			CreatedAt: c.CreatedAt.UTC(),
			UpdatedAt: c.UpdatedAt.UTC(),
		})
	}
	return cal
}
