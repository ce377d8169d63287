package booking

import (
	"time"

	"stayledger/internal/app/dto"
	domainbooking "stayledger/internal/domain/booking"
)

const (
	createBookingKey         = "booking.create"
	acceptBookingKey         = "booking.accept"
	rejectBookingKey         = "booking.reject"
	cancelBookingKey         = "booking.cancel"
	checkInKey               = "booking.check_in"
	completeBookingKey       = "booking.complete"
	expireBookingKey         = "booking.expire"
	refundSecurityDepositKey = "booking.refund_security_deposit"
	adminReleaseResourceKey  = "availability.admin_release"
	changePlatformRateKey    = "pricing.change_platform_rate"
	quotePriceKey            = "pricing.quote"
	cancellationPreviewKey   = "booking.cancellation_preview"
	getBookingKey            = "booking.get"
	checkAvailabilityKey     = "availability.check"
)

var (
	rolesGuest       = []string{string(domainbooking.RoleGuest)}
	rolesHost        = []string{string(domainbooking.RoleHost)}
	rolesHostAdmin   = []string{string(domainbooking.RoleHost), string(domainbooking.RoleAdmin)}
	rolesAnyone      = []string{string(domainbooking.RoleGuest), string(domainbooking.RoleHost), string(domainbooking.RoleAdmin), string(domainbooking.RoleSystem)}
	rolesCompleters  = []string{string(domainbooking.RoleHost), string(domainbooking.RoleAdmin), string(domainbooking.RoleSystem)}
	rolesSystem      = []string{string(domainbooking.RoleSystem), string(domainbooking.RoleAdmin)}
	rolesAdmin       = []string{string(domainbooking.RoleAdmin)}
	rolesGuestQuoter = []string{string(domainbooking.RoleGuest), string(domainbooking.RoleAdmin)}
)

// Principal carries the authenticated caller on every message.
type Principal struct {
	Actor domainbooking.Actor `validate:"required"`
}

func (p Principal) ActorRole() string { return string(p.Actor.Role) }

// StayRequest describes what is being booked or quoted. Daily stays use
// CheckIn/CheckOut dates, 24-hour stays CheckIn plus TotalHours, services
// SlotStart/SlotEnd.
type StayRequest struct {
	ListingID   string    `validate:"required_without=ServiceID,excluded_with=ServiceID"`
	ServiceID   string    `validate:"required_without=ListingID,excluded_with=ListingID"`
	BookingType string    `validate:"required,oneof=daily hourly24 service"`
	CheckIn     time.Time
	CheckOut    time.Time
	TotalHours  int       `validate:"gte=0"`
	SlotStart   time.Time
	SlotEnd     time.Time
	Adults      int       `validate:"gte=1"`
	Children    int       `validate:"gte=0"`
	Infants     int       `validate:"gte=0"`
	CouponCode  string    `validate:"omitempty,max=64"`
}

type CreateBookingCommand struct {
	Principal
	StayRequest
	IdempotencyKeyV string `validate:"required,max=128"`
	PaymentMethod   string
	RequesterIP     string
	UserAgent       string
}

func (c CreateBookingCommand) Key() string              { return createBookingKey }
func (c CreateBookingCommand) AllowedRoles() []string   { return rolesGuest }
func (c CreateBookingCommand) IdempotencyScope() string { return c.Actor.ID }
func (c CreateBookingCommand) IdempotencyKey() string   { return c.IdempotencyKeyV }
func (c CreateBookingCommand) ResultPrototype() any     { return &dto.BookingDTO{} }
func (c CreateBookingCommand) RateLimitKey() string     { return "create:" + c.Actor.ID }

// Transactional is false: creation commits each step on its own so the
// sweeper can observe blocked and processing bookings.
func (c CreateBookingCommand) Transactional() bool { return false }

type AcceptBookingCommand struct {
	Principal
	BookingID string `validate:"required"`
	Message   string `validate:"max=2000"`
}

func (c AcceptBookingCommand) Key() string            { return acceptBookingKey }
func (c AcceptBookingCommand) AllowedRoles() []string { return rolesHost }

type RejectBookingCommand struct {
	Principal
	BookingID string `validate:"required"`
	Reason    string `validate:"max=2000"`
}

func (c RejectBookingCommand) Key() string            { return rejectBookingKey }
func (c RejectBookingCommand) AllowedRoles() []string { return rolesHost }

type CancelBookingCommand struct {
	Principal
	BookingID string `validate:"required"`
	Reason    string `validate:"max=2000"`
}

func (c CancelBookingCommand) Key() string            { return cancelBookingKey }
func (c CancelBookingCommand) AllowedRoles() []string { return rolesAnyone }

type CheckInCommand struct {
	Principal
	BookingID string `validate:"required"`
}

func (c CheckInCommand) Key() string            { return checkInKey }
func (c CheckInCommand) AllowedRoles() []string { return rolesHostAdmin }

type CompleteBookingCommand struct {
	Principal
	BookingID string `validate:"required"`
}

func (c CompleteBookingCommand) Key() string            { return completeBookingKey }
func (c CompleteBookingCommand) AllowedRoles() []string { return rolesCompleters }

type ExpireBookingCommand struct {
	Principal
	BookingID string `validate:"required"`
}

func (c ExpireBookingCommand) Key() string            { return expireBookingKey }
func (c ExpireBookingCommand) AllowedRoles() []string { return rolesSystem }

type RefundSecurityDepositCommand struct {
	Principal
	BookingID string `validate:"required"`
}

func (c RefundSecurityDepositCommand) Key() string            { return refundSecurityDepositKey }
func (c RefundSecurityDepositCommand) AllowedRoles() []string { return rolesHostAdmin }

type AdminReleaseResourceCommand struct {
	Principal
	ResourceKind string    `validate:"required,oneof=listing service"`
	ResourceID   string    `validate:"required"`
	Start        time.Time `validate:"required"`
	End          time.Time `validate:"required,gtfield=Start"`
}

func (c AdminReleaseResourceCommand) Key() string            { return adminReleaseResourceKey }
func (c AdminReleaseResourceCommand) AllowedRoles() []string { return rolesAdmin }

type ChangePlatformRateCommand struct {
	Principal
	Rate string `validate:"required"`
}

func (c ChangePlatformRateCommand) Key() string            { return changePlatformRateKey }
func (c ChangePlatformRateCommand) AllowedRoles() []string { return rolesAdmin }

type QuotePriceQuery struct {
	Principal
	StayRequest
}

func (q QuotePriceQuery) Key() string            { return quotePriceKey }
func (q QuotePriceQuery) AllowedRoles() []string { return rolesGuestQuoter }

type CancellationPreviewQuery struct {
	Principal
	BookingID string `validate:"required"`
}

func (q CancellationPreviewQuery) Key() string            { return cancellationPreviewKey }
func (q CancellationPreviewQuery) AllowedRoles() []string { return rolesAnyone }

type GetBookingQuery struct {
	Principal
	BookingID string `validate:"required"`
}

func (q GetBookingQuery) Key() string            { return getBookingKey }
func (q GetBookingQuery) AllowedRoles() []string { return rolesAnyone }

type CheckAvailabilityQuery struct {
	ResourceKind string    `validate:"required,oneof=listing service"`
	ResourceID   string    `validate:"required"`
	Start        time.Time `validate:"required"`
	End          time.Time `validate:"required,gtfield=Start"`
	BufferHours  int       `validate:"gte=0"`
	Daily        bool
}

func (q CheckAvailabilityQuery) Key() string { return checkAvailabilityKey }
