package ginserver

import (
	"net/http"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/dto"
	bookingapp "stayledger/internal/app/handlers/booking"
	"stayledger/internal/app/queries"
)

type BookingHandler struct {
	handlerBase
}

type stayRequest struct {
	ListingID   string    `json:"listing_id"`
	ServiceID   string    `json:"service_id"`
	BookingType string    `json:"booking_type" binding:"required"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	TotalHours  int       `json:"total_hours"`
	SlotStart   time.Time `json:"slot_start"`
	SlotEnd     time.Time `json:"slot_end"`
	Adults      int       `json:"adults"`
	Children    int       `json:"children"`
	Infants     int       `json:"infants"`
	CouponCode  string    `json:"coupon_code"`
}

func (r stayRequest) toApp() bookingapp.StayRequest {
	return bookingapp.StayRequest{
		ListingID:   strings.TrimSpace(r.ListingID),
		ServiceID:   strings.TrimSpace(r.ServiceID),
		BookingType: strings.TrimSpace(r.BookingType),
		CheckIn:     r.CheckIn,
		CheckOut:    r.CheckOut,
		TotalHours:  r.TotalHours,
		SlotStart:   r.SlotStart,
		SlotEnd:     r.SlotEnd,
		Adults:      r.Adults,
		Children:    r.Children,
		Infants:     r.Infants,
		CouponCode:  strings.TrimSpace(r.CouponCode),
	}
}

type createBookingRequest struct {
	stayRequest
	PaymentMethod string `json:"payment_method"`
}

type reasonRequest struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (h BookingHandler) Create(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		Principal:       bookingapp.Principal{Actor: actor},
		StayRequest:     req.toApp(),
		IdempotencyKeyV: strings.TrimSpace(c.GetHeader(headerIdempotencyKey)),
		PaymentMethod:   req.PaymentMethod,
		RequesterIP:     c.ClientIP(),
		UserAgent:       c.Request.UserAgent(),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, *dto.BookingDTO](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) Get(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	query := bookingapp.GetBookingQuery{
		Principal: bookingapp.Principal{Actor: actor},
		BookingID: strings.TrimSpace(c.Param("id")),
	}
	result, err := queries.Ask[bookingapp.GetBookingQuery, dto.BookingWithRefundsDTO](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Accept(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}
	cmd := bookingapp.AcceptBookingCommand{
		Principal: bookingapp.Principal{Actor: actor},
		BookingID: strings.TrimSpace(c.Param("id")),
		Message:   strings.TrimSpace(req.Message),
	}
	h.dispatchBooking(c, func() (*dto.BookingDTO, error) {
		return commands.Dispatch[bookingapp.AcceptBookingCommand, *dto.BookingDTO](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Reject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}
	cmd := bookingapp.RejectBookingCommand{
		Principal: bookingapp.Principal{Actor: actor},
		BookingID: strings.TrimSpace(c.Param("id")),
		Reason:    strings.TrimSpace(req.Reason),
	}
	h.dispatchBooking(c, func() (*dto.BookingDTO, error) {
		return commands.Dispatch[bookingapp.RejectBookingCommand, *dto.BookingDTO](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Cancel(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req reasonRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		h.badRequest(c, err)
		return
	}
	cmd := bookingapp.CancelBookingCommand{
		Principal: bookingapp.Principal{Actor: actor},
		BookingID: strings.TrimSpace(c.Param("id")),
		Reason:    strings.TrimSpace(req.Reason),
	}
	h.dispatchBooking(c, func() (*dto.BookingDTO, error) {
		return commands.Dispatch[bookingapp.CancelBookingCommand, *dto.BookingDTO](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) CancellationPreview(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	query := bookingapp.CancellationPreviewQuery{
		Principal: bookingapp.Principal{Actor: actor},
		BookingID: strings.TrimSpace(c.Param("id")),
	}
	result, err := queries.Ask[bookingapp.CancellationPreviewQuery, dto.CancellationPreviewDTO](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) CheckIn(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	cmd := bookingapp.CheckInCommand{
		Principal: bookingapp.Principal{Actor: actor},
		BookingID: strings.TrimSpace(c.Param("id")),
	}
	h.dispatchBooking(c, func() (*dto.BookingDTO, error) {
		return commands.Dispatch[bookingapp.CheckInCommand, *dto.BookingDTO](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) Complete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	cmd := bookingapp.CompleteBookingCommand{
		Principal: bookingapp.Principal{Actor: actor},
		BookingID: strings.TrimSpace(c.Param("id")),
	}
	h.dispatchBooking(c, func() (*dto.BookingDTO, error) {
		return commands.Dispatch[bookingapp.CompleteBookingCommand, *dto.BookingDTO](c.Request.Context(), h.Commands, cmd)
	})
}

func (h BookingHandler) RefundDeposit(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	cmd := bookingapp.RefundSecurityDepositCommand{
		Principal: bookingapp.Principal{Actor: actor},
		BookingID: strings.TrimSpace(c.Param("id")),
	}
	result, err := commands.Dispatch[bookingapp.RefundSecurityDepositCommand, *dto.BookingWithRefundsDTO](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) dispatchBooking(c *gin.Context, run func() (*dto.BookingDTO, error)) {
	result, err := run()
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
