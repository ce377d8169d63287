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

type AvailabilityHandler struct {
	handlerBase
}

type availabilityQuery struct {
	Kind        string    `form:"kind" binding:"required"`
	ID          string    `form:"id" binding:"required"`
	Start       time.Time `form:"start" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	End         time.Time `form:"end" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	BufferHours int       `form:"buffer_hours"`
	Daily       bool      `form:"daily"`
}

type releaseRequest struct {
	Kind  string    `json:"kind" binding:"required"`
	ID    string    `json:"id" binding:"required"`
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// Check is public: availability carries no booking details beyond owners.
func (h AvailabilityHandler) Check(c *gin.Context) {
	var req availabilityQuery
	if err := c.ShouldBindQuery(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	query := bookingapp.CheckAvailabilityQuery{
		ResourceKind: strings.TrimSpace(req.Kind),
		ResourceID:   strings.TrimSpace(req.ID),
		Start:        req.Start,
		End:          req.End,
		BufferHours:  req.BufferHours,
		Daily:        req.Daily,
	}
	result, err := queries.Ask[bookingapp.CheckAvailabilityQuery, dto.AvailabilityDTO](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h AvailabilityHandler) AdminRelease(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cmd := bookingapp.AdminReleaseResourceCommand{
		Principal:    bookingapp.Principal{Actor: actor},
		ResourceKind: strings.TrimSpace(req.Kind),
		ResourceID:   strings.TrimSpace(req.ID),
		Start:        req.Start,
		End:          req.End,
	}
	result, err := commands.Dispatch[bookingapp.AdminReleaseResourceCommand, *dto.ReleaseResultDTO](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ AvailabilityHTTP = AvailabilityHandler{}
