package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/dto"
	bookingapp "stayledger/internal/app/handlers/booking"
	"stayledger/internal/app/queries"
)

type PricingHandler struct {
	handlerBase
}

type changeRateRequest struct {
	Rate string `json:"rate" binding:"required"`
}

// Quote prices a stay without holding anything.
func (h PricingHandler) Quote(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req stayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	query := bookingapp.QuotePriceQuery{
		Principal:   bookingapp.Principal{Actor: actor},
		StayRequest: req.toApp(),
	}
	result, err := queries.Ask[bookingapp.QuotePriceQuery, dto.QuoteDTO](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h PricingHandler) ChangeRate(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	var req changeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	cmd := bookingapp.ChangePlatformRateCommand{
		Principal: bookingapp.Principal{Actor: actor},
		Rate:      strings.TrimSpace(req.Rate),
	}
	result, err := commands.Dispatch[bookingapp.ChangePlatformRateCommand, *dto.RateVersionDTO](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

var _ PricingHTTP = PricingHandler{}
