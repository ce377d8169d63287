package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayledger/internal/app/apperr"
	"stayledger/internal/app/commands"
	"stayledger/internal/app/queries"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
}

var kindStatus = map[apperr.Kind]int{
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindResourceConflict:  http.StatusConflict,
	apperr.KindUnauthorized:      http.StatusForbidden,
	apperr.KindInvalidTransition: http.StatusConflict,
	apperr.KindUpstreamFailure:   http.StatusBadGateway,
	apperr.KindInconsistent:      http.StatusInternalServerError,
	apperr.KindInProgress:        http.StatusConflict,
	apperr.KindRateLimited:       http.StatusTooManyRequests,
}

type handlerBase struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

func (h handlerBase) handleError(c *gin.Context, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		h.respondWithError(c, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal error"}, err)
		return
	}
	status, ok := kindStatus[appErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := errorBody{Error: string(appErr.Kind), Message: appErr.Error(), From: appErr.From, To: appErr.To}
	if appErr.Kind == apperr.KindInconsistent {
		body.Message = "internal error"
	}
	h.respondWithError(c, status, body, err)
}

func (h handlerBase) respondWithError(c *gin.Context, status int, body errorBody, err error) {
	if h.Logger != nil && status >= http.StatusInternalServerError {
		fields := []any{"status", status, "error", err, "path", c.FullPath()}
		if actor, ok := currentActor(c); ok {
			fields = append(fields, "actor_id", actor.ID)
		}
		h.Logger.Error("request failed", fields...)
	}
	c.JSON(status, body)
}

func (h handlerBase) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, errorBody{Error: string(apperr.KindValidation), Message: err.Error()})
}

// bindOptionalJSON decodes the body when one was sent.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
