package obs

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Check probes one dependency; a nil error means ready.
type Check func(ctx context.Context) error

// HealthHandlers exposes endpoints for liveness and readiness checks.
type HealthHandlers struct {
	Checks  map[string]Check
	Timeout time.Duration
}

func (h HealthHandlers) Livez(c *gin.Context) {
	c.Status(http.StatusOK)
}

func (h HealthHandlers) Readyz(c *gin.Context) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()
	failed := gin.H{}
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "errors": failed})
		return
	}
	c.Status(http.StatusOK)
}
