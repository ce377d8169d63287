package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	domainbooking "stayledger/internal/domain/booking"
)

const (
	headerActorID        = "X-Actor-ID"
	headerActorRole      = "X-Actor-Role"
	headerIdempotencyKey = "Idempotency-Key"

	actorContextKey = "stayledger.actor"
)

// ActorMiddleware reads the caller supplied by the trusted upstream identity
// layer. Requests without headers pass through anonymous; the system role is
// reserved for in-process workers.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(headerActorID))
		rawRole := strings.ToLower(strings.TrimSpace(c.GetHeader(headerActorRole)))
		if id == "" && rawRole == "" {
			c.Next()
			return
		}
		role, err := domainbooking.ParseRole(rawRole)
		if err != nil || id == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: "validation", Message: "invalid actor headers"})
			return
		}
		if role == domainbooking.RoleSystem {
			c.AbortWithStatusJSON(http.StatusForbidden, errorBody{Error: "unauthorized", Message: "system role is not accepted over http"})
			return
		}
		c.Set(actorContextKey, domainbooking.Actor{ID: id, Role: role})
		c.Next()
	}
}

func currentActor(c *gin.Context) (domainbooking.Actor, bool) {
	val, exists := c.Get(actorContextKey)
	if !exists {
		return domainbooking.Actor{}, false
	}
	a, ok := val.(domainbooking.Actor)
	return a, ok
}

func requireActor(c *gin.Context) (domainbooking.Actor, bool) {
	a, ok := currentActor(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, errorBody{Error: "unauthenticated", Message: "actor headers required"})
		return domainbooking.Actor{}, false
	}
	return a, true
}
