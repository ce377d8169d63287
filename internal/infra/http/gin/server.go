package ginserver

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"stayledger/internal/app/commands"
	"stayledger/internal/app/queries"
	"stayledger/internal/infra/config"
	"stayledger/internal/infra/obs"
)

type BookingHTTP interface {
	Create(c *gin.Context)
	Get(c *gin.Context)
	Accept(c *gin.Context)
	Reject(c *gin.Context)
	Cancel(c *gin.Context)
	CancellationPreview(c *gin.Context)
	CheckIn(c *gin.Context)
	Complete(c *gin.Context)
	RefundDeposit(c *gin.Context)
}

type PricingHTTP interface {
	Quote(c *gin.Context)
	ChangeRate(c *gin.Context)
}

type AvailabilityHTTP interface {
	Check(c *gin.Context)
	AdminRelease(c *gin.Context)
}

type Handlers struct {
	Booking      BookingHTTP
	Pricing      PricingHTTP
	Availability AvailabilityHTTP
	Metrics      http.Handler
	MetricsMW    gin.HandlerFunc
}

// NewHandlers builds the default handler set over the buses.
func NewHandlers(cmds commands.Bus, qs queries.Bus, logger *slog.Logger) Handlers {
	base := handlerBase{Commands: cmds, Queries: qs, Logger: logger}
	return Handlers{
		Booking:      BookingHandler{handlerBase: base},
		Pricing:      PricingHandler{handlerBase: base},
		Availability: AvailabilityHandler{handlerBase: base},
	}
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	if h.MetricsMW != nil {
		router.Use(h.MetricsMW)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", headerIdempotencyKey, headerActorID, headerActorRole},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	router.Use(ActorMiddleware())

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.Metrics != nil {
		router.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := router.Group("/api/v1")
	if h.Booking != nil {
		api.POST("/bookings", h.Booking.Create)
		api.GET("/bookings/:id", h.Booking.Get)
		api.POST("/bookings/:id/accept", h.Booking.Accept)
		api.POST("/bookings/:id/reject", h.Booking.Reject)
		api.POST("/bookings/:id/cancel", h.Booking.Cancel)
		api.GET("/bookings/:id/cancellation-preview", h.Booking.CancellationPreview)
		api.POST("/bookings/:id/check-in", h.Booking.CheckIn)
		api.POST("/bookings/:id/complete", h.Booking.Complete)
		api.POST("/bookings/:id/deposit-refund", h.Booking.RefundDeposit)
	}
	if h.Pricing != nil {
		api.POST("/quotes", h.Pricing.Quote)
		api.PUT("/admin/platform-rate", h.Pricing.ChangeRate)
	}
	if h.Availability != nil {
		api.GET("/availability", h.Availability.Check)
		api.POST("/admin/availability/release", h.Availability.AdminRelease)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
