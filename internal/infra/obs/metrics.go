package obs

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's prometheus collectors. It satisfies the
// recorder interfaces of the command pipeline, the booking handlers, the
// notification dispatcher and the sweeper.
type Metrics struct {
	registry *prometheus.Registry

	messages      *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	holdConflicts prometheus.Counter
	settleFails   *prometheus.CounterVec
	refunds       *prometheus.CounterVec
	refundMinor   *prometheus.CounterVec
	inconsistent  *prometheus.CounterVec
	notifyFails   *prometheus.CounterVec
	sweeps        *prometheus.CounterVec
	httpRequests  *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayledger_messages_total",
			Help: "Commands and queries dispatched through the bus",
		}, []string{"name", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "stayledger_message_duration_seconds",
			Help:    "Bus dispatch latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"name"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayledger_booking_transitions_total",
			Help: "Booking writes by resulting status",
		}, []string{"status"}),
		holdConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stayledger_hold_conflicts_total",
			Help: "Holds rejected because a cell was taken",
		}),
		settleFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayledger_settlement_failures_total",
			Help: "Payment settlements that rolled a creation back",
		}, []string{"reason"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayledger_refunds_total",
			Help: "Refunds sent to the gateway",
		}, []string{"reason"}),
		refundMinor: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayledger_refunded_minor_units_total",
			Help: "Refunded amount in minor currency units",
		}, []string{"reason"}),
		inconsistent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayledger_inconsistencies_total",
			Help: "Reconciliation failures",
		}, []string{"op"}),
		notifyFails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayledger_notification_failures_total",
			Help: "Notifications that could not be delivered",
		}, []string{"template"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayledger_sweeper_transitions_total",
			Help: "Transitions issued by the sweeper",
		}, []string{"action", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stayledger_http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(
		m.messages, m.latency, m.transitions, m.holdConflicts, m.settleFails,
		m.refunds, m.refundMinor, m.inconsistent, m.notifyFails, m.sweeps, m.httpRequests,
		prometheus.NewGoCollector(),
	)
	return m
}

func (m *Metrics) ObserveCommand(name, outcome string, elapsed time.Duration) {
	m.messages.WithLabelValues(name, outcome).Inc()
	m.latency.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *Metrics) BookingTransition(status string) {
	m.transitions.WithLabelValues(status).Inc()
}

func (m *Metrics) HoldConflict() {
	m.holdConflicts.Inc()
}

func (m *Metrics) SettlementFailed(reason string) {
	m.settleFails.WithLabelValues(reason).Inc()
}

func (m *Metrics) RefundIssued(reason string, amountMinor int64) {
	m.refunds.WithLabelValues(reason).Inc()
	if amountMinor > 0 {
		m.refundMinor.WithLabelValues(reason).Add(float64(amountMinor))
	}
}

func (m *Metrics) Inconsistency(op string) {
	m.inconsistent.WithLabelValues(op).Inc()
}

func (m *Metrics) NotificationFailed(template string) {
	m.notifyFails.WithLabelValues(template).Inc()
}

func (m *Metrics) SweepTransition(action string, ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "skipped"
	}
	m.sweeps.WithLabelValues(action, outcome).Inc()
}

// HTTP counts requests by route template.
func (m *Metrics) HTTP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
