// Package metrics holds the Prometheus collectors of the service and the
// echo middleware that feeds the HTTP ones.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP
var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// Domain
var (
	otpIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_issued_total",
		Help: "One-time codes issued, by purpose.",
	}, []string{"purpose"})

	otpVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "otp_verifications_total",
		Help: "One-time code verification attempts, by result.",
	}, []string{"result"})

	gateRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_gate_rejections_total",
		Help: "Requests rejected by the authorization gate, by reason.",
	}, []string{"reason"})

	tokensIssued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tokens_issued_total",
		Help: "Signed tokens issued, by kind.",
	}, []string{"kind"})

	notifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Outbound notifications, by kind and result.",
	}, []string{"kind", "result"})
)

var registerOnce sync.Once

// Init registers every collector with the default registry.  Calling it more
// than once is harmless.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpInFlight, httpRequestsTotal, httpRequestDuration,
			otpIssued, otpVerifications, gateRejections, tokensIssued, notifications)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records in-flight requests, request counts and latencies.  The
// route template rather than the raw path is used as label so ids do not
// explode cardinality.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			httpInFlight.Inc()
			defer httpInFlight.Dec()
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}
			labels := []string{c.Request().Method, path, strconv.Itoa(status)}
			httpRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			httpRequestsTotal.WithLabelValues(labels...).Inc()
			return err
		}
	}
}

func OTPIssued(purpose string)      { otpIssued.WithLabelValues(purpose).Inc() }
func OTPVerification(result string) { otpVerifications.WithLabelValues(result).Inc() }
func GateRejected(reason string)    { gateRejections.WithLabelValues(reason).Inc() }
func TokenIssued(kind string)       { tokensIssued.WithLabelValues(kind).Inc() }

// Notification counts one delivery attempt; err decides the result label.
func Notification(kind string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	notifications.WithLabelValues(kind, result).Inc()
}
