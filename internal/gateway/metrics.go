package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK           = "ok"
	outcomeNetwork      = "network"
	outcomeBusiness     = "business"
	outcomeUnauthorized = "unauthorized"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_console_gateway_requests_total",
			Help: "Gateway calls by method and classified outcome",
		},
		[]string{"method", "outcome"},
	)
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "admin_console_gateway_request_duration_seconds",
			Help:    "Duration of gateway calls including envelope decoding",
			Buckets: prometheus.ExponentialBuckets(0.01, 2.0, 10),
		},
		[]string{"method", "outcome"},
	)
	sessionExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_console_session_expired_total",
			Help: "Calls that ended the session with an unauthorized outcome",
		},
	)
)

func recordCall(method, outcome string, duration time.Duration) {
	requestsTotal.WithLabelValues(method, outcome).Inc()
	requestDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}
