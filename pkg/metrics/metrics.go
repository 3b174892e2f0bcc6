package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginOutcomes records session admissions by outcome
	// (admitted|renewed|recovered|limit_reached|error).
	LoginOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndevice_login_outcomes_total",
			Help: "Total number of login requests by admission outcome",
		},
		[]string{"outcome"},
	)

	// Logouts counts deactivations by origin (logout|force_logout|sweeper).
	Logouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ndevice_logouts_total",
			Help: "Total number of session deactivations",
		},
		[]string{"origin"},
	)

	// ActiveSessions tracks sessions currently counting toward device limits.
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ndevice_active_sessions",
			Help: "Number of active sessions",
		},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ndevice_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
