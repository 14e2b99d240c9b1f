package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/54b3r/budgetai-go/internal/session"
)

// labelHandler partitions HTTP metrics by logical endpoint name rather than
// raw URL path, so session ids do not explode cardinality.
const labelHandler = "handler"

// serverMetrics holds every Prometheus metric owned by the HTTP server.
// Tests pass a fresh prometheus.Registry to keep the default one clean.
type serverMetrics struct {
	// chatRequestsTotal counts completed turns by mode and outcome: "ok",
	// "timeout" or the failure kind.
	chatRequestsTotal *prometheus.CounterVec

	// chatDurationSeconds records the answer time of each turn.
	chatDurationSeconds *prometheus.HistogramVec

	// chatInFlight is the number of turns currently running.
	chatInFlight prometheus.Gauge

	// indexedChunksTotal counts chunks added through POST /api/index.
	indexedChunksTotal prometheus.Counter

	// sessionsActive reports the number of conversation logs held in memory.
	sessionsActive prometheus.GaugeFunc

	httpRequestsTotal   *prometheus.CounterVec
	httpDurationSeconds *prometheus.HistogramVec
}

func newServerMetrics(reg prometheus.Registerer, sessions *session.Manager) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		chatRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "budgetai",
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Total number of conversation turns completed, partitioned by mode and outcome.",
		}, []string{"mode", "outcome"}),

		chatDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "budgetai",
			Subsystem: "chat",
			Name:      "duration_seconds",
			Help:      "Answer time of conversation turns.",
			Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300},
		}, []string{"mode"}),

		chatInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "budgetai",
			Subsystem: "chat",
			Name:      "in_flight",
			Help:      "Number of conversation turns currently running.",
		}),

		indexedChunksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "budgetai",
			Subsystem: "index",
			Name:      "chunks_added_total",
			Help:      "Total number of chunks added to the index over HTTP.",
		}),

		sessionsActive: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "budgetai",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of conversation sessions held in memory.",
		}, func() float64 { return float64(sessions.Len()) }),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "budgetai",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests, partitioned by method, handler and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "budgetai",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}
