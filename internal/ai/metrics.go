package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diary",
			Subsystem: "ai",
			Name:      "requests_total",
			Help:      "Generative model calls by operation, model and outcome.",
		},
		[]string{"op", "model", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "diary",
			Subsystem: "ai",
			Name:      "request_duration_seconds",
			Help:      "Latency of generative model calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"op"},
	)
)

func observe(op, modelName, outcome string, start time.Time) {
	requestsTotal.WithLabelValues(op, modelName, outcome).Inc()
	requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
