package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	submittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diary",
			Subsystem: "tasks",
			Name:      "submitted_total",
			Help:      "Detached jobs accepted by the runner.",
		},
		[]string{"kind"},
	)

	failedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "diary",
			Subsystem: "tasks",
			Name:      "failed_total",
			Help:      "Detached jobs that returned an error or panicked.",
		},
		[]string{"kind", "reason"},
	)

	inFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "diary",
			Subsystem: "tasks",
			Name:      "in_flight",
			Help:      "Detached jobs currently running.",
		},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "diary",
			Subsystem: "tasks",
			Name:      "run_duration_seconds",
			Help:      "Wall time of detached jobs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"kind"},
	)
)
