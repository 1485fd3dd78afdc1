package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	PredictorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "veritas",
			Subsystem: "predictor",
			Name:      "call_duration_seconds",
			Help:      "Latency of market predictor calls by outcome",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	PredictorRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "veritas",
			Subsystem: "predictor",
			Name:      "retries_total",
			Help:      "Retried predictor requests",
		},
	)

	// PredictorBreakerState is 0 closed, 1 half-open, 2 open.
	PredictorBreakerState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "veritas",
			Subsystem: "predictor",
			Name:      "breaker_state",
			Help:      "Circuit breaker state of the market predictor",
		},
	)

	PredictorLockWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "veritas",
			Subsystem: "predictor",
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for the serialized predictor lock",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
	)
)

// Register adds the package collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			PredictorLatency, PredictorRetries, PredictorBreakerState, PredictorLockWait,
			RealtimeClients, RealtimeDropped,
		)
	})
}
