package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	evaluations *prometheus.CounterVec
	composite   *prometheus.HistogramVec
	errorsTotal *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	market      *prometheus.GaugeVec
}

// New registers the recorder's collectors with the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		evaluations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veritas_evaluations_total",
				Help: "Verdicts produced by evaluator and tier",
			},
			[]string{"evaluator", "tier"},
		),
		composite: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "veritas_composite_score",
				Help:    "Distribution of composite scores by evaluator",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"evaluator"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "veritas_errors_total",
				Help: "Errors by kind",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "veritas_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		market: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "veritas_market_score",
				Help: "Last market assessment seen by the engine",
			},
			[]string{"score"},
		),
	}
}

func (r *Recorder) RecordEvaluation(kind, tier string) {
	r.evaluations.WithLabelValues(kind, tier).Inc()
}

func (r *Recorder) RecordCompositeScore(kind string, score float64) {
	r.composite.WithLabelValues(kind).Observe(score)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordMarket(risk, liquidity, confidence float64) {
	r.market.WithLabelValues("risk").Set(risk)
	r.market.WithLabelValues("liquidity").Set(liquidity)
	r.market.WithLabelValues("confidence").Set(confidence)
}
