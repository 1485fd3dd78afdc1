package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"Veritas/internal/domain/models"
	domsvc "Veritas/internal/domain/service"
	svcmetrics "Veritas/internal/service/metrics"
	"Veritas/pkg/config"
	xhttp "Veritas/pkg/http"
	"Veritas/pkg/logger"
)

const (
	riskAssessmentPath = "/api/v1/risk-assessment"
	healthPath         = "/health"
)

// HTTPPredictor calls the model service over HTTP behind a circuit breaker.
type HTTPPredictor struct {
	base     *HTTPServiceBase
	breaker  *gobreaker.CircuitBreaker
	attempts int
	log      *logger.Logger
	now      func() time.Time
}

func NewHTTPPredictor(cfg *config.Config, log *logger.Logger, opts ...xhttp.ClientOption) *HTTPPredictor {
	pc := cfg.Predictor
	p := &HTTPPredictor{
		base:     NewHTTPServiceBase(pc.URL, pc.Timeout, opts...),
		attempts: pc.RetryAttempts,
		log:      log,
		now:      time.Now,
	}

	threshold := pc.Breaker.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	st := gobreaker.Settings{
		Name:        "market-predictor",
		MaxRequests: 1,
		Interval:    pc.Breaker.Interval,
		Timeout:     pc.Breaker.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= threshold
		},
		// caller cancellations say nothing about the model service
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			svcmetrics.PredictorBreakerState.Set(float64(to))
			log.Warn("predictor breaker state changed",
				logger.String("breaker", name),
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	}
	p.breaker = gobreaker.NewCircuitBreaker(st)
	return p
}

func (p *HTTPPredictor) Predict(ctx context.Context) (models.MarketAssessment, error) {
	start := time.Now()
	res, err := p.breaker.Execute(func() (interface{}, error) {
		var m models.MarketAssessment
		if err := p.base.GetJSONWithRetry(ctx, riskAssessmentPath, &m, p.attempts); err != nil {
			return nil, err
		}
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("malformed assessment: %w", err)
		}
		return m, nil
	})
	if err != nil {
		outcome := "error"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = "rejected"
		}
		svcmetrics.PredictorLatency.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
		return models.MarketAssessment{}, fmt.Errorf("%w: %w", domsvc.ErrUpstreamPredictor, err)
	}
	svcmetrics.PredictorLatency.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	m := res.(models.MarketAssessment)
	if m.Timestamp == 0 {
		m.Timestamp = p.now().Unix()
	}
	return m, nil
}

type healthResponse struct {
	Status       string `json:"status"`
	ModelVersion string `json:"model_version"`
}

// Health bypasses the breaker so that health checks keep reporting while it is open.
func (p *HTTPPredictor) Health(ctx context.Context) (models.HealthStatus, error) {
	var hr healthResponse
	if err := p.base.GetJSON(ctx, healthPath, &hr); err != nil {
		return models.HealthStatus{}, fmt.Errorf("%w: %w", domsvc.ErrUpstreamPredictor, err)
	}
	return models.HealthStatus{Status: hr.Status, ModelVersion: hr.ModelVersion, Timestamp: p.now().Unix()}, nil
}

// BreakerState exposes the breaker state for diagnostics.
func (p *HTTPPredictor) BreakerState() gobreaker.State {
	return p.breaker.State()
}

var (
	_ domsvc.MarketPredictor = (*HTTPPredictor)(nil)
	_ domsvc.HealthChecker   = (*HTTPPredictor)(nil)
)
