package service

import (
	"context"
	"errors"

	"Veritas/internal/domain/models"
)

// ErrUpstreamPredictor marks a failure of the market model service.
var ErrUpstreamPredictor = errors.New("upstream predictor error")

// MarketPredictor returns a fresh market assessment per call.
// Implementations may return different results on consecutive calls.
type MarketPredictor interface {
	Predict(ctx context.Context) (models.MarketAssessment, error)
}

// HealthChecker reports the model service status.
type HealthChecker interface {
	Health(ctx context.Context) (models.HealthStatus, error)
}

// VerdictPublisher fans a verdict event out to interested sinks.
type VerdictPublisher interface {
	PublishVerdict(ctx context.Context, ev models.VerdictEvent) error
}
