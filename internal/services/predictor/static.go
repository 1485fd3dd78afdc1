package predictor

import (
	"context"
	"time"

	"Veritas/internal/domain/models"
	domsvc "Veritas/internal/domain/service"
)

const staticModelVersion = "static"

// StaticPredictor serves one fixed assessment. Used by the CLI, tests and
// deployments without a model service.
type StaticPredictor struct {
	m   models.MarketAssessment
	now func() time.Time
}

func NewStaticPredictor(risk, liquidity, confidence float64) *StaticPredictor {
	return &StaticPredictor{
		m: models.MarketAssessment{
			RiskScore:      risk,
			LiquidityScore: liquidity,
			Confidence:     confidence,
			ModelVersion:   staticModelVersion,
		},
		now: time.Now,
	}
}

func (s *StaticPredictor) Predict(ctx context.Context) (models.MarketAssessment, error) {
	if err := ctx.Err(); err != nil {
		return models.MarketAssessment{}, err
	}
	m := s.m
	m.Timestamp = s.now().Unix()
	return m, nil
}

func (s *StaticPredictor) Health(_ context.Context) (models.HealthStatus, error) {
	return models.HealthStatus{Status: "healthy", ModelVersion: staticModelVersion, Timestamp: s.now().Unix()}, nil
}

var (
	_ domsvc.MarketPredictor = (*StaticPredictor)(nil)
	_ domsvc.HealthChecker   = (*StaticPredictor)(nil)
)
