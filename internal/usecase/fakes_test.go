package usecase

import (
	"context"
	"sync"

	"Veritas/internal/domain/models"
	"Veritas/pkg/config"
)

type fakePredictor struct {
	mu    sync.Mutex
	m     models.MarketAssessment
	err   error
	calls int
}

func (f *fakePredictor) Predict(context.Context) (models.MarketAssessment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.m, f.err
}

func (f *fakePredictor) Health(context.Context) (models.HealthStatus, error) {
	if f.err != nil {
		return models.HealthStatus{}, f.err
	}
	return models.HealthStatus{Status: "healthy", ModelVersion: f.m.ModelVersion, Timestamp: 1}, nil
}

func (f *fakePredictor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePublisher struct {
	mu     sync.Mutex
	events []models.VerdictEvent
	err    error
}

func (f *fakePublisher) PublishVerdict(_ context.Context, ev models.VerdictEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
	return f.err
}

func (f *fakePublisher) Events() []models.VerdictEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.VerdictEvent(nil), f.events...)
}

type fakeMetrics struct {
	mu          sync.Mutex
	evaluations map[string]int
	errors      map[string]int
	market      [3]float64
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{evaluations: map[string]int{}, errors: map[string]int{}}
}

func (f *fakeMetrics) RecordEvaluation(kind, tier string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evaluations[kind+"/"+tier]++
}

func (f *fakeMetrics) RecordCompositeScore(string, float64) {}

func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[kind]++
}

func (f *fakeMetrics) RecordLatency(string, float64) {}

func (f *fakeMetrics) RecordMarket(risk, liquidity, confidence float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.market = [3]float64{risk, liquidity, confidence}
}

func newService(p *fakePredictor, pub *fakePublisher, m *fakeMetrics) *RiskService {
	cfg := config.Default()
	return NewRiskService(cfg, p, p, pub, m, nil)
}

func marketOf(risk, liquidity, confidence float64) models.MarketAssessment {
	return models.MarketAssessment{RiskScore: risk, LiquidityScore: liquidity, Confidence: confidence, ModelVersion: "v1", Timestamp: 1_700_000_000}
}
