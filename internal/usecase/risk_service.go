package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Veritas/internal/domain/models"
	domrepo "Veritas/internal/domain/repository"
	domsvc "Veritas/internal/domain/service"
	"Veritas/internal/services/scoring"
	"Veritas/pkg/config"
	xlogger "Veritas/pkg/logger"

	"github.com/google/uuid"
)

// RiskService runs one evaluation per call: it fetches a fresh market
// assessment, hands it to the evaluator, records metrics and publishes the
// resulting verdict event.
type RiskService struct {
	predictor domsvc.MarketPredictor
	health    domsvc.HealthChecker
	publisher domsvc.VerdictPublisher
	metrics   domrepo.Metrics
	log       *xlogger.Logger

	leverage  *scoring.LeverageEvaluator
	kyc       *scoring.KYCEvaluator
	nav       *scoring.NAVForecaster
	scenarios config.ScenarioConfig

	timeout time.Duration
	now     func() time.Time
}

// NewRiskService wires evaluators from cfg.Risk. publisher may be nil.
func NewRiskService(
	cfg *config.Config,
	predictor domsvc.MarketPredictor,
	health domsvc.HealthChecker,
	publisher domsvc.VerdictPublisher,
	metrics domrepo.Metrics,
	log *xlogger.Logger,
	opts ...scoring.Option,
) *RiskService {
	if log == nil {
		log = xlogger.Nop()
	}
	return &RiskService{
		predictor: predictor,
		health:    health,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		leverage:  scoring.NewLeverageEvaluator(cfg.Risk.Leverage, opts...),
		kyc:       scoring.NewKYCEvaluator(cfg.Risk.KYC, opts...),
		nav:       scoring.NewNAVForecaster(cfg.Risk.NAV, opts...),
		scenarios: cfg.Risk.Scenarios,
		timeout:   cfg.Predictor.Timeout,
		now:       time.Now,
	}
}

// Predict returns a fresh market assessment.
func (s *RiskService) Predict(ctx context.Context) (models.MarketAssessment, error) {
	start := s.now()
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	m, err := s.predictor.Predict(ctx)
	s.metrics.RecordLatency("predict", time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError("predictor")
		if !errors.Is(err, domsvc.ErrUpstreamPredictor) {
			err = fmt.Errorf("%w: %w", domsvc.ErrUpstreamPredictor, err)
		}
		s.log.Warn("market prediction failed", xlogger.Error(err), requestID(ctx))
		return models.MarketAssessment{}, err
	}
	s.metrics.RecordMarket(m.RiskScore, m.LiquidityScore, m.Confidence)
	return m, nil
}

// Scenario fetches a base prediction and applies the named adjustment.
// An unknown name is rejected before the predictor is called.
func (s *RiskService) Scenario(ctx context.Context, name string) (models.ScenarioPrediction, error) {
	sc, ok := models.ParseScenario(name)
	if !ok {
		s.metrics.RecordError("scenario")
		return models.ScenarioPrediction{}, &scoring.InputError{Field: "scenario", Reason: fmt.Sprintf("unknown scenario %q", name)}
	}
	m, err := s.Predict(ctx)
	if err != nil {
		return models.ScenarioPrediction{}, err
	}
	return models.ScenarioPrediction{Scenario: sc, Prediction: scoring.ApplyScenario(m, sc, s.scenarios)}, nil
}

// Health reports the model service status.
func (s *RiskService) Health(ctx context.Context) (models.HealthStatus, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	h, err := s.health.Health(ctx)
	if err != nil {
		if !errors.Is(err, domsvc.ErrUpstreamPredictor) {
			err = fmt.Errorf("%w: %w", domsvc.ErrUpstreamPredictor, err)
		}
		return models.HealthStatus{}, err
	}
	return h, nil
}

func (s *RiskService) AssessLeverage(ctx context.Context, pos models.PositionSnapshot) (models.LeverageVerdict, error) {
	start := s.now()
	m, err := s.Predict(ctx)
	if err != nil {
		return models.LeverageVerdict{}, err
	}
	v, err := s.leverage.Assess(pos, m)
	if err != nil {
		return models.LeverageVerdict{}, s.fail(ctx, models.KindLeverage, pos, err)
	}
	s.record(models.KindLeverage, string(v.Tier), v.CompositeScore, start)
	s.publish(ctx, models.KindLeverage, v, &m)
	return v, nil
}

// AssessKYC does not consult the market predictor.
func (s *RiskService) AssessKYC(ctx context.Context, inv models.InvestorSnapshot) (models.KYCVerdict, error) {
	start := s.now()
	v, err := s.kyc.Assess(inv)
	if err != nil {
		return models.KYCVerdict{}, s.fail(ctx, models.KindKYC, inv, err)
	}
	s.record(models.KindKYC, string(v.Tier), v.CompositeScore, start)
	s.publish(ctx, models.KindKYC, v, nil)
	return v, nil
}

func (s *RiskService) ForecastNAV(ctx context.Context, pool models.PoolSnapshot) (models.NAVVerdict, error) {
	start := s.now()
	m, err := s.Predict(ctx)
	if err != nil {
		return models.NAVVerdict{}, err
	}
	v, err := s.nav.Forecast(pool, m)
	if err != nil {
		return models.NAVVerdict{}, s.fail(ctx, models.KindNAV, pool, err)
	}
	// NAV has no tier; the label carries the update decision instead.
	label := "hold"
	if v.UpdateRecommended {
		label = "update"
	}
	s.record(models.KindNAV, label, v.Confidence, start)
	s.publish(ctx, models.KindNAV, v, &m)
	return v, nil
}

// fail counts the error and logs anything that is not a caller mistake.
func (s *RiskService) fail(ctx context.Context, kind models.EvaluationKind, snapshot interface{}, err error) error {
	s.metrics.RecordError(string(kind))
	if errors.Is(err, scoring.ErrInvalidInput) || errors.Is(err, scoring.ErrDivision) {
		s.log.Debug("evaluation rejected", xlogger.String("evaluator", string(kind)), xlogger.Error(err), requestID(ctx))
		return err
	}
	s.log.Error("evaluation failed",
		xlogger.String("evaluator", string(kind)),
		xlogger.Any("snapshot", snapshot),
		xlogger.Error(err),
		requestID(ctx),
	)
	return err
}

func (s *RiskService) record(kind models.EvaluationKind, tier string, score float64, start time.Time) {
	s.metrics.RecordEvaluation(string(kind), tier)
	s.metrics.RecordCompositeScore(string(kind), score)
	s.metrics.RecordLatency("evaluate_"+string(kind), time.Since(start).Seconds())
}

// publish is best effort: the verdict is returned to the caller even when a sink fails.
func (s *RiskService) publish(ctx context.Context, kind models.EvaluationKind, verdict interface{}, m *models.MarketAssessment) {
	if s.publisher == nil {
		return
	}
	ev := models.VerdictEvent{
		ID:        uuid.NewString(),
		RequestID: xlogger.RequestIDFromContext(ctx),
		Kind:      kind,
		Verdict:   verdict,
		Market:    m,
		EmittedAt: s.now().Unix(),
	}
	if err := s.publisher.PublishVerdict(ctx, ev); err != nil {
		s.metrics.RecordError("publish")
		s.log.Warn("verdict publish failed", xlogger.String("evaluator", string(kind)), xlogger.Error(err), requestID(ctx))
	}
}

func (s *RiskService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func requestID(ctx context.Context) xlogger.Field {
	return xlogger.String("request_id", xlogger.RequestIDFromContext(ctx))
}
