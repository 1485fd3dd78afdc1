package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"Veritas/internal/domain/models"
	"Veritas/pkg/config"
)

const (
	FactorDiversification  = "diversification_score"
	FactorMaturityScore    = "maturity_score"
	FactorMarketConfidence = "market_confidence"
	FactorMaturityRisk     = "maturity_risk"
)

type navInput struct {
	pool   models.PoolSnapshot
	market models.MarketAssessment
}

// NAVForecaster predicts per-unit NAV and yield of an invoice pool.
// Forecast confidence is a weighted composite with no tier bands.
type NAVForecaster struct {
	cfg    config.NAVConfig
	scorer *Scorer[navInput]
	now    func() time.Time
}

func NewNAVForecaster(cfg config.NAVConfig, opts ...Option) *NAVForecaster {
	o := buildOptions(opts)
	factors := func(in navInput) map[string]float64 {
		maturityRisk := clamp01(in.pool.WeightedMaturity / cfg.MaturitySaturationDays)
		return map[string]float64{
			FactorDiversification:  float64(in.pool.NumberOfInvoices) / cfg.DiversificationSaturation,
			FactorMaturityScore:    1 - maturityRisk,
			FactorMarketConfidence: in.market.Confidence,
			FactorMaturityRisk:     maturityRisk,
		}
	}
	weights := []Weight{
		{FactorDiversification, cfg.Weights.Diversification},
		{FactorMaturityScore, cfg.Weights.Maturity},
		{FactorMarketConfidence, cfg.Weights.Market},
	}
	return &NAVForecaster{cfg: cfg, scorer: NewScorer(factors, weights, ThresholdTable{}), now: o.now}
}

func (f *NAVForecaster) Forecast(pool models.PoolSnapshot, market models.MarketAssessment) (models.NAVVerdict, error) {
	if err := validatePool(pool); err != nil {
		return models.NAVVerdict{}, fmt.Errorf("nav: %w", err)
	}
	if err := validateMarket(market); err != nil {
		return models.NAVVerdict{}, fmt.Errorf("nav: %w", err)
	}
	if pool.TotalSupply == 0 {
		return models.NAVVerdict{}, fmt.Errorf("nav: predicted_nav over total_supply: %w", ErrDivision)
	}

	baseRate := 1 - pool.CurrentDefaultRate
	adjustedRate := baseRate * (1 - market.RiskScore*f.cfg.MarketRiskHaircut)
	collections := pool.TotalFaceValue * adjustedRate
	nav := collections / pool.TotalSupply
	if math.IsInf(nav, 0) || math.IsNaN(nav) {
		return models.NAVVerdict{}, fmt.Errorf("nav: predicted_nav over total_supply=%v is not finite: %w", pool.TotalSupply, ErrDivision)
	}
	units, err := ToUnits(nav, f.cfg.UnitDecimals)
	if err != nil {
		return models.NAVVerdict{}, fmt.Errorf("nav: %w", err)
	}

	res := f.scorer.Score(navInput{pool: pool, market: market})

	return models.NAVVerdict{
		PredictedNAV:           nav,
		Confidence:             res.Composite,
		ExpectedCollectionRate: adjustedRate,
		ExpectedCollections:    collections,
		RiskAdjustedYield:      pool.ExpectedYield * (1 - market.RiskScore*f.cfg.YieldRiskHaircut),
		PoolHealthScore:        1 - market.RiskScore,
		Factors:                res.Factors,
		NAVUnits:               units,
		UpdateRecommended:      res.Composite > f.cfg.UpdateConfidence,
		Timestamp:              f.now().Unix(),
	}, nil
}

// ToUnits scales v to a fixed-point integer with the given decimals, truncating toward zero.
func ToUnits(v float64, decimals int32) (string, error) {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return "", &InputError{Field: "predicted_nav", Reason: fmt.Sprintf("cannot express %v in units", v)}
	}
	return decimal.NewFromFloat(v).Shift(decimals).Truncate(0).String(), nil
}

func validatePool(p models.PoolSnapshot) error {
	if p.NumberOfInvoices < 0 {
		return &InputError{Field: "number_of_invoices", Reason: fmt.Sprintf("must be >= 0, got %d", p.NumberOfInvoices)}
	}
	for _, fld := range []struct {
		name string
		v    float64
	}{
		{"total_face_value", p.TotalFaceValue},
		{"weighted_maturity", p.WeightedMaturity},
		{"current_default_rate", p.CurrentDefaultRate},
		{"total_supply", p.TotalSupply},
	} {
		if err := requireNonNegative(fld.name, fld.v); err != nil {
			return err
		}
	}
	if p.CurrentDefaultRate > 1 {
		return &InputError{Field: "current_default_rate", Reason: fmt.Sprintf("must be <= 1, got %v", p.CurrentDefaultRate)}
	}
	if err := requireFinite("expected_yield", p.ExpectedYield); err != nil {
		return err
	}
	return requireFinite("realized_yield", p.RealizedYield)
}
