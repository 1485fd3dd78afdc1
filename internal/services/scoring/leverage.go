package scoring

import (
	"fmt"
	"time"

	"Veritas/internal/domain/models"
	"Veritas/pkg/config"
)

const (
	FactorLTVRisk          = "ltv_risk"
	FactorHealthFactorRisk = "health_factor_risk"
	FactorMarketRisk       = "market_risk"
	FactorLiquidityRisk    = "liquidity_risk"

	RecReduceLeverage      = "REDUCE_LEVERAGE"
	RecEmergencyDeleverage = "EMERGENCY_DELEVERAGE"
	RecPauseNewPositions   = "PAUSE_NEW_POSITIONS"
)

type leverageInput struct {
	ltv    float64
	hf     float64
	market models.MarketAssessment
}

// LeverageEvaluator scores the health of a leveraged position.
type LeverageEvaluator struct {
	cfg    config.LeverageConfig
	scorer *Scorer[leverageInput]
	now    func() time.Time
}

func NewLeverageEvaluator(cfg config.LeverageConfig, opts ...Option) *LeverageEvaluator {
	o := buildOptions(opts)
	factors := func(in leverageInput) map[string]float64 {
		return map[string]float64{
			FactorLTVRisk:          in.ltv / cfg.LTVSaturation,
			FactorHealthFactorRisk: 1 - in.hf/cfg.SafeHealthFactor,
			FactorMarketRisk:       in.market.RiskScore,
			FactorLiquidityRisk:    1 - in.market.LiquidityScore,
		}
	}
	weights := []Weight{
		{FactorLTVRisk, cfg.Weights.LTV},
		{FactorHealthFactorRisk, cfg.Weights.HealthFactor},
		{FactorMarketRisk, cfg.Weights.Market},
		{FactorLiquidityRisk, cfg.Weights.Liquidity},
	}
	table := ThresholdTable{
		Bands: []Band{
			{cfg.CriticalAbove, models.TierCritical},
			{cfg.HighAbove, models.TierHigh},
			{cfg.MediumAbove, models.TierMedium},
		},
		Floor: models.TierLow,
	}
	return &LeverageEvaluator{cfg: cfg, scorer: NewScorer(factors, weights, table), now: o.now}
}

func (e *LeverageEvaluator) Assess(pos models.PositionSnapshot, market models.MarketAssessment) (models.LeverageVerdict, error) {
	if err := validatePosition(pos); err != nil {
		return models.LeverageVerdict{}, fmt.Errorf("leverage: %w", err)
	}
	if err := validateMarket(market); err != nil {
		return models.LeverageVerdict{}, fmt.Errorf("leverage: %w", err)
	}

	ltv, err := ratio("ltv", "total_collateral", pos.TotalBorrowed, pos.TotalCollateral)
	if err != nil {
		return models.LeverageVerdict{}, fmt.Errorf("leverage: %w", err)
	}
	exposure, err := ratio("exposure_ratio", "total_borrowed", pos.AssetValue, pos.TotalBorrowed)
	if err != nil {
		return models.LeverageVerdict{}, fmt.Errorf("leverage: %w", err)
	}
	res := e.scorer.Score(leverageInput{ltv: ltv, hf: pos.CurrentHealthFactor, market: market})

	recs := make([]string, 0, 3)
	if ltv > e.cfg.MaxLTV {
		recs = append(recs, RecReduceLeverage)
	}
	if pos.CurrentHealthFactor < e.cfg.MinHealthFactor {
		recs = append(recs, RecEmergencyDeleverage)
	}
	if market.LiquidityScore < e.cfg.MinLiquidity {
		recs = append(recs, RecPauseNewPositions)
	}

	return models.LeverageVerdict{
		RiskVerdict: models.RiskVerdict{
			CompositeScore:  res.Composite,
			Tier:            res.Tier,
			Factors:         res.Factors,
			Recommendations: recs,
			Timestamp:       e.now().Unix(),
		},
		ActionRequired: res.Tier == models.TierCritical || res.Tier == models.TierHigh,
		LTV:            ltv,
		ExposureRatio:  exposure,
	}, nil
}

func validatePosition(p models.PositionSnapshot) error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"total_collateral", p.TotalCollateral},
		{"total_borrowed", p.TotalBorrowed},
		{"current_health_factor", p.CurrentHealthFactor},
		{"asset_value", p.AssetValue},
	} {
		if err := requireNonNegative(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}
