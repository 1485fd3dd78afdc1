package scoring

import (
	"Veritas/internal/domain/models"
	"Veritas/pkg/config"
)

// ApplyScenario adjusts a base prediction. Adjusted scores stay within [0,1].
func ApplyScenario(m models.MarketAssessment, sc models.Scenario, cfg config.ScenarioConfig) models.MarketAssessment {
	var mul config.ScenarioMultipliers
	switch sc {
	case models.ScenarioStress:
		mul = cfg.Stress
	case models.ScenarioBull:
		mul = cfg.Bull
	default:
		return m
	}
	m.RiskScore = clamp01(m.RiskScore * mul.Risk)
	m.LiquidityScore = clamp01(m.LiquidityScore * mul.Liquidity)
	return m
}
