package models

import "fmt"

// MarketAssessment is one market-wide prediction from the model service.
// Scores are in [0,1]. It is produced per evaluation and never cached.
type MarketAssessment struct {
	RiskScore      float64            `json:"risk_score"`
	LiquidityScore float64            `json:"liquidity_score"`
	Confidence     float64            `json:"confidence"`
	ModelVersion   string             `json:"model_version,omitempty"`
	Timestamp      int64              `json:"timestamp"`
	Metadata       map[string]float64 `json:"metadata,omitempty"`
}

// Validate rejects scores outside [0,1], including NaN.
func (m MarketAssessment) Validate() error {
	for name, v := range map[string]float64{
		"risk_score":      m.RiskScore,
		"liquidity_score": m.LiquidityScore,
		"confidence":      m.Confidence,
	} {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("%s out of range [0,1]: %v", name, v)
		}
	}
	return nil
}

type Scenario string

const (
	ScenarioBase   Scenario = "base"
	ScenarioStress Scenario = "stress"
	ScenarioBull   Scenario = "bull"
)

func ParseScenario(s string) (Scenario, bool) {
	switch sc := Scenario(s); sc {
	case ScenarioBase, ScenarioStress, ScenarioBull:
		return sc, true
	}
	return "", false
}

type ScenarioPrediction struct {
	Scenario   Scenario         `json:"scenario"`
	Prediction MarketAssessment `json:"prediction"`
}

type HealthStatus struct {
	Status       string `json:"status"`
	ModelVersion string `json:"model_version"`
	Timestamp    int64  `json:"timestamp"`
}
