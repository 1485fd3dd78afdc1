package config

import (
	"fmt"
	"math"

	"github.com/creasty/defaults"
)

// weightTolerance bounds the drift allowed when a weight set is summed.
const weightTolerance = 1e-9

// RiskConfig holds every threshold and weight used by the evaluators.
// Defaults reproduce the reference verdicts exactly. Defaults are applied
// before decoding, so a field written explicitly in YAML, 0 included, is kept.
type RiskConfig struct {
	Leverage  LeverageConfig `yaml:"leverage"`
	KYC       KYCConfig      `yaml:"kyc"`
	NAV       NAVConfig      `yaml:"nav"`
	Scenarios ScenarioConfig `yaml:"scenarios"`
}

type LeverageConfig struct {
	// LTVSaturation is the loan-to-value at which ltv_risk reaches 1.
	LTVSaturation float64 `yaml:"ltv_saturation" default:"0.7"`
	// SafeHealthFactor is the health factor at which health_factor_risk reaches 0.
	SafeHealthFactor float64 `yaml:"safe_health_factor" default:"1.5"`

	CriticalAbove float64 `yaml:"critical_above" default:"0.8"`
	HighAbove     float64 `yaml:"high_above" default:"0.6"`
	MediumAbove   float64 `yaml:"medium_above" default:"0.4"`

	MaxLTV          float64 `yaml:"max_ltv" default:"0.65"`
	MinHealthFactor float64 `yaml:"min_health_factor" default:"1.3"`
	MinLiquidity    float64 `yaml:"min_liquidity" default:"0.3"`

	Weights LeverageWeights `yaml:"weights"`
}

type LeverageWeights struct {
	LTV          float64 `yaml:"ltv" default:"0.30"`
	HealthFactor float64 `yaml:"health_factor" default:"0.30"`
	Market       float64 `yaml:"market" default:"0.25"`
	Liquidity    float64 `yaml:"liquidity" default:"0.15"`
}

type KYCConfig struct {
	AmountSaturation   float64 `yaml:"amount_saturation" default:"1000000"`
	VelocitySaturation float64 `yaml:"velocity_saturation" default:"100"`
	WalletMaturityDays float64 `yaml:"wallet_maturity_days" default:"365"`

	// LowRiskJurisdictions are matched exactly, case-sensitive.
	LowRiskJurisdictions  []string `yaml:"low_risk_jurisdictions" default:"[\"US\",\"EU\",\"UK\"]"`
	LowJurisdictionRisk   float64  `yaml:"low_jurisdiction_risk" default:"0.1"`
	OtherJurisdictionRisk float64  `yaml:"other_jurisdiction_risk" default:"0.3"`

	HighAbove   float64 `yaml:"high_above" default:"0.7"`
	MediumAbove float64 `yaml:"medium_above" default:"0.4"`

	LargeInvestment float64 `yaml:"large_investment" default:"500000"`
	NewWalletDays   float64 `yaml:"new_wallet_days" default:"30"`
	HighVelocity    float64 `yaml:"high_velocity" default:"50"`

	// Requested tiers are capped at ElevatedTierCap above TierCapAbove and at StandardTierCap otherwise.
	TierCapAbove    float64 `yaml:"tier_cap_above" default:"0.5"`
	ElevatedTierCap int     `yaml:"elevated_tier_cap" default:"2"`
	StandardTierCap int     `yaml:"standard_tier_cap" default:"4"`

	Weights KYCWeights `yaml:"weights"`
}

type KYCWeights struct {
	Amount       float64 `yaml:"amount" default:"0.3"`
	Velocity     float64 `yaml:"velocity" default:"0.2"`
	Wallet       float64 `yaml:"wallet" default:"0.3"`
	Jurisdiction float64 `yaml:"jurisdiction" default:"0.2"`
}

type NAVConfig struct {
	MarketRiskHaircut         float64 `yaml:"market_risk_haircut" default:"0.3"`
	YieldRiskHaircut          float64 `yaml:"yield_risk_haircut" default:"0.5"`
	DiversificationSaturation float64 `yaml:"diversification_saturation" default:"100"`
	MaturitySaturationDays    float64 `yaml:"maturity_saturation_days" default:"180"`
	// UpdateConfidence is the confidence a forecast must exceed before an on-chain NAV update is advised.
	UpdateConfidence float64 `yaml:"update_confidence" default:"0.7"`
	UnitDecimals     int32   `yaml:"unit_decimals" default:"6"`

	Weights NAVWeights `yaml:"weights"`
}

type NAVWeights struct {
	Diversification float64 `yaml:"diversification" default:"0.4"`
	Maturity        float64 `yaml:"maturity" default:"0.3"`
	Market          float64 `yaml:"market" default:"0.3"`
}

type ScenarioConfig struct {
	Stress ScenarioMultipliers `yaml:"stress"`
	Bull   ScenarioMultipliers `yaml:"bull"`
}

type ScenarioMultipliers struct {
	Risk      float64 `yaml:"risk"`
	Liquidity float64 `yaml:"liquidity"`
}

// SetDefaults fills scenario multipliers, which differ per scenario and so
// cannot be expressed as tags on the shared type.
func (s *ScenarioConfig) SetDefaults() {
	if s.Stress.Risk == 0 {
		s.Stress.Risk = 1.5
	}
	if s.Stress.Liquidity == 0 {
		s.Stress.Liquidity = 0.5
	}
	if s.Bull.Risk == 0 {
		s.Bull.Risk = 0.7
	}
	if s.Bull.Liquidity == 0 {
		s.Bull.Liquidity = 1.2
	}
}

// DefaultRisk returns the reference risk configuration.
func DefaultRisk() RiskConfig {
	var rc RiskConfig
	_ = defaults.Set(&rc)
	return rc
}

// Validate checks weight sums, band ordering and saturation points.
func (r RiskConfig) Validate() error {
	lw := r.Leverage.Weights
	if err := checkWeights("leverage", lw.LTV, lw.HealthFactor, lw.Market, lw.Liquidity); err != nil {
		return err
	}
	kw := r.KYC.Weights
	if err := checkWeights("kyc", kw.Amount, kw.Velocity, kw.Wallet, kw.Jurisdiction); err != nil {
		return err
	}
	nw := r.NAV.Weights
	if err := checkWeights("nav", nw.Diversification, nw.Maturity, nw.Market); err != nil {
		return err
	}

	l := r.Leverage
	if !(l.CriticalAbove > l.HighAbove && l.HighAbove > l.MediumAbove) {
		return fmt.Errorf("leverage bands must descend: critical %v > high %v > medium %v", l.CriticalAbove, l.HighAbove, l.MediumAbove)
	}
	if r.KYC.HighAbove <= r.KYC.MediumAbove {
		return fmt.Errorf("kyc bands must descend: high %v > medium %v", r.KYC.HighAbove, r.KYC.MediumAbove)
	}

	for name, v := range map[string]float64{
		"leverage.ltv_saturation":        l.LTVSaturation,
		"leverage.safe_health_factor":    l.SafeHealthFactor,
		"kyc.amount_saturation":          r.KYC.AmountSaturation,
		"kyc.velocity_saturation":        r.KYC.VelocitySaturation,
		"kyc.wallet_maturity_days":       r.KYC.WalletMaturityDays,
		"nav.diversification_saturation": r.NAV.DiversificationSaturation,
		"nav.maturity_saturation_days":   r.NAV.MaturitySaturationDays,
	} {
		if !(v > 0) {
			return fmt.Errorf("%s must be positive, got %v", name, v)
		}
	}
	if r.NAV.UnitDecimals < 0 || r.NAV.UnitDecimals > 18 {
		return fmt.Errorf("nav.unit_decimals must be within [0,18], got %d", r.NAV.UnitDecimals)
	}
	for name, m := range map[string]ScenarioMultipliers{"stress": r.Scenarios.Stress, "bull": r.Scenarios.Bull} {
		if m.Risk < 0 || m.Liquidity < 0 {
			return fmt.Errorf("scenario %s multipliers must be non-negative", name)
		}
	}
	return nil
}

func checkWeights(evaluator string, ws ...float64) error {
	var sum float64
	for _, w := range ws {
		if w < 0 {
			return fmt.Errorf("%s weights must be non-negative, got %v", evaluator, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%s weights must sum to 1, got %v", evaluator, sum)
	}
	return nil
}
