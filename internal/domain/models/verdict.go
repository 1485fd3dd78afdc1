package models

// Tier is an ordinal risk class derived from a composite score.
type Tier string

const (
	TierLow      Tier = "LOW"
	TierMedium   Tier = "MEDIUM"
	TierHigh     Tier = "HIGH"
	TierCritical Tier = "CRITICAL"

	TierLowRisk    Tier = "LOW_RISK"
	TierMediumRisk Tier = "MEDIUM_RISK"
	TierHighRisk   Tier = "HIGH_RISK"
)

var tierRank = map[Tier]int{
	TierLow:        0,
	TierMedium:     1,
	TierHigh:       2,
	TierCritical:   3,
	TierLowRisk:    0,
	TierMediumRisk: 1,
	TierHighRisk:   2,
}

// Rank orders tiers within one evaluator; higher is riskier. Unknown tiers rank -1.
func (t Tier) Rank() int {
	if r, ok := tierRank[t]; ok {
		return r
	}
	return -1
}

// RiskVerdict is the common output of the classifying evaluators.
type RiskVerdict struct {
	CompositeScore  float64            `json:"composite_score"`
	Tier            Tier               `json:"tier"`
	Factors         map[string]float64 `json:"factors"`
	Recommendations []string           `json:"recommendations"`
	Timestamp       int64              `json:"timestamp"`
}

type LeverageVerdict struct {
	RiskVerdict
	ActionRequired bool    `json:"action_required"`
	LTV            float64 `json:"ltv"`
	// ExposureRatio is asset value over borrowed amount, reported unclamped.
	ExposureRatio float64 `json:"exposure_ratio"`
}

type KYCVerdict struct {
	RiskVerdict
	VerificationRequired bool `json:"verification_required"`
	RecommendedTier      int  `json:"recommended_tier"`
}

// NAVVerdict is a continuous forecast; it carries no tier.
type NAVVerdict struct {
	PredictedNAV           float64            `json:"predicted_nav"`
	Confidence             float64            `json:"confidence"`
	ExpectedCollectionRate float64            `json:"expected_collection_rate"`
	ExpectedCollections    float64            `json:"expected_collections"`
	RiskAdjustedYield      float64            `json:"risk_adjusted_yield"`
	PoolHealthScore        float64            `json:"pool_health_score"`
	Factors                map[string]float64 `json:"factors"`
	// NAVUnits is PredictedNAV in on-chain fixed-point units, truncated.
	NAVUnits          string `json:"nav_units"`
	UpdateRecommended bool   `json:"update_recommended"`
	Timestamp         int64  `json:"timestamp"`
}
