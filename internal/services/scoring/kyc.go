package scoring

import (
	"fmt"
	"time"

	"Veritas/internal/domain/models"
	"Veritas/pkg/config"
)

const (
	FactorAmountRisk       = "amount_risk"
	FactorVelocityRisk     = "velocity_risk"
	FactorWalletRisk       = "wallet_risk"
	FactorJurisdictionRisk = "jurisdiction_risk"

	FlagLargeInvestment = "LARGE_INVESTMENT"
	FlagNewWallet       = "NEW_WALLET"
	FlagHighVelocity    = "HIGH_VELOCITY"
)

// KYCEvaluator classifies an investor. It does not consume market input.
type KYCEvaluator struct {
	cfg          config.KYCConfig
	scorer       *Scorer[models.InvestorSnapshot]
	lowRiskJuris map[string]struct{}
	now          func() time.Time
}

func NewKYCEvaluator(cfg config.KYCConfig, opts ...Option) *KYCEvaluator {
	o := buildOptions(opts)
	e := &KYCEvaluator{
		cfg:          cfg,
		lowRiskJuris: make(map[string]struct{}, len(cfg.LowRiskJurisdictions)),
		now:          o.now,
	}
	for _, j := range cfg.LowRiskJurisdictions {
		e.lowRiskJuris[j] = struct{}{}
	}

	factors := func(in models.InvestorSnapshot) map[string]float64 {
		return map[string]float64{
			FactorAmountRisk:       in.InvestmentAmount / cfg.AmountSaturation,
			FactorVelocityRisk:     in.TransactionFrequency / cfg.VelocitySaturation,
			FactorWalletRisk:       1 - in.WalletAgeDays/cfg.WalletMaturityDays,
			FactorJurisdictionRisk: e.jurisdictionRisk(in.Jurisdiction),
		}
	}
	weights := []Weight{
		{FactorAmountRisk, cfg.Weights.Amount},
		{FactorVelocityRisk, cfg.Weights.Velocity},
		{FactorWalletRisk, cfg.Weights.Wallet},
		{FactorJurisdictionRisk, cfg.Weights.Jurisdiction},
	}
	table := ThresholdTable{
		Bands: []Band{
			{cfg.HighAbove, models.TierHighRisk},
			{cfg.MediumAbove, models.TierMediumRisk},
		},
		Floor: models.TierLowRisk,
	}
	e.scorer = NewScorer(factors, weights, table)
	return e
}

func (e *KYCEvaluator) jurisdictionRisk(j string) float64 {
	if _, ok := e.lowRiskJuris[j]; ok {
		return e.cfg.LowJurisdictionRisk
	}
	return e.cfg.OtherJurisdictionRisk
}

// Assess scores the investor. Flags are returned as the verdict's recommendations.
func (e *KYCEvaluator) Assess(inv models.InvestorSnapshot) (models.KYCVerdict, error) {
	if err := validateInvestor(inv); err != nil {
		return models.KYCVerdict{}, fmt.Errorf("kyc: %w", err)
	}

	res := e.scorer.Score(inv)

	flags := make([]string, 0, 3)
	if inv.InvestmentAmount > e.cfg.LargeInvestment {
		flags = append(flags, FlagLargeInvestment)
	}
	if inv.WalletAgeDays < e.cfg.NewWalletDays {
		flags = append(flags, FlagNewWallet)
	}
	if inv.TransactionFrequency > e.cfg.HighVelocity {
		flags = append(flags, FlagHighVelocity)
	}

	tierCap := e.cfg.StandardTierCap
	if res.Composite > e.cfg.TierCapAbove {
		tierCap = e.cfg.ElevatedTierCap
	}

	return models.KYCVerdict{
		RiskVerdict: models.RiskVerdict{
			CompositeScore:  res.Composite,
			Tier:            res.Tier,
			Factors:         res.Factors,
			Recommendations: flags,
			Timestamp:       e.now().Unix(),
		},
		VerificationRequired: res.Tier != models.TierLowRisk,
		RecommendedTier:      min(inv.Tier, tierCap),
	}, nil
}

func validateInvestor(inv models.InvestorSnapshot) error {
	if inv.Tier < 0 {
		return &InputError{Field: "tier", Reason: fmt.Sprintf("must be >= 0, got %d", inv.Tier)}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"investment_amount", inv.InvestmentAmount},
		{"transaction_frequency", inv.TransactionFrequency},
		{"wallet_age_days", inv.WalletAgeDays},
		{"previous_defi_exposure", inv.PreviousDefiExposure},
	} {
		if err := requireNonNegative(f.name, f.v); err != nil {
			return err
		}
	}
	return nil
}
