package scoring

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Veritas/internal/domain/models"
	"Veritas/pkg/config"
)

var fixedNow = func() time.Time { return time.Unix(1_700_000_000, 0) }

func market(risk, liquidity, confidence float64) models.MarketAssessment {
	return models.MarketAssessment{RiskScore: risk, LiquidityScore: liquidity, Confidence: confidence, Timestamp: 1_700_000_000}
}

func newEvaluators() (*LeverageEvaluator, *KYCEvaluator, *NAVForecaster) {
	rc := config.DefaultRisk()
	return NewLeverageEvaluator(rc.Leverage, WithClock(fixedNow)),
		NewKYCEvaluator(rc.KYC, WithClock(fixedNow)),
		NewNAVForecaster(rc.NAV, WithClock(fixedNow))
}

func TestLeverageHighLTVLowHealthFactor(t *testing.T) {
	lev, _, _ := newEvaluators()

	v, err := lev.Assess(models.PositionSnapshot{
		TotalCollateral:     1000,
		TotalBorrowed:       750,
		CurrentHealthFactor: 1.1,
		AssetValue:          900,
	}, market(0.5, 0.4, 0.8))
	require.NoError(t, err)

	assert.InDelta(t, 0.75, v.LTV, 1e-12)
	assert.Equal(t, 1.0, v.Factors[FactorLTVRisk])
	assert.InDelta(t, 1-1.1/1.5, v.Factors[FactorHealthFactorRisk], 1e-12)
	assert.Equal(t, 0.5, v.Factors[FactorMarketRisk])
	assert.InDelta(t, 0.6, v.Factors[FactorLiquidityRisk], 1e-12)

	// 0.3*1 + 0.3*0.26667 + 0.25*0.5 + 0.15*0.6
	assert.InDelta(t, 0.595, v.CompositeScore, 1e-9)
	assert.Equal(t, models.TierMedium, v.Tier)
	assert.False(t, v.ActionRequired)
	assert.Equal(t, []string{RecReduceLeverage, RecEmergencyDeleverage}, v.Recommendations)
	assert.InDelta(t, 1.2, v.ExposureRatio, 1e-12)
	assert.Equal(t, int64(1_700_000_000), v.Timestamp)
}

func TestLeverageTiers(t *testing.T) {
	lev, _, _ := newEvaluators()

	tests := []struct {
		name      string
		pos       models.PositionSnapshot
		mkt       models.MarketAssessment
		tier      models.Tier
		action    bool
		composite float64
		recs      []string
	}{
		{
			name:      "high",
			pos:       models.PositionSnapshot{TotalCollateral: 1000, TotalBorrowed: 800, CurrentHealthFactor: 1.0, AssetValue: 800},
			mkt:       market(0.8, 0.2, 0.5),
			tier:      models.TierHigh,
			action:    true,
			composite: 0.72,
			recs:      []string{RecReduceLeverage, RecEmergencyDeleverage, RecPauseNewPositions},
		},
		{
			name:      "critical",
			pos:       models.PositionSnapshot{TotalCollateral: 1000, TotalBorrowed: 1000, CurrentHealthFactor: 0, AssetValue: 0},
			mkt:       market(1, 0, 0.5),
			tier:      models.TierCritical,
			action:    true,
			composite: 1,
			recs:      []string{RecReduceLeverage, RecEmergencyDeleverage, RecPauseNewPositions},
		},
		{
			name:      "low without debt",
			pos:       models.PositionSnapshot{TotalCollateral: 1000, TotalBorrowed: 0, CurrentHealthFactor: 3, AssetValue: 1000},
			mkt:       market(0.1, 0.9, 0.5),
			tier:      models.TierLow,
			composite: 0.04,
			recs:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := lev.Assess(tt.pos, tt.mkt)
			require.NoError(t, err)
			assert.InDelta(t, tt.composite, v.CompositeScore, 1e-9)
			assert.Equal(t, tt.tier, v.Tier)
			assert.Equal(t, tt.action, v.ActionRequired)
			assert.Equal(t, tt.recs, v.Recommendations)
		})
	}
}

func TestLeverageZeroDenominatorsUseSafeDefaults(t *testing.T) {
	lev, _, _ := newEvaluators()

	v, err := lev.Assess(models.PositionSnapshot{CurrentHealthFactor: 2}, market(0.2, 0.8, 0.5))
	require.NoError(t, err)
	assert.Equal(t, 0.0, v.LTV)
	assert.Equal(t, 0.0, v.ExposureRatio)
	assert.Equal(t, 0.0, v.Factors[FactorLTVRisk])
}

func TestLeverageRejectsInvalidInput(t *testing.T) {
	lev, _, _ := newEvaluators()

	_, err := lev.Assess(models.PositionSnapshot{TotalCollateral: -1}, market(0.2, 0.8, 0.5))
	require.ErrorIs(t, err, ErrInvalidInput)
	var ie *InputError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, "total_collateral", ie.Field)

	_, err = lev.Assess(models.PositionSnapshot{TotalBorrowed: math.NaN()}, market(0.2, 0.8, 0.5))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = lev.Assess(models.PositionSnapshot{}, market(1.5, 0.8, 0.5))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestKYCLargeInvestmentMatureWallet(t *testing.T) {
	_, kyc, _ := newEvaluators()

	v, err := kyc.Assess(models.InvestorSnapshot{
		InvestmentAmount:     600_000,
		Tier:                 3,
		Jurisdiction:         "US",
		TransactionFrequency: 10,
		WalletAgeDays:        400,
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.6, v.Factors[FactorAmountRisk], 1e-12)
	assert.InDelta(t, 0.1, v.Factors[FactorVelocityRisk], 1e-12)
	assert.Equal(t, 0.0, v.Factors[FactorWalletRisk])
	assert.Equal(t, 0.1, v.Factors[FactorJurisdictionRisk])
	assert.InDelta(t, 0.22, v.CompositeScore, 1e-9)
	assert.Equal(t, models.TierLowRisk, v.Tier)
	assert.False(t, v.VerificationRequired)
	assert.Equal(t, []string{FlagLargeInvestment}, v.Recommendations)
	assert.Equal(t, 3, v.RecommendedTier)
}

func TestKYCHighRiskCapsTier(t *testing.T) {
	_, kyc, _ := newEvaluators()

	v, err := kyc.Assess(models.InvestorSnapshot{
		InvestmentAmount:     2_000_000,
		Tier:                 5,
		Jurisdiction:         "us",
		TransactionFrequency: 200,
		WalletAgeDays:        0,
	})
	require.NoError(t, err)

	assert.Equal(t, 0.3, v.Factors[FactorJurisdictionRisk], "jurisdiction match is case-sensitive")
	assert.InDelta(t, 0.86, v.CompositeScore, 1e-9)
	assert.Equal(t, models.TierHighRisk, v.Tier)
	assert.True(t, v.VerificationRequired)
	assert.Equal(t, []string{FlagLargeInvestment, FlagNewWallet, FlagHighVelocity}, v.Recommendations)
	assert.Equal(t, 2, v.RecommendedTier)
}

func TestKYCMediumRisk(t *testing.T) {
	_, kyc, _ := newEvaluators()

	// 0.3*0.5 + 0.2*0.3 + 0.3*0.5 + 0.2*0.3
	v, err := kyc.Assess(models.InvestorSnapshot{
		InvestmentAmount:     500_000,
		Tier:                 1,
		Jurisdiction:         "SG",
		TransactionFrequency: 30,
		WalletAgeDays:        182.5,
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.42, v.CompositeScore, 1e-9)
	assert.Equal(t, models.TierMediumRisk, v.Tier)
	assert.True(t, v.VerificationRequired)
	assert.Empty(t, v.Recommendations)
	assert.Equal(t, 1, v.RecommendedTier)
}

func TestNAVForecast(t *testing.T) {
	_, _, nav := newEvaluators()

	v, err := nav.Forecast(models.PoolSnapshot{
		TotalFaceValue:     5_000_000,
		NumberOfInvoices:   100,
		WeightedMaturity:   90,
		ExpectedYield:      0.08,
		CurrentDefaultRate: 0.03,
		RealizedYield:      200_000,
		TotalSupply:        4_800_000,
	}, market(0.2, 0.7, 0.9))
	require.NoError(t, err)

	assert.InDelta(t, 0.9118, v.ExpectedCollectionRate, 1e-12)
	assert.InDelta(t, 4_559_000, v.ExpectedCollections, 1e-6)
	assert.InDelta(t, 4_559_000.0/4_800_000.0, v.PredictedNAV, 1e-12)
	assert.InDelta(t, 0.82, v.Confidence, 1e-9)
	assert.InDelta(t, 0.072, v.RiskAdjustedYield, 1e-12)
	assert.InDelta(t, 0.8, v.PoolHealthScore, 1e-12)
	assert.Equal(t, "949791", v.NAVUnits)
	assert.True(t, v.UpdateRecommended)
	assert.Equal(t, 0.5, v.Factors[FactorMaturityRisk])
}

func TestNAVLowConfidenceSkipsUpdate(t *testing.T) {
	_, _, nav := newEvaluators()

	v, err := nav.Forecast(models.PoolSnapshot{
		TotalFaceValue:   1000,
		NumberOfInvoices: 10,
		WeightedMaturity: 360,
		TotalSupply:      1000,
	}, market(0, 1, 0.5))
	require.NoError(t, err)
	assert.InDelta(t, 0.19, v.Confidence, 1e-9)
	assert.False(t, v.UpdateRecommended)
	assert.Equal(t, 1.0, v.PredictedNAV)
	assert.Equal(t, "1000000", v.NAVUnits)
}

func TestNAVZeroSupplyIsDivisionError(t *testing.T) {
	_, _, nav := newEvaluators()

	v, err := nav.Forecast(models.PoolSnapshot{TotalFaceValue: 1000, NumberOfInvoices: 5}, market(0.3, 0.5, 0.5))
	require.ErrorIs(t, err, ErrDivision)
	assert.False(t, math.IsInf(v.PredictedNAV, 0))
	assert.False(t, math.IsNaN(v.PredictedNAV))

	_, err = nav.Forecast(models.PoolSnapshot{TotalSupply: -5}, market(0.3, 0.5, 0.5))
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = nav.Forecast(models.PoolSnapshot{TotalSupply: 5, CurrentDefaultRate: 1.2}, market(0.3, 0.5, 0.5))
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestClassifyBoundariesAreStrict(t *testing.T) {
	lev, kyc, _ := newEvaluators()
	table := lev.scorer.Table()

	assert.Equal(t, models.TierHigh, table.Classify(0.8))
	assert.Equal(t, models.TierCritical, table.Classify(math.Nextafter(0.8, 1)))
	assert.Equal(t, models.TierMedium, table.Classify(0.6))
	assert.Equal(t, models.TierLow, table.Classify(0.4))
	assert.Equal(t, models.TierLow, table.Classify(0))

	assert.Equal(t, models.TierMediumRisk, kyc.scorer.Table().Classify(0.7))
	assert.Equal(t, models.TierLowRisk, kyc.scorer.Table().Classify(0.4))
}

func TestTierBandsAreMonotonic(t *testing.T) {
	lev, kyc, _ := newEvaluators()

	for _, table := range []ThresholdTable{lev.scorer.Table(), kyc.scorer.Table()} {
		prev := -1
		for i := 0; i <= 1000; i++ {
			tier := table.Classify(float64(i) / 1000)
			require.GreaterOrEqual(t, tier.Rank(), 0, "score %v unclassified", float64(i)/1000)
			assert.GreaterOrEqual(t, tier.Rank(), prev)
			prev = tier.Rank()
		}
	}
}

func TestWeightsSumToOne(t *testing.T) {
	lev, kyc, nav := newEvaluators()

	for name, ws := range map[string][]Weight{
		"leverage": lev.scorer.Weights(),
		"kyc":      kyc.scorer.Weights(),
		"nav":      nav.scorer.Weights(),
	} {
		var sum float64
		for _, w := range ws {
			sum += w.Value
		}
		assert.InDelta(t, 1.0, sum, 1e-9, name)
	}
}

func TestFactorsAndCompositeStayInUnitRange(t *testing.T) {
	lev, kyc, _ := newEvaluators()
	rng := rand.New(rand.NewSource(42))

	inUnit := func(t *testing.T, v float64) {
		t.Helper()
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}

	for i := 0; i < 500; i++ {
		pos := models.PositionSnapshot{
			TotalCollateral:     rng.Float64() * 1e6,
			TotalBorrowed:       rng.Float64() * 2e6,
			CurrentHealthFactor: rng.Float64() * 5,
			AssetValue:          rng.Float64() * 1e6,
		}
		v, err := lev.Assess(pos, market(rng.Float64(), rng.Float64(), rng.Float64()))
		require.NoError(t, err)
		for _, f := range v.Factors {
			inUnit(t, f)
		}
		inUnit(t, v.CompositeScore)

		inv := models.InvestorSnapshot{
			InvestmentAmount:     rng.Float64() * 5e6,
			Tier:                 rng.Intn(6),
			Jurisdiction:         []string{"US", "EU", "UK", "BR"}[rng.Intn(4)],
			TransactionFrequency: rng.Float64() * 300,
			WalletAgeDays:        rng.Float64() * 1000,
		}
		kv, err := kyc.Assess(inv)
		require.NoError(t, err)
		for _, f := range kv.Factors {
			inUnit(t, f)
		}
		inUnit(t, kv.CompositeScore)
		assert.LessOrEqual(t, kv.RecommendedTier, inv.Tier)
	}
}

func TestEvaluatorsAreIdempotent(t *testing.T) {
	lev, kyc, nav := newEvaluators()
	mkt := market(0.37, 0.61, 0.74)

	pos := models.PositionSnapshot{TotalCollateral: 1200, TotalBorrowed: 700, CurrentHealthFactor: 1.4, AssetValue: 1100}
	a, err := lev.Assess(pos, mkt)
	require.NoError(t, err)
	b, err := lev.Assess(pos, mkt)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	inv := models.InvestorSnapshot{InvestmentAmount: 123_456, Tier: 2, Jurisdiction: "EU", TransactionFrequency: 12, WalletAgeDays: 90}
	ka, err := kyc.Assess(inv)
	require.NoError(t, err)
	kb, err := kyc.Assess(inv)
	require.NoError(t, err)
	assert.Equal(t, ka, kb)

	pool := models.PoolSnapshot{TotalFaceValue: 1e6, NumberOfInvoices: 40, WeightedMaturity: 60, ExpectedYield: 0.1, TotalSupply: 9e5}
	na, err := nav.Forecast(pool, mkt)
	require.NoError(t, err)
	nb, err := nav.Forecast(pool, mkt)
	require.NoError(t, err)
	assert.Equal(t, na, nb)
}

func TestScorerSortsBandsAndClamps(t *testing.T) {
	s := NewScorer(func(v float64) map[string]float64 {
		return map[string]float64{"a": v, "b": -v}
	}, []Weight{{"a", 0.5}, {"b", 0.5}}, ThresholdTable{
		Bands: []Band{{0.2, models.TierMedium}, {0.45, models.TierHigh}},
		Floor: models.TierLow,
	})

	r := s.Score(3)
	assert.Equal(t, 1.0, r.Factors["a"])
	assert.Equal(t, 0.0, r.Factors["b"])
	assert.Equal(t, 0.5, r.Composite)
	assert.Equal(t, models.TierHigh, r.Tier)

	assert.Equal(t, models.TierMedium, s.Score(0.6).Tier)
	assert.Equal(t, models.TierLow, s.Score(math.NaN()).Tier)
}

func TestApplyScenario(t *testing.T) {
	sc := config.DefaultRisk().Scenarios
	base := models.MarketAssessment{RiskScore: 0.8, LiquidityScore: 0.9, Confidence: 0.7, ModelVersion: "v1.2.0-lstm"}

	assert.Equal(t, base, ApplyScenario(base, models.ScenarioBase, sc))

	stress := ApplyScenario(base, models.ScenarioStress, sc)
	assert.Equal(t, 1.0, stress.RiskScore)
	assert.InDelta(t, 0.45, stress.LiquidityScore, 1e-12)
	assert.Equal(t, 0.7, stress.Confidence)

	bull := ApplyScenario(base, models.ScenarioBull, sc)
	assert.InDelta(t, 0.56, bull.RiskScore, 1e-12)
	assert.Equal(t, 1.0, bull.LiquidityScore)
}

func TestToUnitsTruncates(t *testing.T) {
	for in, want := range map[float64]string{1.0234: "1023400", 0.9999999: "999999", 0: "0"} {
		got, err := ToUnits(in, 6)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestToUnitsRejectsNonFinite(t *testing.T) {
	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		_, err := ToUnits(v, 6)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestNAVOverflowIsDivisionError(t *testing.T) {
	_, _, nav := newEvaluators()

	for name, supply := range map[string]float64{"small": 0.5, "denormal": 5e-324} {
		t.Run(name, func(t *testing.T) {
			var err error
			require.NotPanics(t, func() {
				_, err = nav.Forecast(models.PoolSnapshot{
					TotalFaceValue:   1e308,
					NumberOfInvoices: 10,
					WeightedMaturity: 30,
					TotalSupply:      supply,
				}, market(0, 0.5, 0.5))
			})
			assert.ErrorIs(t, err, ErrDivision)
		})
	}
}

func TestLeverageOverflowingRatiosRejected(t *testing.T) {
	lev, _, _ := newEvaluators()

	_, err := lev.Assess(models.PositionSnapshot{
		TotalCollateral:     1,
		TotalBorrowed:       1e-300,
		CurrentHealthFactor: 2,
		AssetValue:          1e300,
	}, market(0.2, 0.8, 0.9))
	var ie *InputError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "total_borrowed", ie.Field)

	_, err = lev.Assess(models.PositionSnapshot{
		TotalCollateral:     5e-324,
		TotalBorrowed:       1e300,
		CurrentHealthFactor: 2,
	}, market(0.2, 0.8, 0.9))
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "total_collateral", ie.Field)
}

func TestLeverageTinyDenominatorsStayMarshalable(t *testing.T) {
	lev, _, _ := newEvaluators()

	v, err := lev.Assess(models.PositionSnapshot{
		TotalCollateral:     1,
		TotalBorrowed:       1e-300,
		CurrentHealthFactor: 2,
		AssetValue:          1,
	}, market(0.2, 0.8, 0.9))
	require.NoError(t, err)

	_, err = json.Marshal(v)
	assert.NoError(t, err)
}
