package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRiskMatchesReferenceConstants(t *testing.T) {
	rc := DefaultRisk()

	assert.Equal(t, 0.7, rc.Leverage.LTVSaturation)
	assert.Equal(t, 1.5, rc.Leverage.SafeHealthFactor)
	assert.Equal(t, 0.8, rc.Leverage.CriticalAbove)
	assert.Equal(t, 0.6, rc.Leverage.HighAbove)
	assert.Equal(t, 0.4, rc.Leverage.MediumAbove)
	assert.Equal(t, 0.65, rc.Leverage.MaxLTV)
	assert.Equal(t, 1.3, rc.Leverage.MinHealthFactor)
	assert.Equal(t, 0.3, rc.Leverage.MinLiquidity)
	assert.Equal(t, LeverageWeights{LTV: 0.30, HealthFactor: 0.30, Market: 0.25, Liquidity: 0.15}, rc.Leverage.Weights)

	assert.Equal(t, []string{"US", "EU", "UK"}, rc.KYC.LowRiskJurisdictions)
	assert.Equal(t, 1_000_000.0, rc.KYC.AmountSaturation)
	assert.Equal(t, 2, rc.KYC.ElevatedTierCap)
	assert.Equal(t, 4, rc.KYC.StandardTierCap)
	assert.Equal(t, KYCWeights{Amount: 0.3, Velocity: 0.2, Wallet: 0.3, Jurisdiction: 0.2}, rc.KYC.Weights)

	assert.Equal(t, 0.7, rc.NAV.UpdateConfidence)
	assert.Equal(t, int32(6), rc.NAV.UnitDecimals)
	assert.Equal(t, NAVWeights{Diversification: 0.4, Maturity: 0.3, Market: 0.3}, rc.NAV.Weights)

	assert.Equal(t, ScenarioMultipliers{Risk: 1.5, Liquidity: 0.5}, rc.Scenarios.Stress)
	assert.Equal(t, ScenarioMultipliers{Risk: 0.7, Liquidity: 1.2}, rc.Scenarios.Bull)

	require.NoError(t, rc.Validate())
}

func TestParseAppliesDefaultsAndOverrides(t *testing.T) {
	cfg, err := Parse([]byte(`
server:
  port: 8088
predictor:
  url: http://ml:5000
  timeout: 2s
risk:
  leverage:
    max_ltv: 0.6
`))
	require.NoError(t, err)

	assert.Equal(t, 8088, cfg.Server.Port)
	assert.Equal(t, "http://ml:5000", cfg.Predictor.URL)
	assert.Equal(t, 2*time.Second, cfg.Predictor.Timeout)
	assert.Equal(t, "local", cfg.Predictor.Serialize)
	assert.Equal(t, 0.6, cfg.Risk.Leverage.MaxLTV)
	assert.Equal(t, 0.8, cfg.Risk.Leverage.CriticalAbove)
	assert.Equal(t, "development", cfg.Environment)
}

func TestParseKeepsExplicitFalse(t *testing.T) {
	cfg, err := Parse([]byte(`
metrics:
  enabled: false
realtime:
  enabled: false
`))
	require.NoError(t, err)

	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Realtime.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestParseKeepsExplicitZero(t *testing.T) {
	cfg, err := Parse([]byte(`
risk:
  leverage:
    min_liquidity: 0
`))
	require.NoError(t, err)

	assert.Equal(t, 0.0, cfg.Risk.Leverage.MinLiquidity)
	assert.Equal(t, 1.3, cfg.Risk.Leverage.MinHealthFactor)
}

func TestParseRejectsBadWeights(t *testing.T) {
	_, err := Parse([]byte(`
risk:
  kyc:
    weights:
      amount: 0.5
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kyc weights must sum to 1")
}

func TestParseRejectsUnorderedBands(t *testing.T) {
	_, err := Parse([]byte(`
risk:
  leverage:
    high_above: 0.9
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "leverage bands must descend")
}

func TestValidatePredictorMode(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Predictor.Mode = "grpc"
	assert.Error(t, cfg.Validate())

	cfg.Predictor.Mode = "static"
	cfg.Predictor.Static.RiskScore = 1.2
	assert.Error(t, cfg.Validate())

	cfg.Predictor.Static.RiskScore = 0.4
	cfg.Predictor.Serialize = "global"
	assert.Error(t, cfg.Validate())
}

func TestLoadWithEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("environment: test\n"), 0o600))

	t.Setenv("ML_API_ENDPOINT", "http://model:5001")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("PORT", "9000")

	cfg, err := LoadWithEnv(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "http://model:5001", cfg.Predictor.URL)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 9000, cfg.Server.Port)
}
