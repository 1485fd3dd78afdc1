package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"Veritas/internal/services/predictor"
	"Veritas/internal/usecase"
	"Veritas/pkg/config"
	applogger "Veritas/pkg/logger"
	"Veritas/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	mlURL      string
	risk       float64
	liquidity  float64
	confidence float64
	timeout    time.Duration
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "riskctl",
		Short: "Evaluate risk snapshots from the command line",
		Long: `riskctl runs the Veritas evaluators locally.

The market assessment comes either from the model service (--ml-url) or
from fixed scores (--risk, --liquidity, --confidence).

Examples:
  riskctl predict --ml-url http://localhost:5001
  riskctl scenario stress --risk 0.4 --liquidity 0.7 --confidence 0.9
  riskctl leverage --file position.json --config config/config.yaml`,
		SilenceUsage: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.configPath, "config", "", "config file (default: built-in defaults)")
	f.StringVar(&opts.mlURL, "ml-url", "", "model service base URL")
	f.Float64Var(&opts.risk, "risk", 0, "fixed market risk score")
	f.Float64Var(&opts.liquidity, "liquidity", 0, "fixed liquidity score")
	f.Float64Var(&opts.confidence, "confidence", 0, "fixed model confidence")
	f.DurationVar(&opts.timeout, "timeout", 0, "predictor timeout (default from config)")
	f.StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")
	root.MarkFlagsMutuallyExclusive("ml-url", "risk")
	root.MarkFlagsMutuallyExclusive("ml-url", "liquidity")
	root.MarkFlagsMutuallyExclusive("ml-url", "confidence")

	root.AddCommand(
		newPredictCmd(opts),
		newScenarioCmd(opts),
		newLeverageCmd(opts),
		newKYCCmd(opts),
		newNAVCmd(opts),
	)
	return root
}

// loadConfig resolves the effective configuration from the file and flags.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if o.configPath != "" {
		c, err := config.LoadWithEnv(o.configPath)
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	flags := cmd.Flags()
	if o.mlURL != "" {
		cfg.Predictor.Mode = "http"
		cfg.Predictor.URL = o.mlURL
	}
	if flags.Changed("risk") || flags.Changed("liquidity") || flags.Changed("confidence") {
		cfg.Predictor.Mode = "static"
		cfg.Predictor.Static.RiskScore = o.risk
		cfg.Predictor.Static.LiquidityScore = o.liquidity
		cfg.Predictor.Static.Confidence = o.confidence
	}
	if o.timeout > 0 {
		cfg.Predictor.Timeout = o.timeout
	}
	// One process, one caller: no lock needed.
	cfg.Predictor.Serialize = "none"

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (o *rootOptions) newService(cmd *cobra.Command) (*usecase.RiskService, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := applogger.New(&applogger.Config{Level: o.logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, err
	}
	backend, err := predictor.NewBackend(cfg, log)
	if err != nil {
		return nil, err
	}
	rec := metrics.NewWithRegisterer(prometheus.NewRegistry())
	return usecase.NewRiskService(cfg, backend, backend, nil, rec, log), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
