package predictor

import (
	"fmt"

	domsvc "Veritas/internal/domain/service"
	"Veritas/pkg/cache"
	"Veritas/pkg/config"
	"Veritas/pkg/logger"
)

// Backend is a predictor that can also report model health.
type Backend interface {
	domsvc.MarketPredictor
	domsvc.HealthChecker
}

// NewBackend builds the predictor selected by predictor.mode.
func NewBackend(cfg *config.Config, log *logger.Logger) (Backend, error) {
	switch cfg.Predictor.Mode {
	case "http":
		return NewHTTPPredictor(cfg, log), nil
	case "static":
		s := cfg.Predictor.Static
		return NewStaticPredictor(s.RiskScore, s.LiquidityScore, s.Confidence), nil
	default:
		return nil, fmt.Errorf("unknown predictor mode %q", cfg.Predictor.Mode)
	}
}

// Serialize wraps b according to predictor.serialize. With "none" b is returned as is.
func Serialize(b domsvc.MarketPredictor, cfg *config.Config, locks cache.Service, log *logger.Logger) domsvc.MarketPredictor {
	if cfg.Predictor.Serialize == "none" || locks == nil {
		return b
	}
	return NewSerializedPredictor(b, locks, cfg.Predictor.LockTTL, log)
}
