//go:build wireinject
// +build wireinject

package di

import (
	"Veritas/pkg/config"
	"Veritas/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideLogPublisher,

		// Predictor
		ProvidePredictorBackend,
		ProvideMarketPredictor,
		ProvideHealthChecker,

		// Publishing
		ProvideHub,
		ProvideVerdictPublisher,

		// Use cases and adapters
		ProvideRiskService,
		ProvideRiskHandler,
		ProvideSnapshotHandler,
		ProvideRateLimiter,

		// Application server
		ProvideApp,
	)
	return nil, nil, nil
}
