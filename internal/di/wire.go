//go:build wireinject
// +build wireinject

package di

import (
	"FinCast/pkg/config"
	"FinCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisCache,
		ProvideCache,

		// Stores and event fan-out
		ProvideBarStore,
		ProvideRunStore,
		ProvideHub,
		ProvideEventPublisher,

		// Engine services
		ProvideIndicatorEngine,
		ProvideFeatureBuilder,
		ProvideTrendPredictor,
		ProvideIndicatorConfig,
		ProvideForecastConfig,

		// Use cases
		ProvideHistory,
		ProvideAnalyzer,
		ProvideBarProcessor,
		ProvideIngestPipeline,
		ProvideBarIngestHandler,
		ProvideQueue,

		// HTTP surface
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
