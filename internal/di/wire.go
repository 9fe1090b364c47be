//go:build wireinject
// +build wireinject

package di

import (
	"SweepLab/pkg/config"
	"SweepLab/pkg/server"

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
		ProvideCacheService,
		ProvideResources,

		// Repositories
		ProvideResultCache,
		ProvideSeriesSource,
		ProvideEventSource,
		ProvideResultSinks,

		// Use cases
		ProvideSweepService,
		ProvideBatchRequest,
		ProvideJobRegistry,
		ProvideSweepJobs,
		ProvideKafkaSweepHandler,

		// Transport
		ProvideSweepsHandler,
		ProvideRateLimiter,
		ProvideHTTPServer,
		ProvideKafkaConsumer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
