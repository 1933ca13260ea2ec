//go:build wireinject
// +build wireinject

package di

import (
	"CravePulse/pkg/config"
	"CravePulse/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,
		ProvideCacheService,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideReadingStore,
		ProvideAnalysisSink,
		ProvideNotifier,
		ProvideSubjectRegistry,
		ProvideNotificationGuard,
		ProvideWindowSource,

		// Services
		ProvideExtractor,
		ProvideClassifier,
		ProvideHub,

		// Use cases
		ProvideOrchestrator,
		ProvideCycleQueue,
		ProvideScheduler,
		ProvideIngestPipeline,
		ProvideReadingsHandler,

		// Transport
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
