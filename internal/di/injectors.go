//go:build wireinject
// +build wireinject

package di

import (
	"dashd/internal"
	"dashd/internal/controllers"
	"dashd/internal/docstore"
	"dashd/internal/pipeline"
	"dashd/internal/providers"
	"dashd/internal/services"
	"dashd/internal/snapshot"
	"dashd/internal/structures"
	"dashd/internal/upstream"

	wire "github.com/google/wire"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,

		snapshot.NewZstdCompressor,
		snapshot.NewStore,
		docstore.NewClient,
		upstream.NewClient,
		services.NewUsageService,

		pipeline.NewReadyState,
		pipeline.NewFileWriter,
		pipeline.NewIngester,
		pipeline.NewMerger,
		pipeline.NewScheduler,

		controllers.NewApiController,
		controllers.NewUploadController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
