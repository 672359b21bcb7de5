//go:build wireinject
// +build wireinject

package injector

import (
	"github.com/google/wire"
	"github.com/lk2023060901/metasearch/internal/conf"
	"github.com/lk2023060901/metasearch/internal/data"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/search/biz"
	"github.com/lk2023060901/metasearch/internal/search/service"
	"github.com/lk2023060901/metasearch/internal/server"
)

// ProviderSet is the Wire provider set for all dependencies
var ProviderSet = wire.NewSet(
	dataProviderSet,
	searchProviderSet,
	historyProviderSet,
	serverProviderSet,
)

// Data layer providers
var dataProviderSet = wire.NewSet(
	data.NewData,
	provideQueryCache,
)

// Search providers
var searchProviderSet = wire.NewSet(
	provideWorkerPool,
	provideEngines,
	provideMetaSearcher,
	provideSearchUseCase,
	service.NewSearchService,
	wire.Bind(new(service.EngineLister), new(*biz.MetaSearcher)),
)

// Refresh providers
var historyProviderSet = wire.NewSet(
	provideScheduler,
)

// Server providers
var serverProviderSet = wire.NewSet(
	provideHTTPServer,
	server.NewGRPCServer,
)

// InitializeApp initializes the application with Wire
func InitializeApp(config *conf.Config, log *logger.Logger) (*App, func(), error) {
	wire.Build(ProviderSet, newApp)
	return nil, nil, nil
}
