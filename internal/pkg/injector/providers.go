package injector

import (
	"fmt"
	"time"

	"github.com/lk2023060901/metasearch/internal/conf"
	"github.com/lk2023060901/metasearch/internal/data"
	historybiz "github.com/lk2023060901/metasearch/internal/history/biz"
	"github.com/lk2023060901/metasearch/internal/history/refresh"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/pkg/workerpool"
	"github.com/lk2023060901/metasearch/internal/search/biz"
	"github.com/lk2023060901/metasearch/internal/search/provider"
	"github.com/lk2023060901/metasearch/internal/search/service"
	"github.com/lk2023060901/metasearch/internal/server"
	"go.uber.org/zap"
)

const poolShutdownTimeout = 5 * time.Second

func provideQueryCache(config *conf.Config, d *data.Data, log *logger.Logger) *historybiz.QueryCache {
	if d.Store == nil {
		return nil
	}
	return historybiz.NewQueryCache(d.Store, historybiz.Options{
		KeyPrefix:  config.Cache.KeyPrefix,
		OpTimeout:  config.Cache.OpTimeout,
		MaxEntries: config.Cache.MaxEntries,
	}, log)
}

func provideWorkerPool(config *conf.Config, log *logger.Logger) (*workerpool.Pool, func(), error) {
	pool, err := workerpool.New(&workerpool.Config{
		Workers:        config.Search.Workers,
		ExpiryDuration: time.Minute,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := pool.Shutdown(poolShutdownTimeout); err != nil {
			log.Warn("worker pool shutdown timed out", zap.Error(err))
		}
	}
	return pool, cleanup, nil
}

func provideEngines(config *conf.Config, log *logger.Logger) (map[string]provider.Engine, error) {
	engines, err := provider.NewFactory().CreateAll(config.Search.Engines)
	if err != nil {
		return nil, fmt.Errorf("failed to create search engines: %w", err)
	}
	if len(engines) == 0 {
		log.Warn("no search engines configured, every search will fail")
	}
	return engines, nil
}

func provideMetaSearcher(config *conf.Config, engines map[string]provider.Engine, pool *workerpool.Pool, log *logger.Logger) *biz.MetaSearcher {
	return biz.NewMetaSearcher(engines, pool, config.Search.Timeout, log)
}

func provideSearchUseCase(config *conf.Config, searcher *biz.MetaSearcher, cache *historybiz.QueryCache, log *logger.Logger) *biz.SearchUseCase {
	defaults := biz.Defaults{
		Engines:  config.Search.DefaultEngines,
		Category: config.Search.DefaultCategory,
		Language: config.Search.DefaultLanguage,
	}
	if len(defaults.Engines) == 0 {
		defaults.Engines = searcher.Engines()
	}

	// 避免把 nil 指针包装成非 nil 接口
	if cache == nil {
		return biz.NewSearchUseCase(searcher, nil, defaults, log)
	}
	return biz.NewSearchUseCase(searcher, cache, defaults, log)
}

func provideScheduler(config *conf.Config, cache *historybiz.QueryCache, searcher *biz.MetaSearcher, log *logger.Logger) *refresh.Scheduler {
	if cache == nil || !config.Refresh.Enable {
		return nil
	}
	return refresh.NewScheduler(cache, searcher, config.Refresh.Config, log)
}

func provideHTTPServer(config *conf.Config, log *logger.Logger, svc *service.SearchService, scheduler *refresh.Scheduler) *server.HTTPServer {
	if scheduler == nil {
		return server.NewHTTPServer(config, log, svc, nil)
	}
	return server.NewHTTPServer(config, log, svc, scheduler)
}

func newApp(
	config *conf.Config,
	log *logger.Logger,
	httpServer *server.HTTPServer,
	grpcServer *server.GRPCServer,
	cache *historybiz.QueryCache,
	scheduler *refresh.Scheduler,
) *App {
	return &App{
		Config:     config,
		Logger:     log,
		HTTPServer: httpServer,
		GRPCServer: grpcServer,
		Cache:      cache,
		Refresher:  scheduler,
	}
}
