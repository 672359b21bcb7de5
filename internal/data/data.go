package data

import (
	"fmt"

	"github.com/lk2023060901/metasearch/internal/conf"
	historybiz "github.com/lk2023060901/metasearch/internal/history/biz"
	historydata "github.com/lk2023060901/metasearch/internal/history/data"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/pkg/redis"
	"go.uber.org/zap"
)

// Data 数据层资源
type Data struct {
	// Redis 仅在 cache.backend=redis 且缓存启用时非空
	Redis *redis.Client
	// Store 缓存存储，缓存禁用时为 nil
	Store historybiz.Store
}

// NewData 按配置初始化缓存存储
func NewData(config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	d := &Data{}
	cleanup := func() {}

	if !config.Cache.Enable {
		log.Info("query cache disabled, serving live searches only")
		return d, cleanup, nil
	}

	switch config.Cache.Backend {
	case conf.BackendMemory:
		log.Warn("using in-process memory store, cache is lost on restart")
		d.Store = historydata.NewMemoryStore()

	case conf.BackendRedis:
		client, err := redis.New(&config.Redis, log.Named("redis"))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		d.Redis = client
		d.Store = historydata.NewRedisStore(client)
		cleanup = func() {
			log.Info("cleaning up data resources")
			if err := client.Close(); err != nil {
				log.Error("failed to close redis client", zap.Error(err))
			}
		}

	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", config.Cache.Backend)
	}

	return d, cleanup, nil
}
