package conf

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lk2023060901/metasearch/internal/history/refresh"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/pkg/redis"
	"github.com/lk2023060901/metasearch/internal/search/types"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀，例如 METASEARCH_REDIS_ADDR 覆盖 redis.addr
const EnvPrefix = "METASEARCH"

// 缓存存储后端
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   redis.Config  `mapstructure:"redis"`
	Log     logger.Config `mapstructure:"log"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Refresh RefreshConfig `mapstructure:"refresh"`
	Search  SearchConfig  `mapstructure:"search"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"` // 0 表示不启动 gRPC
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CacheConfig 查询缓存配置
type CacheConfig struct {
	Enable     bool          `mapstructure:"enable"`
	Backend    string        `mapstructure:"backend"` // redis | memory
	KeyPrefix  string        `mapstructure:"key_prefix"`
	OpTimeout  time.Duration `mapstructure:"op_timeout"`
	MaxEntries int64         `mapstructure:"max_entries"` // 0 表示不限制
}

// RefreshConfig 后台刷新配置
type RefreshConfig struct {
	Enable         bool `mapstructure:"enable"`
	refresh.Config `mapstructure:",squash"`
}

// SearchConfig 元搜索配置
type SearchConfig struct {
	DefaultEngines  []string             `mapstructure:"default_engines"`
	DefaultCategory string               `mapstructure:"default_category"`
	DefaultLanguage string               `mapstructure:"default_language"`
	Timeout         time.Duration        `mapstructure:"timeout"` // 单次请求所有引擎的总超时
	Workers         int                  `mapstructure:"workers"` // 引擎并发 worker 数
	Engines         []types.EngineConfig `mapstructure:"engines"`
}

// EngineNames 返回已配置引擎的名称
func (c *SearchConfig) EngineNames() []string {
	names := make([]string, 0, len(c.Engines))
	for _, e := range c.Engines {
		names = append(names, e.Name)
	}
	return names
}

// LoadConfig 读取配置：默认值 < 配置文件 < .env < 环境变量
//
// path 为空时只使用默认值和环境变量。
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.grpc_port", 9090)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	rc := redis.DefaultConfig()
	v.SetDefault("redis.mode", string(rc.Mode))
	v.SetDefault("redis.addr", rc.Addr)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.username", "")
	v.SetDefault("redis.db", rc.DB)
	v.SetDefault("redis.pool_size", rc.PoolSize)
	v.SetDefault("redis.min_idle_conns", rc.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rc.DialTimeout)
	v.SetDefault("redis.read_timeout", rc.ReadTimeout)
	v.SetDefault("redis.write_timeout", rc.WriteTimeout)
	v.SetDefault("redis.pool_timeout", rc.PoolTimeout)
	v.SetDefault("redis.max_retries", rc.MaxRetries)
	v.SetDefault("redis.min_retry_backoff", rc.MinRetryBackoff)
	v.SetDefault("redis.max_retry_backoff", rc.MaxRetryBackoff)

	lc := logger.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.output", lc.Output)
	v.SetDefault("log.enable_caller", lc.EnableCaller)
	v.SetDefault("log.enable_stacktrace", lc.EnableStacktrace)
	v.SetDefault("log.file.filename", lc.File.Filename)
	v.SetDefault("log.file.max_size", lc.File.MaxSize)
	v.SetDefault("log.file.max_age", lc.File.MaxAge)
	v.SetDefault("log.file.max_backups", lc.File.MaxBackups)
	v.SetDefault("log.file.compress", lc.File.Compress)

	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.backend", BackendRedis)
	v.SetDefault("cache.key_prefix", "SEARCH_HISTORY")
	v.SetDefault("cache.op_timeout", 2*time.Second)
	v.SetDefault("cache.max_entries", 0)

	rf := refresh.DefaultConfig()
	v.SetDefault("refresh.enable", true)
	v.SetDefault("refresh.interval", rf.Interval)
	v.SetDefault("refresh.batch_size", rf.BatchSize)
	v.SetDefault("refresh.query_timeout", rf.QueryTimeout)
	v.SetDefault("refresh.error_backoff", rf.ErrorBackoff)

	v.SetDefault("search.default_engines", []string{})
	v.SetDefault("search.default_category", "general")
	v.SetDefault("search.default_language", "all")
	v.SetDefault("search.timeout", 10*time.Second)
	v.SetDefault("search.workers", 64)
}

// Validate 校验配置之间的一致性
func (c *Config) Validate() error {
	if c.Cache.Enable && c.Cache.Backend != BackendRedis && c.Cache.Backend != BackendMemory {
		return fmt.Errorf("invalid cache.backend %q, must be %q or %q", c.Cache.Backend, BackendRedis, BackendMemory)
	}
	if c.Cache.MaxEntries < 0 {
		return errors.New("cache.max_entries must be >= 0")
	}
	if c.Refresh.BatchSize <= 0 {
		return errors.New("refresh.batch_size must be > 0")
	}
	if c.Search.Workers <= 0 {
		return errors.New("search.workers must be > 0")
	}

	names := c.Search.EngineNames()
	for _, name := range c.Search.DefaultEngines {
		if !slices.Contains(names, name) {
			return fmt.Errorf("search.default_engines: engine %q is not configured", name)
		}
	}
	return nil
}
