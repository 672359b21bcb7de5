package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lk2023060901/metasearch/internal/pkg/redis"
	"github.com/lk2023060901/metasearch/internal/search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
server:
  port: 8081
  grpc_port: 0
redis:
  addr: redis.internal:6379
  db: 2
cache:
  key_prefix: TEST_HISTORY
  op_timeout: 500ms
  max_entries: 1000
refresh:
  interval: 30m
  batch_size: 50
search:
  default_engines: [searxng]
  timeout: 5s
  engines:
    - name: searxng
      kind: searxng
      api_host: http://searxng:8080
      rate_limit: 2.5
    - name: tavily
      kind: tavily
      api_host: https://api.tavily.com
      api_key: tvly-key
      timeout: 15s
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, 0, cfg.Server.GRPCPort)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	assert.Equal(t, redis.ModeSingle, cfg.Redis.Mode)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, 5*time.Second, cfg.Redis.DialTimeout)

	assert.True(t, cfg.Cache.Enable)
	assert.Equal(t, BackendRedis, cfg.Cache.Backend)
	assert.Equal(t, "TEST_HISTORY", cfg.Cache.KeyPrefix)
	assert.Equal(t, 500*time.Millisecond, cfg.Cache.OpTimeout)
	assert.Equal(t, int64(1000), cfg.Cache.MaxEntries)

	assert.True(t, cfg.Refresh.Enable)
	assert.Equal(t, 30*time.Minute, cfg.Refresh.Interval)
	assert.Equal(t, 50, cfg.Refresh.BatchSize)
	assert.Equal(t, 30*time.Second, cfg.Refresh.QueryTimeout)

	assert.Equal(t, []string{"searxng"}, cfg.Search.DefaultEngines)
	assert.Equal(t, "general", cfg.Search.DefaultCategory)
	assert.Equal(t, 5*time.Second, cfg.Search.Timeout)
	require.Len(t, cfg.Search.Engines, 2)
	assert.Equal(t, types.KindSearXNG, cfg.Search.Engines[0].Kind)
	assert.InDelta(t, 2.5, cfg.Search.Engines[0].RateLimit, 1e-9)
	assert.Equal(t, "tvly-key", cfg.Search.Engines[1].APIKey)
	assert.Equal(t, 15*time.Second, cfg.Search.Engines[1].Timeout)
	assert.Equal(t, []string{"searxng", "tavily"}, cfg.Search.EngineNames())

	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("METASEARCH_CACHE_KEY_PREFIX", "ENV_HISTORY")
	t.Setenv("METASEARCH_CACHE_BACKEND", "memory")
	t.Setenv("METASEARCH_REFRESH_ENABLE", "false")
	t.Setenv("METASEARCH_REDIS_ADDR", "10.0.0.1:6379")

	cfg, err := LoadConfig(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "ENV_HISTORY", cfg.Cache.KeyPrefix)
	assert.Equal(t, BackendMemory, cfg.Cache.Backend)
	assert.False(t, cfg.Refresh.Enable)
	assert.Equal(t, "10.0.0.1:6379", cfg.Redis.Addr)
}

func TestLoadConfig_DefaultsOnly(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "SEARCH_HISTORY", cfg.Cache.KeyPrefix)
	assert.Equal(t, time.Hour, cfg.Refresh.Interval)
	assert.Equal(t, 20, cfg.Refresh.BatchSize)
	assert.Equal(t, 64, cfg.Search.Workers)
	assert.Empty(t, cfg.Search.Engines)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"invalid backend", "cache:\n  backend: etcd\n"},
		{"negative max entries", "cache:\n  max_entries: -1\n"},
		{"zero batch size", "refresh:\n  batch_size: 0\n"},
		{"zero workers", "search:\n  workers: 0\n"},
		{"unknown default engine", "search:\n  default_engines: [bing]\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
