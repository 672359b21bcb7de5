package data

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lk2023060901/metasearch/internal/conf"
	historydata "github.com/lk2023060901/metasearch/internal/history/data"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/pkg/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(enable bool, backend string) *conf.Config {
	return &conf.Config{
		Redis: *redis.DefaultConfig(),
		Cache: conf.CacheConfig{Enable: enable, Backend: backend},
	}
}

func TestNewData_Disabled(t *testing.T) {
	d, cleanup, err := NewData(testConfig(false, conf.BackendRedis), logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, d.Store)
	assert.Nil(t, d.Redis)
}

func TestNewData_Memory(t *testing.T) {
	d, cleanup, err := NewData(testConfig(true, conf.BackendMemory), logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &historydata.MemoryStore{}, d.Store)
	assert.Nil(t, d.Redis)
}

func TestNewData_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(true, conf.BackendRedis)
	cfg.Redis.Addr = mr.Addr()

	d, cleanup, err := NewData(cfg, logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &historydata.RedisStore{}, d.Store)
	assert.NotNil(t, d.Redis)
}

func TestNewData_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(true, conf.BackendRedis)
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.DialTimeout = 200 * time.Millisecond
	mr.Close()

	_, _, err := NewData(cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestNewData_UnknownBackend(t *testing.T) {
	_, _, err := NewData(testConfig(true, "etcd"), logger.NewNop())
	assert.Error(t, err)
}
