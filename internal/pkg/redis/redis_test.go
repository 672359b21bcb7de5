package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(addr string) *Config {
	cfg := DefaultConfig()
	cfg.Addr = addr
	return cfg
}

func setupTestClient(t *testing.T) (*miniredis.Miniredis, *Client) {
	mr := miniredis.RunT(t)

	client, err := New(testConfig(mr.Addr()), logger.NewNop())
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { client.Close() })

	return mr, client
}

func TestNew(t *testing.T) {
	mr := miniredis.RunT(t)

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  testConfig(mr.Addr()),
			wantErr: false,
		},
		{
			name: "missing addr",
			config: func() *Config {
				c := testConfig("")
				return c
			}(),
			wantErr: true,
		},
		{
			name: "invalid pool size",
			config: func() *Config {
				c := testConfig(mr.Addr())
				c.PoolSize = 0
				return c
			}(),
			wantErr: true,
		},
		{
			name: "sentinel without master name",
			config: func() *Config {
				c := testConfig("")
				c.Mode = ModeSentinel
				c.SentinelAddrs = []string{"localhost:26379"}
				return c
			}(),
			wantErr: true,
		},
		{
			name: "cluster with db",
			config: func() *Config {
				c := testConfig("")
				c.Mode = ModeCluster
				c.ClusterAddrs = []string{"localhost:7000"}
				c.DB = 1
				return c
			}(),
			wantErr: true,
		},
		{
			name: "unknown mode",
			config: func() *Config {
				c := testConfig(mr.Addr())
				c.Mode = "read-write"
				return c
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(tt.config, logger.NewNop())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client.Universal())
			client.Close()
		})
	}
}

func TestNew_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(addr)
	cfg.DialTimeout = 200 * time.Millisecond
	_, err := New(cfg, logger.NewNop())
	assert.Error(t, err)
}

func TestStringOperations(t *testing.T) {
	_, client := setupTestClient(t)
	ctx := context.Background()

	t.Run("set and get bytes", func(t *testing.T) {
		payload := []byte{0xC5, 0x01, 0x00, 0xff}
		require.NoError(t, client.Set(ctx, "bin", payload, 0))

		got, err := client.GetBytes(ctx, "bin")
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := client.Get(ctx, "missing")
		assert.True(t, IsNil(err))

		_, err = client.GetBytes(ctx, "missing")
		assert.True(t, IsNil(err))
	})

	t.Run("incr", func(t *testing.T) {
		v, err := client.Incr(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, int64(1), v)

		v, err = client.Incr(ctx, "counter")
		require.NoError(t, err)
		assert.Equal(t, int64(2), v)
	})

	t.Run("del", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, "a", "1", 0))
		require.NoError(t, client.Set(ctx, "b", "2", 0))

		n, err := client.Del(ctx, "a", "b", "c")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)
	})
}

func TestMGetPipelined(t *testing.T) {
	_, client := setupTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "k1", []byte("one"), 0))
	require.NoError(t, client.Set(ctx, "k3", []byte("three"), 0))

	values, err := client.MGetPipelined(ctx, "k1", "k2", "k3")
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, []byte("one"), values[0])
	assert.Nil(t, values[1])
	assert.Equal(t, []byte("three"), values[2])

	values, err = client.MGetPipelined(ctx)
	require.NoError(t, err)
	assert.Empty(t, values)
}

func TestSortedSetOperations(t *testing.T) {
	_, client := setupTestClient(t)
	ctx := context.Background()
	key := "zset"

	n, err := client.ZAddNX(ctx, key,
		redis.Z{Score: 1, Member: "a"},
		redis.Z{Score: 2, Member: "b"},
		redis.Z{Score: 3, Member: "c"},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// NX 不覆盖已有成员的分数
	n, err = client.ZAddNX(ctx, key, redis.Z{Score: 10, Member: "a"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)

	score, err := client.ZScore(ctx, key, "a")
	require.NoError(t, err)
	assert.Equal(t, float64(1), score)

	_, err = client.ZScore(ctx, key, "missing")
	assert.True(t, IsNil(err))

	members, err := client.ZRange(ctx, key, 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, members)

	members, err = client.ZRange(ctx, key, 5, 10)
	require.NoError(t, err)
	assert.Empty(t, members)

	card, err := client.ZCard(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), card)

	removed, err := client.ZRem(ctx, key, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	members, err = client.ZRange(ctx, key, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, members)
}

func TestServerErrors(t *testing.T) {
	mr, client := setupTestClient(t)
	ctx := context.Background()

	mr.SetError("ERR injected failure")
	defer mr.SetError("")

	_, err := client.GetBytes(ctx, "k")
	assert.Error(t, err)
	assert.False(t, IsNil(err))

	_, err = client.MGetPipelined(ctx, "k1", "k2")
	assert.Error(t, err)
}

func TestIsTimeout(t *testing.T) {
	assert.True(t, IsTimeout(context.DeadlineExceeded))
	assert.False(t, IsTimeout(ErrNil))
	assert.False(t, IsTimeout(nil))
}
