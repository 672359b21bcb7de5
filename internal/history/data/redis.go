package data

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/lk2023060901/metasearch/internal/history/biz"
	"github.com/lk2023060901/metasearch/internal/pkg/redis"
)

// RedisStore 基于 Redis 的缓存存储实现
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore 创建 Redis 缓存存储
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

var _ biz.Store = (*RedisStore)(nil)

func unavailable(op string, err error) error {
	if redis.IsTimeout(err) {
		return fmt.Errorf("%w: %s timed out: %w", biz.ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("%w: %s: %w", biz.ErrStoreUnavailable, op, err)
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.GetBytes(ctx, key)
	if redis.IsNil(err) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return val, nil
}

func (s *RedisStore) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	values, err := s.client.MGetPipelined(ctx, keys...)
	if err != nil {
		return nil, unavailable("mget", err)
	}
	return values, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, key, value, 0); err != nil {
		return unavailable("set", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := s.client.Del(ctx, keys...); err != nil {
		return unavailable("del", err)
	}
	return nil
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key)
	if err != nil {
		return 0, unavailable("incr", err)
	}
	return n, nil
}

func (s *RedisStore) IndexScore(ctx context.Context, key, member string) (int64, bool, error) {
	score, err := s.client.ZScore(ctx, key, member)
	if redis.IsNil(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, unavailable("zscore", err)
	}
	return int64(score), true, nil
}

func (s *RedisStore) IndexAddNX(ctx context.Context, key, member string, score int64) (bool, error) {
	n, err := s.client.ZAddNX(ctx, key, goredis.Z{Score: float64(score), Member: member})
	if err != nil {
		return false, unavailable("zadd", err)
	}
	return n > 0, nil
}

func (s *RedisStore) IndexRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := s.client.ZRange(ctx, key, start, stop)
	if err != nil {
		return nil, unavailable("zrange", err)
	}
	return members, nil
}

func (s *RedisStore) IndexLen(ctx context.Context, key string) (int64, error) {
	n, err := s.client.ZCard(ctx, key)
	if err != nil {
		return 0, unavailable("zcard", err)
	}
	return n, nil
}

func (s *RedisStore) IndexRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	if _, err := s.client.ZRem(ctx, key, args...); err != nil {
		return unavailable("zrem", err)
	}
	return nil
}
