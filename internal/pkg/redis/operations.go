package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ==================== String Operations ====================

// Set 设置键值（支持过期时间，0 表示永不过期）
func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	err := c.rdb.Set(ctx, key, value, expiration).Err()
	if err != nil {
		c.logger.Error("redis set failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return err
}

// Get 获取键值
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.rdb.Get(ctx, key).Result()
	if err != nil && !IsNil(err) {
		c.logger.Error("redis get failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return val, err
}

// GetBytes 获取二进制键值，key 不存在时返回 ErrNil
func (c *Client) GetBytes(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil && !IsNil(err) {
		c.logger.Error("redis get failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return val, err
}

// MGetPipelined 以 pipeline 批量 GET，结果与 keys 一一对应，不存在的 key 对应 nil
//
// 与 MGET 不同，pipeline 在集群模式下可以跨 slot。
func (c *Client) MGetPipelined(ctx context.Context, keys ...string) ([][]byte, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	cmds := make([]*redis.StringCmd, len(keys))
	_, err := c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			cmds[i] = pipe.Get(ctx, key)
		}
		return nil
	})
	// 单个 key 不存在时 Exec 也会返回 redis.Nil
	if err != nil && !IsNil(err) {
		c.logger.Error("redis pipelined get failed",
			zap.Int("keys", len(keys)),
			zap.Error(err),
		)
		return nil, err
	}

	values := make([][]byte, len(keys))
	for i, cmd := range cmds {
		b, err := cmd.Bytes()
		if IsNil(err) {
			continue
		}
		if err != nil {
			c.logger.Error("redis pipelined get failed",
				zap.String("key", keys[i]),
				zap.Error(err),
			)
			return nil, err
		}
		values[i] = b
	}
	return values, nil
}

// Del 删除键
func (c *Client) Del(ctx context.Context, keys ...string) (int64, error) {
	n, err := c.rdb.Del(ctx, keys...).Result()
	if err != nil {
		c.logger.Error("redis del failed",
			zap.Strings("keys", keys),
			zap.Error(err),
		)
	}
	return n, err
}

// Incr 自增
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	val, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		c.logger.Error("redis incr failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return val, err
}

// ==================== Sorted Set Operations ====================

// ZAddNX 添加有序集合成员，已存在的成员保持原分数
func (c *Client) ZAddNX(ctx context.Context, key string, members ...redis.Z) (int64, error) {
	n, err := c.rdb.ZAddNX(ctx, key, members...).Result()
	if err != nil {
		c.logger.Error("redis zadd nx failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return n, err
}

// ZRem 删除有序集合成员
func (c *Client) ZRem(ctx context.Context, key string, members ...interface{}) (int64, error) {
	n, err := c.rdb.ZRem(ctx, key, members...).Result()
	if err != nil {
		c.logger.Error("redis zrem failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return n, err
}

// ZRange 按分数升序获取排名区间 [start, stop] 内的成员
func (c *Client) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := c.rdb.ZRange(ctx, key, start, stop).Result()
	if err != nil {
		c.logger.Error("redis zrange failed",
			zap.String("key", key),
			zap.Int64("start", start),
			zap.Int64("stop", stop),
			zap.Error(err),
		)
	}
	return members, err
}

// ZScore 获取成员分数，成员不存在时返回 ErrNil
func (c *Client) ZScore(ctx context.Context, key, member string) (float64, error) {
	score, err := c.rdb.ZScore(ctx, key, member).Result()
	if err != nil && !IsNil(err) {
		c.logger.Error("redis zscore failed",
			zap.String("key", key),
			zap.String("member", member),
			zap.Error(err),
		)
	}
	return score, err
}

// ZCard 获取有序集合成员数量
func (c *Client) ZCard(ctx context.Context, key string) (int64, error) {
	n, err := c.rdb.ZCard(ctx, key).Result()
	if err != nil {
		c.logger.Error("redis zcard failed",
			zap.String("key", key),
			zap.Error(err),
		)
	}
	return n, err
}
