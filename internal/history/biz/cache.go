package biz

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/lk2023060901/metasearch/internal/history/codec"
	"github.com/lk2023060901/metasearch/internal/history/fingerprint"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/search/types"
	"go.uber.org/zap"
)

// DefaultKeyPrefix 默认键前缀
const DefaultKeyPrefix = "SEARCH_HISTORY"

// Store 缓存存储接口（Redis / 内存实现位于 data 包）
//
// 实现必须把所有底层故障包装为 ErrStoreUnavailable。
type Store interface {
	// Get 读取单个值，key 不存在时返回 (nil, nil)
	Get(ctx context.Context, key string) ([]byte, error)
	// MGet 一次往返批量读取，结果与 keys 对应，不存在的为 nil
	MGet(ctx context.Context, keys ...string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error

	// Incr 原子自增计数器并返回新值
	Incr(ctx context.Context, key string) (int64, error)

	// 有序索引：score 为序号，member 为指纹
	IndexScore(ctx context.Context, key, member string) (score int64, ok bool, err error)
	IndexAddNX(ctx context.Context, key, member string, score int64) (added bool, err error)
	IndexRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	IndexLen(ctx context.Context, key string) (int64, error)
	IndexRemove(ctx context.Context, key string, members ...string) error
}

// Options 查询缓存配置
type Options struct {
	KeyPrefix  string        // 键前缀，默认 SEARCH_HISTORY
	OpTimeout  time.Duration // 单次缓存操作超时，0 表示不限制
	MaxEntries int64         // 索引容量上限，0 表示不限制
}

// QueryCache 查询结果缓存
//
// 键布局：
//
//	<prefix>:<fingerprint>  编码后的条目
//	<prefix>_INDEX          序号计数器
//	<prefix>_KEYS           有序集合，score=序号，member=指纹
type QueryCache struct {
	store  Store
	opts   Options
	logger *logger.Logger
}

// NewQueryCache 创建查询缓存
func NewQueryCache(store Store, opts Options, log *logger.Logger) *QueryCache {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	return &QueryCache{
		store:  store,
		opts:   opts,
		logger: log.Named("query-cache"),
	}
}

func (c *QueryCache) entryKey(fp fingerprint.Fingerprint) string {
	return c.opts.KeyPrefix + ":" + fp.String()
}

func (c *QueryCache) counterKey() string { return c.opts.KeyPrefix + "_INDEX" }

func (c *QueryCache) indexKey() string { return c.opts.KeyPrefix + "_KEYS" }

func (c *QueryCache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opts.OpTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.opts.OpTimeout)
}

// Read 读取查询对应的缓存条目，未命中或条目损坏时返回 (nil, nil)
func (c *QueryCache) Read(ctx context.Context, q *types.SearchQuery) (*types.CacheEntry, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	fp := fingerprint.Of(q)
	data, err := c.store.Get(ctx, c.entryKey(fp))
	if err != nil {
		return nil, fmt.Errorf("read entry: %w", err)
	}
	if data == nil {
		return nil, nil
	}

	entry, err := codec.Decode(data)
	if err != nil {
		c.logger.Warn("corrupt cache entry treated as miss",
			zap.String("fingerprint", fp.String()),
			zap.Error(err),
		)
		return nil, nil
	}
	return entry, nil
}

// Save 保存条目：首次出现的指纹先分配序号并写入索引，再写入值
//
// 已在索引中的指纹保留原序号，只覆盖值。
func (c *QueryCache) Save(ctx context.Context, entry *types.CacheEntry) error {
	data, err := codec.Encode(entry)
	if err != nil {
		return err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	fp := fingerprint.Of(&entry.Query)
	_, indexed, err := c.store.IndexScore(ctx, c.indexKey(), fp.String())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}

	added := false
	if !indexed {
		seq, err := c.store.Incr(ctx, c.counterKey())
		if err != nil {
			return fmt.Errorf("allocate sequence: %w", err)
		}
		// 并发首次保存同一指纹时 NX 保证只保留第一个序号
		if added, err = c.store.IndexAddNX(ctx, c.indexKey(), fp.String(), seq); err != nil {
			return fmt.Errorf("add to index: %w", err)
		}
	}

	if err := c.store.Set(ctx, c.entryKey(fp), data); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}

	if added && c.opts.MaxEntries > 0 {
		c.evict(ctx)
	}
	return nil
}

// evict 删除超出容量上限的最旧条目，失败只记录日志
func (c *QueryCache) evict(ctx context.Context) {
	n, err := c.store.IndexLen(ctx, c.indexKey())
	if err != nil || n <= c.opts.MaxEntries {
		return
	}

	excess := n - c.opts.MaxEntries
	members, err := c.store.IndexRange(ctx, c.indexKey(), 0, excess-1)
	if err != nil || len(members) == 0 {
		return
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = c.entryKey(fingerprint.Fingerprint(m))
	}

	if err := c.store.IndexRemove(ctx, c.indexKey(), members...); err != nil {
		c.logger.Warn("evict: remove index members failed", zap.Error(err))
		return
	}
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn("evict: delete entries failed", zap.Error(err))
		return
	}

	c.logger.Debug("evicted oldest entries",
		zap.Int("count", len(members)),
		zap.Int64("max_entries", c.opts.MaxEntries),
	)
}

// Batch 一次索引扫描的结果
type Batch struct {
	Queries []*types.SearchQuery
	// Scanned 本次覆盖的索引成员数，包含被跳过的缺失/损坏条目
	Scanned int64
}

// GetBatch 按索引顺序返回排名 [offset, offset+count) 内的查询身份
//
// 值缺失或损坏的成员被跳过，因此返回数量可能少于索引成员数量。
func (c *QueryCache) GetBatch(ctx context.Context, offset, count int64) ([]*types.SearchQuery, error) {
	batch, err := c.Scan(ctx, offset, count)
	if err != nil {
		return nil, err
	}
	return batch.Queries, nil
}

// Scan 与 GetBatch 相同，同时返回扫描过的索引成员数，供游标推进使用
func (c *QueryCache) Scan(ctx context.Context, offset, count int64) (*Batch, error) {
	if count <= 0 {
		return &Batch{Queries: []*types.SearchQuery{}}, nil
	}
	if offset < 0 {
		offset = 0
	}
	// 溢出时读到索引末尾
	stop := offset + count - 1
	if stop < offset {
		stop = math.MaxInt64
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	members, err := c.store.IndexRange(ctx, c.indexKey(), offset, stop)
	if err != nil {
		return nil, fmt.Errorf("range index: %w", err)
	}
	batch := &Batch{
		Queries: make([]*types.SearchQuery, 0, len(members)),
		Scanned: int64(len(members)),
	}
	if len(members) == 0 {
		return batch, nil
	}

	keys := make([]string, len(members))
	for i, m := range members {
		keys[i] = c.entryKey(fingerprint.Fingerprint(m))
	}

	values, err := c.store.MGet(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("batch get: %w", err)
	}

	for i, data := range values {
		if data == nil {
			c.logger.Debug("indexed entry has no value", zap.String("fingerprint", members[i]))
			continue
		}
		entry, err := codec.Decode(data)
		if err != nil {
			c.logger.Warn("skip corrupt cache entry",
				zap.String("fingerprint", members[i]),
				zap.Error(err),
			)
			continue
		}
		q := entry.Query
		batch.Queries = append(batch.Queries, &q)
	}
	return batch, nil
}

// Update 用新的结果替换已缓存条目的输出字段，查询身份与序号不变
func (c *QueryCache) Update(ctx context.Context, entry *types.CacheEntry) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	fp := fingerprint.Of(&entry.Query)
	key := c.entryKey(fp)

	data, err := c.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read entry: %w", err)
	}
	if data == nil {
		return ErrEntryNotFound
	}

	current, err := codec.Decode(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEntryNotFound, err)
	}
	current.Container = entry.Container

	if data, err = codec.Encode(current); err != nil {
		return err
	}
	if err := c.store.Set(ctx, key, data); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// Len 返回索引中的条目数量
func (c *QueryCache) Len(ctx context.Context) (int64, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	n, err := c.store.IndexLen(ctx, c.indexKey())
	if err != nil {
		return 0, fmt.Errorf("index length: %w", err)
	}
	return n, nil
}

// IsStoreUnavailable 判断错误是否来自存储后端
func IsStoreUnavailable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
