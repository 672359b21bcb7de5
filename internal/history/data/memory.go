package data

import (
	"context"
	"slices"
	"sync"

	"github.com/lk2023060901/metasearch/internal/history/biz"
)

type scored struct {
	member string
	score  int64
}

// MemoryStore 进程内缓存存储，适用于单实例部署与测试
//
// 排序规则与 Redis 有序集合一致：score 升序，相同 score 按 member 字典序。
type MemoryStore struct {
	mu       sync.RWMutex
	values   map[string][]byte
	counters map[string]int64
	indexes  map[string][]scored
}

// NewMemoryStore 创建内存缓存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string][]byte),
		counters: make(map[string]int64),
		indexes:  make(map[string][]scored),
	}
}

var _ biz.Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.values[key]), nil
}

func (s *MemoryStore) MGet(ctx context.Context, keys ...string) ([][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("mget", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make([][]byte, len(keys))
	for i, key := range keys {
		values[i] = slices.Clone(s.values[key])
	}
	return values, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return unavailable("set", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = slices.Clone(value)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("del", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values, key)
	}
	return nil
}

func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("incr", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func (s *MemoryStore) IndexScore(ctx context.Context, key, member string) (int64, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, unavailable("zscore", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.indexes[key] {
		if e.member == member {
			return e.score, true, nil
		}
	}
	return 0, false, nil
}

func (s *MemoryStore) IndexAddNX(ctx context.Context, key, member string, score int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("zadd", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexes[key]
	for _, e := range idx {
		if e.member == member {
			return false, nil
		}
	}

	e := scored{member: member, score: score}
	i, _ := slices.BinarySearchFunc(idx, e, compareScored)
	s.indexes[key] = slices.Insert(idx, i, e)
	return true, nil
}

func (s *MemoryStore) IndexRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("zrange", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexes[key]
	n := int64(len(idx))
	// 与 ZRANGE 相同的负数下标语义
	if start < 0 {
		start = max(n+start, 0)
	}
	if stop < 0 {
		stop = n + stop
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return []string{}, nil
	}

	members := make([]string, 0, stop-start+1)
	for _, e := range idx[start : stop+1] {
		members = append(members, e.member)
	}
	return members, nil
}

func (s *MemoryStore) IndexLen(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, unavailable("zcard", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.indexes[key])), nil
}

func (s *MemoryStore) IndexRemove(ctx context.Context, key string, members ...string) error {
	if err := ctx.Err(); err != nil {
		return unavailable("zrem", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexes[key] = slices.DeleteFunc(s.indexes[key], func(e scored) bool {
		return slices.Contains(members, e.member)
	})
	return nil
}

func compareScored(a, b scored) int {
	switch {
	case a.score < b.score:
		return -1
	case a.score > b.score:
		return 1
	}
	switch {
	case a.member < b.member:
		return -1
	case a.member > b.member:
		return 1
	}
	return 0
}
