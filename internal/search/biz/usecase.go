package biz

import (
	"context"
	"fmt"
	"strings"

	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/search/types"
	"go.uber.org/zap"
)

// Searcher 执行一次实时搜索，由 MetaSearcher 实现
type Searcher interface {
	Search(ctx context.Context, q *types.SearchQuery) (*types.ResultContainer, error)
}

// QueryCache 请求路径使用的缓存操作，由 history/biz.QueryCache 实现
type QueryCache interface {
	Read(ctx context.Context, q *types.SearchQuery) (*types.CacheEntry, error)
	Save(ctx context.Context, entry *types.CacheEntry) error
	GetBatch(ctx context.Context, offset, count int64) ([]*types.SearchQuery, error)
	Len(ctx context.Context) (int64, error)
}

// Defaults 请求未指定时使用的查询参数
type Defaults struct {
	Engines  []string
	Category string
	Language string
}

// SearchResult 一次搜索请求的结果
type SearchResult struct {
	Query     types.SearchQuery     `json:"query"`
	Container types.ResultContainer `json:"container"`
	Cached    bool                  `json:"cached"`
}

// HistoryPage 缓存索引的一页
type HistoryPage struct {
	Offset  int64                `json:"offset"`
	Total   int64                `json:"total"`
	Queries []*types.SearchQuery `json:"queries"`
}

// SearchUseCase 搜索用例：先读缓存，未命中时实时搜索并写回
type SearchUseCase struct {
	searcher Searcher
	cache    QueryCache // nil 表示缓存已禁用
	defaults Defaults
	logger   *logger.Logger
}

// NewSearchUseCase 创建搜索用例，cache 为 nil 时只做实时搜索
func NewSearchUseCase(searcher Searcher, cache QueryCache, defaults Defaults, log *logger.Logger) *SearchUseCase {
	return &SearchUseCase{
		searcher: searcher,
		cache:    cache,
		defaults: defaults,
		logger:   log.Named("search"),
	}
}

// CacheEnabled 缓存是否启用
func (uc *SearchUseCase) CacheEnabled() bool {
	return uc.cache != nil
}

// Normalize 填充默认值并校验查询
func (uc *SearchUseCase) Normalize(q *types.SearchQuery) error {
	q.Query = strings.TrimSpace(q.Query)
	if len(q.Engines) == 0 {
		q.Engines = append([]string(nil), uc.defaults.Engines...)
	}
	if q.Category == "" {
		q.Category = uc.defaults.Category
	}
	if q.Language == "" {
		q.Language = uc.defaults.Language
	}
	if q.PageNo == 0 {
		q.PageNo = 1
	}
	return q.Validate()
}

// Search 执行搜索请求
//
// 缓存读写失败只降级为实时搜索，不影响请求结果。
func (uc *SearchUseCase) Search(ctx context.Context, q *types.SearchQuery) (*SearchResult, error) {
	if err := uc.Normalize(q); err != nil {
		return nil, err
	}

	log := uc.logger.With(zap.String("query", q.Query), zap.Strings("engines", q.Engines))

	if uc.cache != nil {
		entry, err := uc.cache.Read(ctx, q)
		switch {
		case err != nil:
			log.Warn("cache read failed, falling back to live search", zap.Error(err))
		case entry != nil:
			log.Debug("cache hit")
			return &SearchResult{Query: entry.Query, Container: entry.Container, Cached: true}, nil
		}
	}

	container, err := uc.searcher.Search(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", q.Query, err)
	}

	if uc.cache != nil {
		if err := uc.cache.Save(ctx, types.NewCacheEntry(q, container)); err != nil {
			log.Warn("cache save failed", zap.Error(err))
		}
	}

	return &SearchResult{Query: *q, Container: *container}, nil
}

// History 按索引顺序列出已缓存的查询
func (uc *SearchUseCase) History(ctx context.Context, offset, count int64) (*HistoryPage, error) {
	if uc.cache == nil {
		return nil, ErrCacheDisabled
	}

	total, err := uc.cache.Len(ctx)
	if err != nil {
		return nil, err
	}
	queries, err := uc.cache.GetBatch(ctx, offset, count)
	if err != nil {
		return nil, err
	}

	return &HistoryPage{Offset: offset, Total: total, Queries: queries}, nil
}
