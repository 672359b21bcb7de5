package biz

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/pkg/workerpool"
	"github.com/lk2023060901/metasearch/internal/search/provider"
	"github.com/lk2023060901/metasearch/internal/search/types"
	"go.uber.org/zap"
)

// MetaSearcher 把查询分发到所选引擎并合并结果
type MetaSearcher struct {
	engines map[string]provider.Engine
	pool    *workerpool.Pool
	timeout time.Duration
	logger  *logger.Logger
}

// NewMetaSearcher 创建元搜索分发器，timeout 为整次分发的上限（0 表示只受调用方 ctx 约束）
func NewMetaSearcher(engines map[string]provider.Engine, pool *workerpool.Pool, timeout time.Duration, log *logger.Logger) *MetaSearcher {
	return &MetaSearcher{
		engines: engines,
		pool:    pool,
		timeout: timeout,
		logger:  log.Named("metasearch"),
	}
}

// Engines 返回已配置的引擎名（排序）
func (m *MetaSearcher) Engines() []string {
	names := make([]string, 0, len(m.engines))
	for name := range m.engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type engineResponse struct {
	name      string
	container *types.ResultContainer
	err       error
	elapsed   time.Duration
}

// Search 并发查询 q.Engines 中的每个引擎并合并结果
//
// 部分引擎失败时记入 UnresponsiveEngines；全部失败返回 ErrAllEnginesFailed。
func (m *MetaSearcher) Search(ctx context.Context, q *types.SearchQuery) (*types.ResultContainer, error) {
	if len(m.engines) == 0 {
		return nil, ErrNoEngines
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	merged := &types.ResultContainer{}
	names := uniqueEngines(q.Engines)
	responses := make([]engineResponse, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		responses[i].name = name

		engine, ok := m.engines[name]
		if !ok {
			responses[i].err = fmt.Errorf("%w: %s", types.ErrEngineNotFound, name)
			continue
		}

		wg.Add(1)
		slot := &responses[i]
		task := func() {
			defer wg.Done()
			start := time.Now()
			slot.container, slot.err = engine.Search(ctx, q)
			slot.elapsed = time.Since(start)
		}
		if err := m.pool.Submit(task); err != nil {
			wg.Done()
			slot.err = err
		}
	}
	wg.Wait()

	succeeded := 0
	for _, resp := range responses {
		if resp.err != nil {
			merged.AddUnresponsive(resp.name, unresponsiveReason(resp.err))
			m.logger.Warn("engine failed",
				zap.String("engine", resp.name),
				zap.String("query", q.Query),
				zap.Duration("elapsed", resp.elapsed),
				zap.Error(resp.err),
			)
			continue
		}
		succeeded++
		mergeContainer(merged, resp.container)
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("%w: %d engines unresponsive", types.ErrAllEnginesFailed, len(merged.UnresponsiveEngines))
	}

	sortResults(merged.Results)
	return merged, nil
}

func uniqueEngines(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok || n == "" {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// unresponsiveReason 把引擎错误归类为简短原因
func unresponsiveReason(err error) string {
	var engineErr *types.EngineError
	switch {
	case errors.Is(err, types.ErrEngineNotFound):
		return "engine not configured"
	case errors.Is(err, types.ErrEngineTimeout), errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, types.ErrEngineRateLimited):
		return "too many requests"
	case errors.Is(err, types.ErrInvalidResponse):
		return "invalid response"
	case errors.Is(err, workerpool.ErrPoolOverload), errors.Is(err, workerpool.ErrPoolClosed):
		return "server overloaded"
	case errors.As(err, &engineErr) && strings.HasPrefix(engineErr.Code, "HTTP_"):
		return "HTTP error"
	default:
		return "unexpected error"
	}
}

func normalizeURL(u string) string {
	return strings.TrimSuffix(strings.TrimSpace(u), "/")
}

// mergeContainer 合并单个引擎的结果，URL 相同的结果合并为一条
func mergeContainer(dst, src *types.ResultContainer) {
	if src == nil {
		return
	}

	index := make(map[string]int, len(dst.Results))
	for i, r := range dst.Results {
		index[normalizeURL(r.URL)] = i
	}

	for pos, r := range src.Results {
		// 排名越靠前权重越高
		weight := 1.0 / float64(pos+1)
		key := normalizeURL(r.URL)

		if i, ok := index[key]; ok {
			existing := &dst.Results[i]
			for _, e := range r.Engines {
				if !slices.Contains(existing.Engines, e) {
					existing.Engines = append(existing.Engines, e)
				}
			}
			existing.Score += weight + r.Score
			if len(r.Content) > len(existing.Content) {
				existing.Content = r.Content
			}
			if existing.PublishedDate == "" {
				existing.PublishedDate = r.PublishedDate
			}
			if existing.Thumbnail == "" {
				existing.Thumbnail = r.Thumbnail
			}
			continue
		}

		r.Engines = append([]string(nil), r.Engines...)
		if len(r.Engines) == 0 && r.Engine != "" {
			r.Engines = []string{r.Engine}
		}
		r.Score = weight + r.Score
		index[key] = len(dst.Results)
		dst.Results = append(dst.Results, r)
	}

	dst.Paging = dst.Paging || src.Paging
	dst.ResultsNumber = max(dst.ResultsNumber, src.ResultsNumber)
	dst.Answers = appendUnique(dst.Answers, src.Answers...)
	dst.Corrections = appendUnique(dst.Corrections, src.Corrections...)
	dst.Suggestions = appendUnique(dst.Suggestions, src.Suggestions...)

	for _, box := range src.Infoboxes {
		mergeInfobox(dst, box)
	}
	for _, u := range src.UnresponsiveEngines {
		dst.AddUnresponsive(u.Engine, u.Reason)
	}
}

func mergeInfobox(dst *types.ResultContainer, box types.Infobox) {
	id := box.ID
	if id == "" {
		id = box.Title
	}
	for i := range dst.Infoboxes {
		existing := &dst.Infoboxes[i]
		existingID := existing.ID
		if existingID == "" {
			existingID = existing.Title
		}
		if existingID != id {
			continue
		}
		for _, u := range box.URLs {
			dup := false
			for _, eu := range existing.URLs {
				if eu.URL == u.URL {
					dup = true
					break
				}
			}
			if !dup {
				existing.URLs = append(existing.URLs, u)
			}
		}
		if len(box.Content) > len(existing.Content) {
			existing.Content = box.Content
		}
		return
	}
	dst.Infoboxes = append(dst.Infoboxes, box)
}

// sortResults 按分数降序，同分保持合并顺序
func sortResults(results []types.Result) {
	for i := range results {
		results[i].Score *= float64(len(results[i].Engines))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

func appendUnique(dst []string, values ...string) []string {
	for _, v := range values {
		if v != "" && !slices.Contains(dst, v) {
			dst = append(dst, v)
		}
	}
	return dst
}
