// Package refresh 后台刷新调度器：按索引顺序分批扫描缓存，
// 对每个已缓存查询重新执行搜索并回写结果，每轮按目标周期限速。
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lk2023060901/metasearch/internal/history/biz"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/search/types"
	"go.uber.org/zap"
)

// Searcher 重新计算查询结果的搜索协作者
type Searcher interface {
	Search(ctx context.Context, q *types.SearchQuery) (*types.ResultContainer, error)
}

// Cache 调度器依赖的缓存操作，由 *biz.QueryCache 实现
type Cache interface {
	Scan(ctx context.Context, offset, count int64) (*biz.Batch, error)
	Update(ctx context.Context, entry *types.CacheEntry) error
}

// Config 调度器配置
type Config struct {
	Interval     time.Duration `mapstructure:"interval"`      // 目标扫描周期
	BatchSize    int           `mapstructure:"batch_size"`    // 每批查询数
	QueryTimeout time.Duration `mapstructure:"query_timeout"` // 单个查询搜索+回写的超时，0 表示不限制
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 存储故障后的最短等待
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Interval:     time.Hour,
		BatchSize:    20,
		QueryTimeout: 30 * time.Second,
		ErrorBackoff: 5 * time.Second,
	}
}

// State 调度器状态
type State string

const (
	StateIdle     State = "idle"
	StateScanning State = "scanning"
	StateWaiting  State = "waiting"
)

// Stats 调度器运行统计
type Stats struct {
	State     State     `json:"state"`
	Cursor    int64     `json:"cursor"`
	Sweeps    int64     `json:"sweeps"`    // 完成的完整扫描轮数
	Refreshed int64     `json:"refreshed"` // 成功刷新的查询数
	Failed    int64     `json:"failed"`    // 刷新失败的查询数
	LastSweep time.Time `json:"last_sweep,omitempty"`
}

// Scheduler 刷新调度器
type Scheduler struct {
	cache    Cache
	searcher Searcher
	cfg      Config
	logger   *logger.Logger

	mu      sync.Mutex
	stats   Stats
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewScheduler 创建刷新调度器
func NewScheduler(cache Cache, searcher Searcher, cfg Config, log *logger.Logger) *Scheduler {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}

	return &Scheduler{
		cache:    cache,
		searcher: searcher,
		cfg:      cfg,
		logger:   log.Named("refresh"),
		stats:    Stats{State: StateIdle},
	}
}

// Start 在后台 goroutine 中运行调度循环
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("refresh scheduler already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()
		_ = s.Run(ctx)
	}()

	return nil
}

// Stop 取消调度循环并等待其退出；正在执行的查询会先完成
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}

// Stats 返回当前统计快照
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Run 阻塞运行调度循环，直到 ctx 被取消
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("refresh scheduler started",
		zap.Int("batch_size", s.cfg.BatchSize),
		zap.Duration("interval", s.cfg.Interval),
	)
	defer func() {
		s.setState(StateIdle)
		s.logger.Info("refresh scheduler stopped")
	}()

	var cursor int64
	cycleStart := time.Now()

	for {
		s.setScanning(cursor)

		scanned, err := s.scanBatch(ctx, cursor)
		if ctx.Err() != nil {
			return nil
		}

		if err != nil {
			// 存储故障：保留游标，等待后重试本批
			wait := max(s.remaining(cycleStart), s.cfg.ErrorBackoff)
			s.logger.Warn("refresh batch aborted",
				zap.Int64("cursor", cursor),
				zap.Duration("backoff", wait),
				zap.Error(err),
			)
			s.setState(StateWaiting)
			if !s.wait(ctx, wait) {
				return nil
			}
			continue
		}

		if scanned >= int64(s.cfg.BatchSize) {
			cursor += scanned
			continue
		}

		// 本批不足 BatchSize，已到索引末尾
		s.finishSweep(cursor+scanned, time.Since(cycleStart))
		cursor = 0

		s.setState(StateWaiting)
		if !s.wait(ctx, s.remaining(cycleStart)) {
			return nil
		}
		cycleStart = time.Now()
	}
}

// scanBatch 刷新从 cursor 开始的一批查询，返回扫描过的索引成员数
//
// 存储不可用时中止本批；单个查询的其他失败只记录日志。
func (s *Scheduler) scanBatch(ctx context.Context, cursor int64) (int64, error) {
	batch, err := s.cache.Scan(ctx, cursor, int64(s.cfg.BatchSize))
	if err != nil {
		return 0, err
	}

	for _, q := range batch.Queries {
		// 每个查询开始前检查取消
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if err := s.refresh(ctx, q); err != nil && biz.IsStoreUnavailable(err) {
			return 0, err
		}
	}
	return batch.Scanned, nil
}

// refresh 重新搜索一个查询并回写结果
//
// 使用与取消解耦的 context，已开始的查询在关闭时仍会完成，仅受 QueryTimeout 约束。
func (s *Scheduler) refresh(ctx context.Context, q *types.SearchQuery) error {
	qctx, cancel := s.queryContext(ctx)
	defer cancel()

	log := s.logger.With(
		zap.String("query", q.Query),
		zap.Strings("engines", q.Engines),
		zap.Int("pageno", q.PageNo),
	)

	start := time.Now()
	container, err := s.searcher.Search(qctx, q)
	if err != nil {
		s.countFailure()
		log.Warn("refresh search failed", zap.Error(err))
		return err
	}

	err = s.cache.Update(qctx, types.NewCacheEntry(q, container))
	switch {
	case err == nil:
	case errors.Is(err, biz.ErrEntryNotFound):
		s.countFailure()
		log.Warn("refreshed query no longer cached", zap.Error(err))
		return err
	default:
		s.countFailure()
		log.Error("refresh update failed", zap.Error(err))
		return err
	}

	s.mu.Lock()
	s.stats.Refreshed++
	s.mu.Unlock()

	log.Debug("query refreshed",
		zap.Int("results", len(container.Results)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (s *Scheduler) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	detached := context.WithoutCancel(ctx)
	if s.cfg.QueryTimeout <= 0 {
		return context.WithCancel(detached)
	}
	return context.WithTimeout(detached, s.cfg.QueryTimeout)
}

func (s *Scheduler) remaining(cycleStart time.Time) time.Duration {
	return s.cfg.Interval - time.Since(cycleStart)
}

// wait 等待 d 或直到取消，取消时返回 false
func (s *Scheduler) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Scheduler) finishSweep(total int64, elapsed time.Duration) {
	s.mu.Lock()
	s.stats.Sweeps++
	s.stats.Cursor = 0
	s.stats.LastSweep = time.Now()
	stats := s.stats
	s.mu.Unlock()

	s.logger.Info("refresh sweep completed",
		zap.Int64("entries", total),
		zap.Int64("sweeps", stats.Sweeps),
		zap.Int64("refreshed", stats.Refreshed),
		zap.Int64("failed", stats.Failed),
		zap.Duration("elapsed", elapsed),
	)
}

func (s *Scheduler) setScanning(cursor int64) {
	s.mu.Lock()
	s.stats.State = StateScanning
	s.stats.Cursor = cursor
	s.mu.Unlock()
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.stats.State = state
	s.mu.Unlock()
}

func (s *Scheduler) countFailure() {
	s.mu.Lock()
	s.stats.Failed++
	s.mu.Unlock()
}
