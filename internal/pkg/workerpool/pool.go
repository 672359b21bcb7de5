package workerpool

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed   = errors.New("worker pool is closed")
	ErrPoolOverload = errors.New("worker pool is overloaded")
)

// Config Worker Pool 配置
type Config struct {
	Workers        int           `mapstructure:"workers"`         // worker 数量上限
	ExpiryDuration time.Duration `mapstructure:"expiry_duration"` // 空闲 worker 回收间隔
	Nonblocking    bool          `mapstructure:"nonblocking"`     // 池满时立即返回 ErrPoolOverload 而不是阻塞
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers:        64,
		ExpiryDuration: time.Minute,
	}
}

// Statistics 统计信息
type Statistics struct {
	Submitted int64 // 已提交
	Completed int64 // 已完成（含 panic）
	Panicked  int64 // panic 次数
	Rejected  int64 // 被拒绝
}

// Pool 基于 ants 的 goroutine 池
type Pool struct {
	pool   *ants.Pool
	closed atomic.Bool

	submitted atomic.Int64
	completed atomic.Int64
	panicked  atomic.Int64
	rejected  atomic.Int64

	logger *logger.Logger
}

// New 创建 Worker Pool
func New(config *Config, log *logger.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Workers <= 0 {
		return nil, fmt.Errorf("workerpool: workers must be > 0, got %d", config.Workers)
	}

	p := &Pool{logger: log.Named("workerpool")}

	opts := []ants.Option{
		ants.WithNonblocking(config.Nonblocking),
		ants.WithPanicHandler(func(v interface{}) {
			p.panicked.Add(1)
			p.logger.Error("worker panic", zap.Any("error", v), zap.Stack("stack"))
		}),
	}
	if config.ExpiryDuration > 0 {
		opts = append(opts, ants.WithExpiryDuration(config.ExpiryDuration))
	}

	antsPool, err := ants.NewPool(config.Workers, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}
	p.pool = antsPool

	return p, nil
}

// Submit 提交任务
func (p *Pool) Submit(task func()) error {
	if p.closed.Load() {
		return ErrPoolClosed
	}

	err := p.pool.Submit(func() {
		defer p.completed.Add(1)
		task()
	})
	switch {
	case err == nil:
		p.submitted.Add(1)
		return nil
	case errors.Is(err, ants.ErrPoolOverload):
		p.rejected.Add(1)
		return ErrPoolOverload
	case errors.Is(err, ants.ErrPoolClosed):
		p.rejected.Add(1)
		return ErrPoolClosed
	default:
		p.rejected.Add(1)
		return err
	}
}

// Running 获取运行中的 worker 数量
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Free 获取空闲 worker 数量
func (p *Pool) Free() int {
	return p.pool.Free()
}

// Cap 获取容量
func (p *Pool) Cap() int {
	return p.pool.Cap()
}

// Stats 获取统计信息
func (p *Pool) Stats() Statistics {
	return Statistics{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Panicked:  p.panicked.Load(),
		Rejected:  p.rejected.Load(),
	}
}

// Shutdown 关闭并等待运行中的任务结束，超时返回错误
func (p *Pool) Shutdown(timeout time.Duration) error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.pool.ReleaseTimeout(timeout); err != nil {
		p.logger.Warn("worker pool release timed out",
			zap.Int("running", p.pool.Running()),
			zap.Duration("timeout", timeout),
		)
		return err
	}
	return nil
}
