package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lk2023060901/metasearch/internal/history/biz"
	"github.com/lk2023060901/metasearch/internal/history/data"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	mu      sync.Mutex
	calls   []string
	delay   time.Duration
	fail    map[string]error
	started chan string
}

func (f *fakeSearcher) Search(ctx context.Context, q *types.SearchQuery) (*types.ResultContainer, error) {
	f.mu.Lock()
	f.calls = append(f.calls, q.Query)
	f.mu.Unlock()

	if f.started != nil {
		select {
		case f.started <- q.Query:
		default:
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.fail[q.Query]; err != nil {
		return nil, err
	}
	return &types.ResultContainer{
		Results: []types.Result{{Title: "fresh " + q.Query, URL: "https://example.com/" + q.Query}},
	}, nil
}

func (f *fakeSearcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func query(text string) *types.SearchQuery {
	return &types.SearchQuery{Query: text, Engines: []string{"searxng"}, PageNo: 1}
}

func seedCache(t *testing.T, texts ...string) *biz.QueryCache {
	t.Helper()
	cache := biz.NewQueryCache(data.NewMemoryStore(), biz.Options{}, logger.NewNop())
	for _, text := range texts {
		require.NoError(t, cache.Save(context.Background(), types.NewCacheEntry(query(text), nil)))
	}
	return cache
}

func testConfig() Config {
	return Config{
		Interval:     time.Hour,
		BatchSize:    20,
		QueryTimeout: time.Second,
		ErrorBackoff: 50 * time.Millisecond,
	}
}

func TestScheduler_SweepThenWait(t *testing.T) {
	cache := seedCache(t, "A", "B", "C")
	searcher := &fakeSearcher{}
	s := NewScheduler(cache, searcher, testConfig(), logger.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		st := s.Stats()
		return st.Sweeps == 1 && st.State == StateWaiting
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"A", "B", "C"}, searcher.Calls())

	st := s.Stats()
	assert.Equal(t, int64(0), st.Cursor)
	assert.Equal(t, int64(3), st.Refreshed)
	assert.Zero(t, st.Failed)

	for _, text := range []string{"A", "B", "C"} {
		entry, err := cache.Read(context.Background(), query(text))
		require.NoError(t, err)
		require.NotNil(t, entry)
		require.Len(t, entry.Container.Results, 1)
		assert.Equal(t, "fresh "+text, entry.Container.Results[0].Title)
	}
}

func TestScheduler_MultipleBatches(t *testing.T) {
	texts := make([]string, 25)
	for i := range texts {
		texts[i] = fmt.Sprintf("q%02d", i)
	}
	cache := seedCache(t, texts...)
	searcher := &fakeSearcher{}

	cfg := testConfig()
	cfg.BatchSize = 10
	s := NewScheduler(cache, searcher, cfg, logger.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Stats().Sweeps == 1
	}, 2*time.Second, 5*time.Millisecond)

	// 每个条目每轮恰好刷新一次，按序号顺序
	assert.Equal(t, texts, searcher.Calls())
}

func TestScheduler_NextSweepAfterInterval(t *testing.T) {
	cache := seedCache(t, "A")
	searcher := &fakeSearcher{}

	cfg := testConfig()
	cfg.Interval = 50 * time.Millisecond
	s := NewScheduler(cache, searcher, cfg, logger.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Stats().Sweeps >= 3
	}, 2*time.Second, 5*time.Millisecond)

	assert.GreaterOrEqual(t, len(searcher.Calls()), 3)
}

func TestScheduler_QueryFailureDoesNotAbortBatch(t *testing.T) {
	cache := seedCache(t, "A", "B", "C")
	searcher := &fakeSearcher{fail: map[string]error{"B": errors.New("upstream down")}}
	s := NewScheduler(cache, searcher, testConfig(), logger.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		return s.Stats().Sweeps == 1
	}, 2*time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"A", "B", "C"}, searcher.Calls())
	st := s.Stats()
	assert.Equal(t, int64(2), st.Refreshed)
	assert.Equal(t, int64(1), st.Failed)
}

func TestScheduler_CancelMidBatch(t *testing.T) {
	cache := seedCache(t, "A", "B", "C", "D", "E")
	searcher := &fakeSearcher{
		delay:   200 * time.Millisecond,
		started: make(chan string, 1),
	}
	s := NewScheduler(cache, searcher, testConfig(), logger.NewNop())

	require.NoError(t, s.Start(context.Background()))

	select {
	case <-searcher.started:
	case <-time.After(2 * time.Second):
		t.Fatal("first query never started")
	}

	stopped := make(chan struct{})
	go func() {
		s.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop promptly")
	}

	// 正在执行的查询完成并回写，之后不再开始新查询
	assert.Equal(t, []string{"A"}, searcher.Calls())
	entry, err := cache.Read(context.Background(), query("A"))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "fresh A", entry.Container.Results[0].Title)
	assert.Equal(t, StateIdle, s.Stats().State)
}

func TestScheduler_CancelDuringWait(t *testing.T) {
	cache := seedCache(t)
	s := NewScheduler(cache, &fakeSearcher{}, testConfig(), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return s.Stats().State == StateWaiting
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}
}

type unavailableCache struct {
	scans atomic.Int32
}

func (c *unavailableCache) Scan(ctx context.Context, offset, count int64) (*biz.Batch, error) {
	c.scans.Add(1)
	return nil, fmt.Errorf("%w: connection refused", biz.ErrStoreUnavailable)
}

func (c *unavailableCache) Update(ctx context.Context, entry *types.CacheEntry) error {
	return nil
}

func TestScheduler_StoreFailureBacksOff(t *testing.T) {
	cache := &unavailableCache{}
	searcher := &fakeSearcher{}

	cfg := testConfig()
	cfg.Interval = time.Millisecond
	cfg.ErrorBackoff = 50 * time.Millisecond
	s := NewScheduler(cache, searcher, cfg, logger.NewNop())

	require.NoError(t, s.Start(context.Background()))
	time.Sleep(220 * time.Millisecond)
	s.Stop()

	scans := cache.scans.Load()
	assert.GreaterOrEqual(t, scans, int32(2))
	assert.LessOrEqual(t, scans, int32(6))
	assert.Empty(t, searcher.Calls())
	assert.Zero(t, s.Stats().Sweeps)
}

type updateFailsCache struct {
	*biz.QueryCache
}

func (c updateFailsCache) Update(ctx context.Context, entry *types.CacheEntry) error {
	return fmt.Errorf("%w: write timeout", biz.ErrStoreUnavailable)
}

func TestScheduler_StoreFailureOnUpdateAbortsBatch(t *testing.T) {
	cache := updateFailsCache{seedCache(t, "A", "B", "C")}
	searcher := &fakeSearcher{}
	s := NewScheduler(cache, searcher, testConfig(), logger.NewNop())

	require.NoError(t, s.Start(context.Background()))
	require.Eventually(t, func() bool {
		return s.Stats().State == StateWaiting
	}, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	// 第一个查询回写失败即中止本批，游标保持不变
	assert.Equal(t, []string{"A"}, searcher.Calls())
	assert.Zero(t, s.Stats().Sweeps)
	assert.Equal(t, int64(0), s.Stats().Cursor)
}

func TestScheduler_StartTwice(t *testing.T) {
	s := NewScheduler(seedCache(t), &fakeSearcher{}, testConfig(), logger.NewNop())

	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Error(t, s.Start(context.Background()))
}

func TestScheduler_RestartAfterParentCancel(t *testing.T) {
	s := NewScheduler(seedCache(t), &fakeSearcher{}, testConfig(), logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return !s.running
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Start(context.Background()))
	s.Stop()
	s.Stop()
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(seedCache(t), &fakeSearcher{}, Config{}, logger.NewNop())

	def := DefaultConfig()
	assert.Equal(t, def.BatchSize, s.cfg.BatchSize)
	assert.Equal(t, def.Interval, s.cfg.Interval)
	assert.Equal(t, def.ErrorBackoff, s.cfg.ErrorBackoff)
	assert.Equal(t, StateIdle, s.Stats().State)
}
