package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lk2023060901/metasearch/internal/search/types"
	"golang.org/x/time/rate"
)

// Engine defines the interface for upstream search engines
type Engine interface {
	// Search executes a query against the upstream engine
	Search(ctx context.Context, q *types.SearchQuery) (*types.ResultContainer, error)

	// Name returns the engine name queries refer to
	Name() string

	// Kind returns the upstream API kind
	Kind() types.EngineKind

	// Validate validates the engine configuration
	Validate() error
}

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxRetries   = 3
	defaultRetryBackoff = 500 * time.Millisecond
	userAgent           = "metasearch/1.0"
)

// BaseEngine provides common functionality for all engines
type BaseEngine struct {
	config       *types.EngineConfig
	httpClient   *http.Client
	limiter      *rate.Limiter
	apiKeys      []string // Support multiple API keys for rotation
	keyIndex     atomic.Uint32
	retryBackoff time.Duration
}

// NewBaseEngine creates a new base engine
func NewBaseEngine(config *types.EngineConfig) *BaseEngine {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	// Parse multiple API keys (comma-separated)
	var apiKeys []string
	if config.APIKey != "" {
		for _, k := range strings.Split(config.APIKey, ",") {
			if k = strings.TrimSpace(k); k != "" {
				apiKeys = append(apiKeys, k)
			}
		}
	}

	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RateLimit), max(1, int(config.RateLimit)))
	}

	return &BaseEngine{
		config:       config,
		httpClient:   httpClient,
		limiter:      limiter,
		apiKeys:      apiKeys,
		retryBackoff: defaultRetryBackoff,
	}
}

// Name returns the engine name
func (b *BaseEngine) Name() string {
	return b.config.Name
}

// Kind returns the engine kind
func (b *BaseEngine) Kind() types.EngineKind {
	return b.config.Kind
}

// Config returns the engine configuration
func (b *BaseEngine) Config() *types.EngineConfig {
	return b.config
}

// APIKey returns the next API key (round robin)
func (b *BaseEngine) APIKey() string {
	if len(b.apiKeys) == 0 {
		return ""
	}
	i := b.keyIndex.Add(1) - 1
	return b.apiKeys[int(i)%len(b.apiKeys)]
}

// Validate validates the engine configuration
func (b *BaseEngine) Validate() error {
	return b.config.Validate()
}

// categoryFor returns the category results are tagged with
func (b *BaseEngine) categoryFor(q *types.SearchQuery) string {
	if b.config.Category != "" {
		return b.config.Category
	}
	return q.Category
}

func (b *BaseEngine) setDefaultHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
}

// DoRequest executes an HTTP request with rate limiting and retry logic.
// Transport errors, 429 and 5xx responses are retried with exponential backoff.
func (b *BaseEngine) DoRequest(ctx context.Context, req *http.Request) (*http.Response, error) {
	maxRetries := b.config.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			backoff := b.retryBackoff << uint(i-1)
			select {
			case <-ctx.Done():
				return nil, b.requestError(ctx.Err())
			case <-time.After(backoff):
			}
		}

		if b.limiter != nil {
			if err := b.limiter.Wait(ctx); err != nil {
				return nil, &types.EngineError{
					Engine:  b.Name(),
					Code:    "RATE_LIMITED",
					Message: "local rate limit wait aborted",
					Err:     fmt.Errorf("%w: %w", types.ErrEngineRateLimited, err),
				}
			}
		}

		attempt := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, b.requestError(err)
			}
			attempt.Body = body
		}

		resp, err := b.httpClient.Do(attempt)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = statusError(b.Name(), resp)
			continue
		}
		return resp, nil
	}

	return nil, b.requestError(fmt.Errorf("request failed after %d attempts: %w", maxRetries, lastErr))
}

func (b *BaseEngine) requestError(err error) error {
	engineErr := &types.EngineError{
		Engine:  b.Name(),
		Code:    "REQUEST_FAILED",
		Message: "failed to execute request",
		Err:     err,
	}
	if isTimeout(err) {
		engineErr.Code = "TIMEOUT"
		engineErr.Err = fmt.Errorf("%w: %w", types.ErrEngineTimeout, err)
	}
	return engineErr
}

// statusError consumes and closes the response body
func statusError(engine string, resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	err := &types.EngineError{
		Engine:  engine,
		Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
		Message: strings.TrimSpace(string(body)),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		err.Err = types.ErrEngineRateLimited
	}
	return err
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
