package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lk2023060901/metasearch/internal/conf"
	"github.com/lk2023060901/metasearch/internal/history/refresh"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/search/biz"
	"github.com/lk2023060901/metasearch/internal/search/service"
	"github.com/lk2023060901/metasearch/internal/search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

type noopSearcher struct{}

func (noopSearcher) Search(ctx context.Context, q *types.SearchQuery) (*types.ResultContainer, error) {
	return &types.ResultContainer{}, nil
}

func (noopSearcher) Engines() []string { return []string{"searxng"} }

type fixedStats struct{ stats refresh.Stats }

func (f fixedStats) Stats() refresh.Stats { return f.stats }

func newTestHTTPServer(refresher RefreshStats) *HTTPServer {
	cfg := &conf.Config{Server: conf.ServerConfig{Host: "127.0.0.1", Port: 0}}
	uc := biz.NewSearchUseCase(noopSearcher{}, nil, biz.Defaults{Engines: []string{"searxng"}}, logger.NewNop())
	svc := service.NewSearchService(uc, noopSearcher{}, logger.NewNop())
	return NewHTTPServer(cfg, logger.NewNop(), svc, refresher)
}

func TestHTTPServer_Health(t *testing.T) {
	tests := []struct {
		name        string
		refresher   RefreshStats
		wantRefresh bool
	}{
		{name: "without refresher"},
		{
			name:        "with refresher",
			refresher:   fixedStats{refresh.Stats{State: refresh.StateWaiting, Sweeps: 3}},
			wantRefresh: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestHTTPServer(tt.refresher)

			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			require.Equal(t, http.StatusOK, w.Code)

			var body map[string]json.RawMessage
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.JSONEq(t, `"ok"`, string(body["status"]))

			raw, ok := body["refresh"]
			assert.Equal(t, tt.wantRefresh, ok)
			if tt.wantRefresh {
				var stats refresh.Stats
				require.NoError(t, json.Unmarshal(raw, &stats))
				assert.Equal(t, refresh.StateWaiting, stats.State)
				assert.Equal(t, int64(3), stats.Sweeps)
			}
		})
	}
}

func TestHTTPServer_Routes(t *testing.T) {
	srv := newTestHTTPServer(nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=go", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGRPCServer_Health(t *testing.T) {
	cfg := &conf.Config{Server: conf.ServerConfig{Host: "127.0.0.1", GRPCPort: 0}}
	srv := NewGRPCServer(cfg, logger.NewNop())
	assert.False(t, srv.Enabled())

	lis := bufconn.Listen(1 << 20)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.Status)
}
