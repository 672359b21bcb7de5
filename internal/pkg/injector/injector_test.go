package injector

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lk2023060901/metasearch/internal/conf"
	"github.com/lk2023060901/metasearch/internal/history/refresh"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/search/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *conf.Config {
	return &conf.Config{
		Server: conf.ServerConfig{Host: "127.0.0.1", Port: 8080},
		Cache:  conf.CacheConfig{Enable: true, Backend: conf.BackendMemory, KeyPrefix: "TEST"},
		Refresh: conf.RefreshConfig{
			Enable: true,
			Config: refresh.DefaultConfig(),
		},
		Search: conf.SearchConfig{
			Workers: 4,
			Engines: []types.EngineConfig{
				{Name: "searxng", Kind: types.KindSearXNG, APIHost: "http://127.0.0.1:1"},
			},
		},
	}
}

func TestInitializeApp(t *testing.T) {
	app, cleanup, err := InitializeApp(testConfig(), logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, app.HTTPServer)
	assert.NotNil(t, app.GRPCServer)
	assert.NotNil(t, app.Cache)
	require.NotNil(t, app.Refresher)
	assert.Equal(t, refresh.StateIdle, app.Refresher.Stats().State)

	w := httptest.NewRecorder()
	app.HTTPServer.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/engines", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "searxng")
}

func TestInitializeApp_CacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Cache.Enable = false

	app, cleanup, err := InitializeApp(cfg, logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, app.Cache)
	assert.Nil(t, app.Refresher)

	w := httptest.NewRecorder()
	app.HTTPServer.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	app.HTTPServer.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "refresh")
}

func TestInitializeApp_RefreshDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Refresh.Enable = false

	app, cleanup, err := InitializeApp(cfg, logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, app.Cache)
	assert.Nil(t, app.Refresher)
}

func TestInitializeApp_InvalidEngine(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Engines = append(cfg.Search.Engines, types.EngineConfig{Name: "tavily", Kind: types.KindTavily, APIHost: "https://api.tavily.com"})

	_, _, err := InitializeApp(cfg, logger.NewNop())
	assert.ErrorIs(t, err, types.ErrMissingAPIKey)
}

func TestProvideSearchUseCase_DefaultsToAllEngines(t *testing.T) {
	cfg := testConfig()
	cfg.Search.Timeout = 300 * time.Millisecond

	app, cleanup, err := InitializeApp(cfg, logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	w := httptest.NewRecorder()
	app.HTTPServer.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/search?q=go", nil))
	// 引擎不可达时返回 502 而不是缺少引擎的 400
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
