package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/metasearch/internal/conf"
	"github.com/lk2023060901/metasearch/internal/history/refresh"
	apperrors "github.com/lk2023060901/metasearch/internal/pkg/errors"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/pkg/response"
	"github.com/lk2023060901/metasearch/internal/search/service"
	"go.uber.org/zap"
)

// RefreshStats 刷新调度器的运行统计，调度器未启用时为 nil
type RefreshStats interface {
	Stats() refresh.Stats
}

// HTTPServer HTTP 服务器
type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

// NewHTTPServer 创建 HTTP 服务器
func NewHTTPServer(
	config *conf.Config,
	log *logger.Logger,
	searchService *service.SearchService,
	refresher RefreshStats,
) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(logger.GinLogger(log, "/health"), logger.GinRecovery(log))

	router.GET("/health", healthHandler(refresher))
	router.NoRoute(func(c *gin.Context) {
		response.ErrorWithCode(c, apperrors.ErrNotFound, c.Request.URL.Path)
	})

	api := router.Group("/api/v1")
	searchService.RegisterRoutes(api)

	return &HTTPServer{
		server: &http.Server{
			Addr:              net.JoinHostPort(config.Server.Host, fmt.Sprint(config.Server.Port)),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log,
	}
}

func healthHandler(refresher RefreshStats) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		}
		if refresher != nil {
			body["refresh"] = refresher.Stats()
		}
		c.JSON(http.StatusOK, body)
	}
}

// Handler 返回路由，供测试使用
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// Start 启动 HTTP 服务器，阻塞直到 Stop
func (s *HTTPServer) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop 优雅关闭 HTTP 服务器
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")
	return s.server.Shutdown(ctx)
}
