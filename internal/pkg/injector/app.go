package injector

import (
	"github.com/lk2023060901/metasearch/internal/conf"
	historybiz "github.com/lk2023060901/metasearch/internal/history/biz"
	"github.com/lk2023060901/metasearch/internal/history/refresh"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/lk2023060901/metasearch/internal/server"
)

// App encapsulates all application dependencies
type App struct {
	Config     *conf.Config
	Logger     *logger.Logger
	HTTPServer *server.HTTPServer
	GRPCServer *server.GRPCServer
	// Cache 缓存禁用时为 nil
	Cache *historybiz.QueryCache
	// Refresher 缓存或刷新禁用时为 nil
	Refresher *refresh.Scheduler
}
