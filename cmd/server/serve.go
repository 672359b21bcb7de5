package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/lk2023060901/metasearch/internal/pkg/injector"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and gRPC servers together with the cache refresher",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServers(ctx, app)
		},
	}
}

// runServers 运行服务器直到 ctx 取消
//
// 刷新器先于 HTTP 启动，在所有服务器退出后才停止。
func runServers(ctx context.Context, app *injector.App) error {
	log := app.Logger

	if app.Refresher != nil {
		if err := app.Refresher.Start(context.WithoutCancel(ctx)); err != nil {
			return err
		}
		defer app.Refresher.Stop()
	} else {
		log.Info("cache refresher disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(app.HTTPServer.Start)
	if app.GRPCServer.Enabled() {
		g.Go(app.GRPCServer.Start)
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer cancel()

		if app.GRPCServer.Enabled() {
			app.GRPCServer.Stop()
		}
		if err := app.HTTPServer.Stop(shutdownCtx); err != nil {
			log.Error("HTTP server forced to shutdown", zap.Error(err))
		}
		return nil
	})

	log.Info("servers started", zap.Int("pid", os.Getpid()))

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", zap.Error(err))
		return err
	}

	log.Info("servers exited")
	return nil
}
