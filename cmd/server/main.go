package main

import (
	"fmt"
	"os"

	"github.com/lk2023060901/metasearch/internal/conf"
	"github.com/lk2023060901/metasearch/internal/pkg/injector"
	"github.com/lk2023060901/metasearch/internal/pkg/logger"
	"github.com/spf13/cobra"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "metasearch",
		Short: "Metasearch front end with a persistent query cache",
		Long: `Metasearch fans each query out to the configured upstream engines, merges the
results and caches them by query fingerprint. A background refresher re-runs
every cached query once per interval so cached answers stay fresh.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/config.yaml", "config file path (empty: defaults + environment)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(refreshCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// bootstrap 加载配置、初始化日志并装配依赖
func bootstrap() (*injector.App, func(), error) {
	config, err := conf.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}

	log, err := logger.New(&config.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(log)

	app, cleanup, err := injector.InitializeApp(config, log)
	if err != nil {
		_ = log.Sync()
		return nil, nil, err
	}

	return app, func() {
		cleanup()
		_ = log.Sync()
	}, nil
}
