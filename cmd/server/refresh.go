package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Run only the cache refresher (no HTTP/gRPC servers)",
		Long: `Run the background refresher on its own. Useful when several front ends share
one cache store and a single process should keep it fresh.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := bootstrap()
			if err != nil {
				return err
			}
			defer cleanup()

			if app.Refresher == nil {
				return errors.New("refresher is disabled: enable both cache.enable and refresh.enable")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app.Logger.Info("running cache refresher")
			return app.Refresher.Run(ctx)
		},
	}
}
