package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"vitalia/internal/app"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the monitor loop and the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			defer logger.Sync()

			a, err := app.NewApp(cfg, logger)
			if err != nil {
				logger.Error("Failed to create vitalia service", zap.Error(err))
				return err
			}
			defer a.Close()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := a.Start(ctx); err != nil {
				logger.Error("Service error", zap.Error(err))
				return err
			}

			logger.Info("Vitalia service stopped")
			return nil
		},
	}
}
