package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"AINewsDigest/internal/app"
	"AINewsDigest/internal/config"
	"AINewsDigest/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application startup failed", "error", err)
		os.Exit(1)
	}

	runErr := application.Run(ctx)
	if closeErr := application.Close(); closeErr != nil {
		logger.Warn("shutdown cleanup failed", "error", closeErr)
	}
	if runErr != nil {
		logger.Error("application stopped", "error", runErr)
		os.Exit(1)
	}
}
