package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/specscan/backend/internal/config"
	"github.com/specscan/backend/internal/logger"
	"github.com/specscan/backend/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Invalid configuration", map[string]interface{}{
			"error": err.Error(),
		})
	}

	logger.Initialize(logger.Options{
		Level: cfg.Log.Level,
		Dir:   cfg.Log.Dir,
		JSON:  cfg.Log.JSON,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := server.Run(ctx, cfg); err != nil {
		logger.Error("Server stopped with error", map[string]interface{}{
			"error": err.Error(),
		})
		stop()
		os.Exit(1)
	}
}
