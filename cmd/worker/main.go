package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/activity"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/bootstrap"
	"github.com/malandaymnhs/MALANDAYEDUTRACK-sub000/internal/config"
)

// Worker persists activity entries queued by the API when the queue is redis.
func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.QueueBackend != "redis" {
		slog.Error("worker requires QUEUE_BACKEND=redis; the memory queue is consumed inside the api process")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backends, err := bootstrap.Open(ctx, cfg)
	if err != nil {
		slog.Error("opening backends failed", "error", err)
		os.Exit(1)
	}
	defer backends.Close()

	if !backends.Redis.Healthy(ctx) {
		slog.Warn("redis not reachable yet, consumer will keep retrying", "addr", cfg.RedisAddr)
	}

	logger := activity.New(backends.Store, backends.Queue, activity.Options{Archive: backends.Archive})
	go bootstrap.DrainErrors(ctx, logger)

	slog.Info("worker started, waiting for activity entries", "queue", cfg.QueueKey)
	if err := logger.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("activity consumer stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("worker stopped")
}
