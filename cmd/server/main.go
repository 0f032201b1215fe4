package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"gig-match/internal/app"
	"gig-match/internal/config"
	"gig-match/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.App.LogJSON, cfg.App.LogDebug)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}

	if err := run(cfg, lg); err != nil {
		_ = lg.Sync()
		log.Fatalf("server error: %v", err)
	}
	_ = lg.Sync()
}

func run(cfg config.Config, lg *zap.Logger) error {
	addr, err := app.ListenAddr(cfg.App.HTTPPort)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bootstrap, cleanup, err := app.Bootstrap(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := cleanup(); err != nil {
			lg.Warn("cleanup error", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- bootstrap.Fiber.Listen(addr)
	}()
	lg.Info("server started",
		zap.String("addr", addr),
		zap.String("env", cfg.App.Environment),
		zap.String("store", string(cfg.Matching.Store)),
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		lg.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return bootstrap.Fiber.ShutdownWithContext(sctx)
	}
}
