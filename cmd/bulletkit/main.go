// Package main is the entry point of the bulletkit scene runner.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/bulletkit/internal/config"
	"github.com/Faultbox/bulletkit/internal/logger"
	"github.com/Faultbox/bulletkit/internal/scene"
)

func main() {
	if err := run(); err != nil {
		logger.Log.Error("run failed", zap.Error(err))
		logger.Sync()
		fmt.Fprintf(os.Stderr, "bulletkit: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Parse CLI flags first
	config.ParseFlags()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	opts := logger.Options{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Console: true,
	}
	if cfg.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.Init(opts); err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()

	logger.Log.Info("=== bulletkit ===",
		zap.String("config", config.ConfigPath()),
		zap.String("backend", cfg.Engine.Backend))
	logger.Sugar.Debugf("config: %+v", cfg)

	engine, err := scene.OpenEngine(cfg.Engine, logger.Named("engine"))
	if err != nil {
		return err
	}
	defer engine.Close()

	s, err := scene.Build(engine, cfg, logger.Named("scene"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sum, runErr := s.Run(ctx)
	if err := s.Close(); err != nil {
		logger.Log.Warn("closing scene", zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	if rec := s.Recorder(); rec != nil {
		logger.Log.Info("frames written", zap.String("dir", rec.Dir()), zap.Int("count", rec.Count()))
	}
	if sum.CollisionSteps > 0 {
		logger.Log.Warn("collisions during run",
			zap.Int("steps", sum.CollisionSteps),
			zap.Float64("min_distance", sum.MinDistance))
	}
	return nil
}
