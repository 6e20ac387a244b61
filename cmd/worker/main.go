package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"eeytech.com/console/internal/auth"
	"eeytech.com/console/internal/config"
	"eeytech.com/console/internal/jobs"
	"eeytech.com/console/internal/obs"
	"eeytech.com/console/internal/store/pg"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.LogFormat, os.Stdout)
	obs.SetLogger(logger)
	obs.Init()

	if cfg.PGDSN == "" || cfg.RedisAddr == "" {
		logger.Error("worker requires PG_DSN and REDIS_ADDR")
		os.Exit(1)
	}

	store, err := pg.Open(cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer store.Close()

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	})
	if err != nil {
		logger.Error("token service", slog.Any("error", err))
		os.Exit(1)
	}
	sessions, err := auth.NewSessionManager(store, tokens,
		auth.WithAdminApplication(cfg.AdminAppSlug),
		auth.WithLogger(logger),
	)
	if err != nil {
		logger.Error("session manager", slog.Any("error", err))
		os.Exit(1)
	}

	pruneJob := jobs.NewPruneSessionsJob(sessions, logger)
	pruneTask, err := jobs.NewPruneSessionsTask("schedule")
	if err != nil {
		logger.Error("build prune task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskPruneSessions, Handler: pruneJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.PruneSchedule, Task: pruneTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker starting", slog.String("prune_schedule", cfg.PruneSchedule))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
