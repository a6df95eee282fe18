package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sla-console/sla-console/internal/app"
	"github.com/sla-console/sla-console/internal/dashboard"
	"github.com/sla-console/sla-console/internal/filterbar"
	"github.com/sla-console/sla-console/internal/platform/cache"
	"github.com/sla-console/sla-console/internal/slaapi"
	"github.com/sla-console/sla-console/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	apiClient := slaapi.NewClient(cfg.APIBaseURL,
		slaapi.WithTimeout(cfg.APITimeout),
		slaapi.WithRetries(cfg.APIRetries),
	)

	optionCache := filterbar.NewService(apiClient, redisClient, cfg.KPICacheTTL)
	kpiCache := dashboard.NewCache(redisClient, cfg.KPICacheTTL)
	dashboardService := dashboard.NewService(apiClient, kpiCache)

	warmupJob := jobs.NewFiltersWarmupJob(optionCache, apiClient, cfg.APIServiceUsername, cfg.APIServicePassword, logger)
	refreshJob := jobs.NewCacheRefreshJob(apiClient, apiClient, cfg.APIServiceUsername, cfg.APIServicePassword, logger, dashboardService, optionCache)

	warmupTask, err := jobs.NewFiltersWarmupTask(jobs.FiltersWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	refreshTask, err := jobs.NewCacheRefreshTask(jobs.CacheRefreshPayload{RequestedAt: time.Now().UTC()})
	if err != nil {
		logger.Error("build refresh task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskFiltersWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskCacheRefresh, Handler: refreshJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "*/30 * * * *", Task: refreshTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
