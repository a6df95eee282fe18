package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sla-console/sla-console/internal/app"
	"github.com/sla-console/sla-console/internal/audit"
	"github.com/sla-console/sla-console/internal/auth"
	"github.com/sla-console/sla-console/internal/dashboard"
	"github.com/sla-console/sla-console/internal/filterbar"
	"github.com/sla-console/sla-console/internal/masterdata"
	"github.com/sla-console/sla-console/internal/observability"
	"github.com/sla-console/sla-console/internal/platform/cache"
	"github.com/sla-console/sla-console/internal/platform/db"
	"github.com/sla-console/sla-console/internal/report"
	"github.com/sla-console/sla-console/internal/shared"
	"github.com/sla-console/sla-console/internal/slaapi"
	"github.com/sla-console/sla-console/internal/view"
	"github.com/sla-console/sla-console/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	sessionManager := shared.NewSessionManager(redisClient, "sla_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	apiClient := slaapi.NewClient(cfg.APIBaseURL,
		slaapi.WithTimeout(cfg.APITimeout),
		slaapi.WithRetries(cfg.APIRetries),
		slaapi.WithObserver(metrics.ObserveUpstream),
	)

	auditTrail := audit.NewTrail(logger, dbpool)

	authService := auth.NewService(logger, apiClient)
	authHandler := auth.NewHandler(logger, authService, templates, sessionManager, csrfManager, auditTrail)

	optionCache := filterbar.NewService(apiClient, redisClient, cfg.KPICacheTTL)
	kpiCache := dashboard.NewCache(redisClient, cfg.KPICacheTTL)
	dashboardService := dashboard.NewService(apiClient, kpiCache)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService, optionCache, templates, csrfManager, app.ForceLogout)

	reportService := report.NewService(apiClient, dashboardService, optionCache)
	reportHandler := report.NewHandler(logger, reportService, optionCache, templates, csrfManager, auditTrail, app.ForceLogout)

	masterService := masterdata.NewService(apiClient)
	masterHandler := masterdata.NewHandler(logger, masterService, templates, csrfManager, app.ForceLogout)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("create jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, jobsClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		CSRFManager:       csrfManager,
		AuthHandler:       authHandler,
		DashboardHandler:  dashboardHandler,
		ReportHandler:     reportHandler,
		MasterDataHandler: masterHandler,
		JobsHandler:       jobsHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
