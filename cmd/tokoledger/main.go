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
	"golang.org/x/sync/errgroup"

	"github.com/tokoledger/tokoledger/internal/app"
	"github.com/tokoledger/tokoledger/internal/batch"
	"github.com/tokoledger/tokoledger/internal/observability"
	"github.com/tokoledger/tokoledger/internal/platform/cache"
	"github.com/tokoledger/tokoledger/internal/platform/db"
	"github.com/tokoledger/tokoledger/internal/profitshare"
	"github.com/tokoledger/tokoledger/internal/report"
	"github.com/tokoledger/tokoledger/internal/salesorder"
	"github.com/tokoledger/tokoledger/internal/shared"
	"github.com/tokoledger/tokoledger/jobs"
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

	if cfg.MigrateOnStart {
		if err := db.Migrate(cfg.PGDSN, cfg.MigrationsDir); err != nil {
			logger.Error("run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, summaries will be recomputed", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	location := cfg.Location()

	auditLogger := shared.NewAuditLogger(pool)
	idempotencyStore := shared.NewIdempotencyStore(pool)

	var reportCache *report.Cache
	if redisClient != nil {
		reportCache = report.NewCache(redisClient, cfg.ReportCacheTTL)
	}
	reportRepo := report.NewRepository(pool)
	reportService := report.NewService(reportRepo, reportCache, location)
	reportHandler := report.NewHandler(logger, reportService)

	batchRepo := batch.NewRepository(pool)
	batchService := batch.NewService(batchRepo, auditLogger)
	batchHandler := batch.NewHandler(logger, batchService)

	orderRepo := salesorder.NewRepository(pool)
	orderService := salesorder.NewService(orderRepo, auditLogger, idempotencyStore, reportCache, location)
	orderHandler := salesorder.NewHandler(logger, orderService)

	shareRepo := profitshare.NewRepository(pool)
	shareService := profitshare.NewService(shareRepo, auditLogger, reportCache, location)
	shareHandler := profitshare.NewHandler(logger, shareService)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	metrics := observability.NewMetrics()

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Pool:               pool,
		BatchHandler:       batchHandler,
		OrderHandler:       orderHandler,
		ReportHandler:      reportHandler,
		ProfitShareHandler: shareHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("http server", slog.Any("error", err))
		os.Exit(1)
	}
}
