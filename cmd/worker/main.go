package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/tillbridge/tillbridge/internal/app"
	"github.com/tillbridge/tillbridge/internal/catalog"
	"github.com/tillbridge/tillbridge/internal/customers"
	"github.com/tillbridge/tillbridge/internal/erpnext"
	jobmetrics "github.com/tillbridge/tillbridge/internal/jobs"
	"github.com/tillbridge/tillbridge/internal/platform/db"
	"github.com/tillbridge/tillbridge/internal/sales"
	syncpkg "github.com/tillbridge/tillbridge/internal/sync"
	"github.com/tillbridge/tillbridge/jobs"
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

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.InitSchema(ctx, pool); err != nil {
		logger.Error("init schema", slog.Any("error", err))
		os.Exit(1)
	}

	erpClient := erpnext.NewClient(logger, erpnext.Config{
		BaseURL:   cfg.ERPNextURL,
		APIKey:    cfg.ERPNextAPIKey,
		APISecret: cfg.ERPNextAPISecret,
		Warehouse: cfg.ERPNextWarehouse,
		PriceList: cfg.ERPNextPriceList,
		Territory: cfg.ERPNextTerritory,
	})

	catalogRepo := catalog.NewRepository(pool)
	customerRepo := customers.NewRepository(pool)
	saleRepo := sales.NewRepository(pool)
	syncRepo := syncpkg.NewRepository(pool)
	syncService := syncpkg.NewService(logger, erpClient, catalogRepo, customerRepo, saleRepo, syncRepo)

	metrics := jobmetrics.NewMetrics(nil)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers:  jobs.NewSyncHandlers(logger, syncService, metrics),
		Cron: []jobs.CronRegistration{
			{Spec: cfg.SyncCron, Task: jobs.NewSyncFullTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: cfg.PullCron, Task: jobs.NewSyncPullTask(), Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
