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

	"github.com/tillbridge/tillbridge/internal/app"
	"github.com/tillbridge/tillbridge/internal/auth"
	"github.com/tillbridge/tillbridge/internal/catalog"
	"github.com/tillbridge/tillbridge/internal/customers"
	"github.com/tillbridge/tillbridge/internal/erpnext"
	"github.com/tillbridge/tillbridge/internal/observability"
	"github.com/tillbridge/tillbridge/internal/platform/cache"
	"github.com/tillbridge/tillbridge/internal/platform/db"
	"github.com/tillbridge/tillbridge/internal/sales"
	syncpkg "github.com/tillbridge/tillbridge/internal/sync"
	"github.com/tillbridge/tillbridge/internal/till"
	"github.com/tillbridge/tillbridge/jobs"
	"github.com/tillbridge/tillbridge/report"
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

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, session cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	erpClient := erpnext.NewClient(logger, erpnext.Config{
		BaseURL:   cfg.ERPNextURL,
		APIKey:    cfg.ERPNextAPIKey,
		APISecret: cfg.ERPNextAPISecret,
		Warehouse: cfg.ERPNextWarehouse,
		PriceList: cfg.ERPNextPriceList,
		Territory: cfg.ERPNextTerritory,
	})

	catalogRepo := catalog.NewRepository(pool)
	catalogService := catalog.NewService(catalogRepo)
	catalogHandler := catalog.NewHandler(logger, catalogService)

	customerRepo := customers.NewRepository(pool)
	customerService := customers.NewService(customerRepo)
	customerHandler := customers.NewHandler(logger, customerService)

	saleRepo := sales.NewRepository(pool)
	tillRepo := till.NewRepository(pool)
	tillService := till.NewService(logger, tillRepo, saleRepo, redisClient)
	tillHandler := till.NewHandler(logger, tillService)

	saleService := sales.NewService(saleRepo, tillService, customerRepo)
	saleHandler := sales.NewHandler(logger, saleService, cfg.StoreName)

	syncRepo := syncpkg.NewRepository(pool)
	syncService := syncpkg.NewService(logger, erpClient, catalogRepo, customerRepo, saleRepo, syncRepo)
	syncHandler := syncpkg.NewHandler(logger, syncService)

	authService := auth.NewService(logger, erpClient, tillService, cfg.OfflinePINs)
	authHandler := auth.NewHandler(logger, authService)

	reportClient := report.NewClient(cfg.GotenbergURL)
	reportHandler := report.NewHandler(reportClient, tillService, logger, cfg.StoreName)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init job client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, jobClient, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthHandler:      authHandler,
		CatalogHandler:   catalogHandler,
		CustomersHandler: customerHandler,
		TillHandler:      tillHandler,
		SalesHandler:     saleHandler,
		SyncHandler:      syncHandler,
		ReportHandler:    reportHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
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
