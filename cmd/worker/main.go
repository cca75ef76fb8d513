package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/bizdesk/internal/app"
	"github.com/odyssey-erp/bizdesk/internal/customers"
	"github.com/odyssey-erp/bizdesk/internal/inventory"
	jobmetrics "github.com/odyssey-erp/bizdesk/internal/jobs"
	"github.com/odyssey-erp/bizdesk/internal/platform/cache"
	"github.com/odyssey-erp/bizdesk/internal/platform/db"
	"github.com/odyssey-erp/bizdesk/internal/profile"
	"github.com/odyssey-erp/bizdesk/internal/sales"
	"github.com/odyssey-erp/bizdesk/internal/shared"
	"github.com/odyssey-erp/bizdesk/jobs"
	"github.com/odyssey-erp/bizdesk/report"
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

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	inventoryService := inventory.NewService(inventory.NewRepository(pool), nil).WithLogger(logger)
	customerService := customers.NewService(customers.NewRepository(pool))
	salesService := sales.NewService(sales.NewRepository(pool), inventoryService, customerService, sales.Config{}).
		WithLogger(logger)
	receipts := sales.NewReceipts(salesService, report.NewClient(cfg.GotenbergURL), sales.NewReceiptCache(redisClient, cfg.ReceiptCacheTTL)).
		WithBusiness(profile.NewService(profile.NewRepository(pool)))

	metrics := jobmetrics.NewMetrics(nil)
	receiptJob := jobs.NewReceiptRenderJob(receipts, logger, metrics)
	purgeJob := jobs.NewIdempotencyPurgeJob(shared.NewIdempotencyStore(pool), logger, metrics)

	purgeTask, err := jobs.NewIdempotencyPurgeTask(jobs.DefaultIdempotencyRetention)
	if err != nil {
		logger.Error("build purge task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskRenderReceipt, Handler: receiptJob.Handle},
			{Type: jobs.TaskIdempotencyPurge, Handler: purgeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "30 3 * * *", Task: purgeTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
