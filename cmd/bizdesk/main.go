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

	"github.com/odyssey-erp/bizdesk/internal/app"
	"github.com/odyssey-erp/bizdesk/internal/audit"
	"github.com/odyssey-erp/bizdesk/internal/auth"
	"github.com/odyssey-erp/bizdesk/internal/customers"
	"github.com/odyssey-erp/bizdesk/internal/expenses"
	"github.com/odyssey-erp/bizdesk/internal/inventory"
	"github.com/odyssey-erp/bizdesk/internal/observability"
	"github.com/odyssey-erp/bizdesk/internal/platform/cache"
	"github.com/odyssey-erp/bizdesk/internal/platform/db"
	"github.com/odyssey-erp/bizdesk/internal/profile"
	"github.com/odyssey-erp/bizdesk/internal/sales"
	"github.com/odyssey-erp/bizdesk/internal/shared"
	"github.com/odyssey-erp/bizdesk/internal/tax"
	"github.com/odyssey-erp/bizdesk/jobs"
	"github.com/odyssey-erp/bizdesk/report"
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

	dbpool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	if err := db.Migrate(ctx, dbpool); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

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

	metrics := observability.NewMetrics()
	sessions := shared.NewSessionManager(redisClient, "bizdesk_session", cfg.SessionTTL)
	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		_ = inspector.Close()
	}()

	authService := auth.NewService(auth.NewRepository(dbpool), sessions)
	inventoryService := inventory.NewService(inventory.NewRepository(dbpool), auditLogger).WithLogger(logger)
	customerService := customers.NewService(customers.NewRepository(dbpool))
	profileService := profile.NewService(profile.NewRepository(dbpool))
	expenseService := expenses.NewService(expenses.NewRepository(dbpool))
	salesService := sales.NewService(sales.NewRepository(dbpool), inventoryService, customerService, sales.Config{
		MaxAttempts: cfg.CheckoutMaxAttempts,
		RetryBase:   cfg.CheckoutRetryBase,
	}).
		WithIdempotency(idempotencyStore).
		WithAudit(auditLogger).
		WithReceiptQueue(jobClient).
		WithMetrics(metrics).
		WithBusiness(profileService).
		WithLogger(logger)
	taxService := tax.NewService(salesService, expenseService)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	receipts := sales.NewReceipts(salesService, pdfClient, sales.NewReceiptCache(redisClient, cfg.ReceiptCacheTTL)).
		WithBusiness(profileService)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Sessions:         sessions,
		Metrics:          metrics,
		AuthHandler:      auth.NewHandler(logger, authService, cfg.IsProduction()),
		AuditHandler:     audit.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool))),
		ProfileHandler:   profile.NewHandler(logger, profileService),
		InventoryHandler: inventory.NewHandler(logger, inventoryService),
		CustomerHandler:  customers.NewHandler(logger, customerService),
		ExpenseHandler:   expenses.NewHandler(logger, expenseService),
		SalesHandler:     sales.NewHandler(logger, salesService, receipts),
		TaxHandler:       tax.NewHandler(logger, taxService),
		ReportHandler:    report.NewHandler(report.NewClient(cfg.GotenbergURL).WithPage(report.A4Page), logger).WithTaxes(taxService),
		JobHandler:       jobs.NewHandler(inspector, logger),
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
