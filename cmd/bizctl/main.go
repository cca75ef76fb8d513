package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizdesk/cmd/bizctl/cli"
	"github.com/odyssey-erp/bizdesk/internal/app"
	"github.com/odyssey-erp/bizdesk/internal/auth"
	"github.com/odyssey-erp/bizdesk/internal/customers"
	"github.com/odyssey-erp/bizdesk/internal/expenses"
	"github.com/odyssey-erp/bizdesk/internal/inventory"
	"github.com/odyssey-erp/bizdesk/internal/platform/db"
	"github.com/odyssey-erp/bizdesk/internal/sales"
	"github.com/odyssey-erp/bizdesk/internal/tax"
)

type registrar struct {
	service *auth.Service
}

func (r registrar) Register(ctx context.Context, email, password string) (string, error) {
	user, err := r.service.Register(ctx, email, password)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping cli")
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	openDB := func(ctx context.Context) (*pgxpool.Pool, error) {
		return db.New(ctx, cfg.PGDSN, db.Options{MaxConns: 2})
	}

	cli.Execute(cli.Env{
		Tax: func(ctx context.Context) (cli.TaxReporter, func(), error) {
			pool, err := openDB(ctx)
			if err != nil {
				return nil, nil, err
			}
			inventoryService := inventory.NewService(inventory.NewRepository(pool), nil)
			customerService := customers.NewService(customers.NewRepository(pool))
			salesService := sales.NewService(sales.NewRepository(pool), inventoryService, customerService, sales.Config{})
			return tax.NewService(salesService, expenses.NewService(expenses.NewRepository(pool))), pool.Close, nil
		},
		Jobs: func(ctx context.Context) (cli.ReceiptQueue, func(), error) {
			c := cli.NewJobsCLI(cfg.RedisAddr)
			return c, func() { _ = c.Close() }, nil
		},
		Users: func(ctx context.Context) (cli.UserRegistrar, func(), error) {
			pool, err := openDB(ctx)
			if err != nil {
				return nil, nil, err
			}
			return registrar{service: auth.NewService(auth.NewRepository(pool), nil)}, pool.Close, nil
		},
		Migrate: func(ctx context.Context) error {
			pool, err := openDB(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			return db.Migrate(ctx, pool)
		},
	})
}
