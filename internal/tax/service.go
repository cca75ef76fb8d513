package tax

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/bizdesk/internal/expenses"
	"github.com/odyssey-erp/bizdesk/internal/sales"
	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// SalesSource lists an owner's sales within a period.
type SalesSource interface {
	ListForOwner(ctx context.Context, ownerID string, period shared.Period, now time.Time) ([]sales.SaleRecord, error)
}

// ExpenseSource lists an owner's expenses within a period.
type ExpenseSource interface {
	ListForOwner(ctx context.Context, ownerID string, period shared.Period, now time.Time) ([]expenses.Expense, error)
}

// Report is the tax position of one owner for one period.
type Report struct {
	Period      shared.Period      `json:"period"`
	From        *time.Time         `json:"from,omitempty"`
	To          *time.Time         `json:"to,omitempty"`
	Stats       Stats              `json:"stats"`
	Sales       []sales.SaleRecord `json:"-"`
	Expenses    []expenses.Expense `json:"expenses"`
	GeneratedAt time.Time          `json:"generated_at"`
}

// Service builds tax reports.
type Service struct {
	sales    SalesSource
	expenses ExpenseSource
}

func NewService(salesSrc SalesSource, expenseSrc ExpenseSource) *Service {
	return &Service{sales: salesSrc, expenses: expenseSrc}
}

// Report loads the principal's sales and expenses for period concurrently and
// computes the liability.
func (s *Service) Report(ctx context.Context, principal shared.Principal, period shared.Period, now time.Time) (Report, error) {
	if principal.ID == "" {
		return Report{}, shared.ErrUnauthenticated
	}
	var (
		saleRows    []sales.SaleRecord
		expenseRows []expenses.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		saleRows, err = s.sales.ListForOwner(gctx, principal.ID, period, now)
		return err
	})
	g.Go(func() error {
		var err error
		expenseRows, err = s.expenses.ListForOwner(gctx, principal.ID, period, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return Report{}, fmt.Errorf("tax report: %w", err)
	}

	amounts := make([]SaleAmounts, len(saleRows))
	for i, rec := range saleRows {
		qty := float64(rec.Quantity)
		amounts[i] = SaleAmounts{CostPrice: qty * rec.CostPrice, SalesPrice: qty * rec.SalesPrice}
	}
	costs := make([]ExpenseAmount, len(expenseRows))
	for i, e := range expenseRows {
		costs[i] = ExpenseAmount{Amount: e.Amount}
	}
	if expenseRows == nil {
		expenseRows = []expenses.Expense{}
	}

	report := Report{
		Period:      period,
		Stats:       Compute(amounts, costs),
		Sales:       saleRows,
		Expenses:    expenseRows,
		GeneratedAt: now,
	}
	if from, to := period.Window(now); !from.IsZero() {
		report.From, report.To = &from, &to
	}
	return report, nil
}
