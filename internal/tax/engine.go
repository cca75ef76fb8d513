// Package tax computes company income tax liability for a reporting period
// and serves the tax report built from an owner's sales and expenses.
package tax

import (
	"math"

	"github.com/shopspring/decimal"
)

// Statutory thresholds and rates.
const (
	SmallCompanySalesLimit   = 50_000_000
	SmallCompanyCostLimit    = 250_000_000
	StandardCITRate          = 0.30
	DevelopmentLevyRate      = 0.04
	MinimumTaxRate           = 0.15
	MinimumTaxSalesThreshold = 20_000_000_000
)

// SaleAmounts is the slice of a sale the engine needs.
type SaleAmounts struct {
	CostPrice  float64
	SalesPrice float64
}

// ExpenseAmount is the slice of an expense the engine needs.
type ExpenseAmount struct {
	Amount float64
}

// Stats is the computed liability for one period. It is never persisted.
type Stats struct {
	TotalSales        float64 `json:"total_sales"`
	TotalCost         float64 `json:"total_cost"`
	TotalExpenses     float64 `json:"total_expenses"`
	AssessableProfit  float64 `json:"assessable_profit"`
	SmallCompany      bool    `json:"small_company"`
	CITRate           float64 `json:"cit_rate"`
	CIT               float64 `json:"cit"`
	DevelopmentLevy   float64 `json:"development_levy"`
	MinimumTaxApplied bool    `json:"minimum_tax_applied"`
	TaxOwed           float64 `json:"tax_owed"`
}

var (
	smallSalesLimit = decimal.NewFromInt(SmallCompanySalesLimit)
	smallCostLimit  = decimal.NewFromInt(SmallCompanyCostLimit)
	minTaxThreshold = decimal.NewFromInt(MinimumTaxSalesThreshold)
	citRate         = decimal.NewFromFloat(StandardCITRate)
	levyRate        = decimal.NewFromFloat(DevelopmentLevyRate)
	minTaxRate      = decimal.NewFromFloat(MinimumTaxRate)
)

// Compute derives the period's tax position. It never fails: a record with a
// non-finite amount contributes zero so one bad row cannot void the report.
func Compute(sales []SaleAmounts, expenses []ExpenseAmount) Stats {
	totalSales := decimal.Zero
	totalCost := decimal.Zero
	for _, s := range sales {
		totalSales = totalSales.Add(finite(s.SalesPrice))
		totalCost = totalCost.Add(finite(s.CostPrice))
	}
	totalExpenses := decimal.Zero
	for _, e := range expenses {
		totalExpenses = totalExpenses.Add(finite(e.Amount))
	}

	costs := totalCost.Add(totalExpenses)
	profit := totalSales.Sub(costs)
	small := totalSales.LessThanOrEqual(smallSalesLimit) && costs.LessThanOrEqual(smallCostLimit)

	rate := decimal.Zero
	if !small {
		rate = citRate
	}

	cit := decimal.Zero
	levy := decimal.Zero
	if profit.IsPositive() {
		cit = profit.Mul(rate)
		levy = profit.Mul(levyRate)
	}
	total := cit.Add(levy)

	minimumApplied := false
	if !small && totalSales.GreaterThanOrEqual(minTaxThreshold) {
		floor := profit.Mul(minTaxRate).Add(levy)
		if total.LessThan(floor) {
			total = floor
			minimumApplied = true
		}
	}

	return Stats{
		TotalSales:        totalSales.InexactFloat64(),
		TotalCost:         totalCost.InexactFloat64(),
		TotalExpenses:     totalExpenses.InexactFloat64(),
		AssessableProfit:  profit.InexactFloat64(),
		SmallCompany:      small,
		CITRate:           rate.InexactFloat64(),
		CIT:               cit.InexactFloat64(),
		DevelopmentLevy:   levy.InexactFloat64(),
		MinimumTaxApplied: minimumApplied,
		TaxOwed:           total.InexactFloat64(),
	}
}

func finite(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
