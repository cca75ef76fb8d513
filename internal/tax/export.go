package tax

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const dateLayout = "2006-01-02"

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV emits the expense lines followed by the summary statistics.
func WriteCSV(w io.Writer, report Report) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Type", "Date", "Description", "Category", "Amount"}); err != nil {
		return err
	}
	for _, e := range report.Expenses {
		category := e.Category
		if category == "" {
			category = "-"
		}
		if err := writer.Write([]string{"Expense", e.Date.Format(dateLayout), e.Description, category, formatFloat(e.Amount)}); err != nil {
			return err
		}
	}
	for _, row := range statRows(report.Stats) {
		if err := writer.Write([]string{"Stat", "", row.label, "", formatFloat(row.value)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

type statRow struct {
	label string
	value float64
}

func statRows(s Stats) []statRow {
	return []statRow{
		{"Total Sales", s.TotalSales},
		{"Total Cost", s.TotalCost},
		{"Total Expenses", s.TotalExpenses},
		{"Assessable Profit", s.AssessableProfit},
		{"CIT (Company Income Tax)", s.CIT},
		{"Development Levy", s.DevelopmentLevy},
		{"Total Tax Owed", s.TaxOwed},
	}
}

// Sheet names of the XLSX export.
const (
	SummarySheet  = "Summary"
	ExpensesSheet = "Expenses"
)

// WriteXLSX writes a workbook with a Summary and an Expenses sheet.
func WriteXLSX(w io.Writer, report Report) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ExpensesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	summary := [][]any{{"Metric", "Value"}, {"Period", string(report.Period)}}
	for _, row := range statRows(report.Stats) {
		summary = append(summary, []any{row.label, row.value})
	}
	summary = append(summary,
		[]any{"Small Company", report.Stats.SmallCompany},
		[]any{"CIT Rate", report.Stats.CITRate},
	)
	if err := writeRows(f, SummarySheet, summary); err != nil {
		return err
	}

	expenseRows := [][]any{{"Date", "Description", "Category", "Amount"}}
	for _, e := range report.Expenses {
		expenseRows = append(expenseRows, []any{e.Date.Format(dateLayout), e.Description, e.Category, e.Amount})
	}
	if err := writeRows(f, ExpensesSheet, expenseRows); err != nil {
		return err
	}

	for _, sheet := range []string{SummarySheet, ExpensesSheet} {
		if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, "A", "D", 22); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)
	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
