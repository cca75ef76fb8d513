package report

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/odyssey-erp/bizdesk/internal/shared"
	"github.com/odyssey-erp/bizdesk/internal/tax"
)

// A4Page is used for period statements.
var A4Page = PageOptions{PaperWidth: 8.27, PaperHeight: 11.7, Margin: 0.6}

// TaxReporter builds the tax position of a principal.
type TaxReporter interface {
	Report(ctx context.Context, principal shared.Principal, period shared.Period, now time.Time) (tax.Report, error)
}

var printer = message.NewPrinter(language.English)

var taxTemplate = template.Must(template.New("tax").Funcs(template.FuncMap{
	"money": func(v float64) string { return printer.Sprintf("₦%.2f", v) },
	"pct":   func(v float64) string { return printer.Sprintf("%.0f%%", v*100) },
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
	"until": func(t time.Time) string { return t.AddDate(0, 0, -1).Format("02 Jan 2006") },
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Tax statement</title>
<style>body{font-family:sans-serif;font-size:11px}table{width:100%;border-collapse:collapse;margin-bottom:16px}td,th{padding:4px;border-bottom:1px solid #ddd;text-align:left}.num{text-align:right}</style>
</head><body>
<h1>Tax statement</h1>
<p>Period: {{.Period}}{{if .From}} ({{date .From}} to {{until .To}}){{end}}<br>Generated: {{date .GeneratedAt}}</p>
<table>
<tr><td>Total sales</td><td class="num">{{money .Stats.TotalSales}}</td></tr>
<tr><td>Cost of sales</td><td class="num">{{money .Stats.TotalCost}}</td></tr>
<tr><td>Expenses</td><td class="num">{{money .Stats.TotalExpenses}}</td></tr>
<tr><td>Assessable profit</td><td class="num">{{money .Stats.AssessableProfit}}</td></tr>
<tr><td>Company size</td><td class="num">{{if .Stats.SmallCompany}}Small{{else}}Medium/Large{{end}}</td></tr>
<tr><td>CIT ({{pct .Stats.CITRate}})</td><td class="num">{{money .Stats.CIT}}</td></tr>
<tr><td>Development levy</td><td class="num">{{money .Stats.DevelopmentLevy}}</td></tr>
{{if .Stats.MinimumTaxApplied}}<tr><td colspan="2">Minimum tax applied</td></tr>{{end}}
<tr><th>Tax owed</th><th class="num">{{money .Stats.TaxOwed}}</th></tr>
</table>
{{if .Expenses}}<h2>Expenses</h2>
<table>
<tr><th>Date</th><th>Description</th><th>Category</th><th class="num">Amount</th></tr>
{{range .Expenses}}<tr><td>{{date .Date}}</td><td>{{.Description}}</td><td>{{.Category}}</td><td class="num">{{money .Amount}}</td></tr>
{{end}}</table>{{end}}
</body></html>`))

// RenderTaxHTML renders the printable statement of rep.
func RenderTaxHTML(rep tax.Report) (string, error) {
	var buf bytes.Buffer
	if err := taxTemplate.Execute(&buf, rep); err != nil {
		return "", fmt.Errorf("render tax statement: %w", err)
	}
	return buf.String(), nil
}
