package sales

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var receiptTemplate = template.Must(template.New("receipt").Funcs(template.FuncMap{
	"money": formatMoney,
	"date":  func(t time.Time) string { return t.Format("02 Jan 2006") },
	"lineAmount": func(li LineItem) float64 {
		return float64(li.Quantity) * li.SalesPrice
	},
}).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.InvoiceNumber}}</title>
<style>body{font-family:sans-serif;font-size:12px}table{width:100%;border-collapse:collapse}td,th{padding:4px;border-bottom:1px solid #ddd;text-align:left}.num{text-align:right}</style>
</head><body>
{{with .BusinessName}}<h2>{{.}}</h2>{{end}}
<h1>Receipt {{.InvoiceNumber}}</h1>
<p>Date: {{date .Date}}<br>Customer: {{if .CustomerName}}{{.CustomerName}}{{else}}Walk-in{{end}}<br>Status: {{.Status}}</p>
<table>
<tr><th>#</th><th>Product</th><th>Serial</th><th class="num">Qty</th><th class="num">Price</th><th class="num">Amount</th></tr>
{{range .Items}}<tr><td>{{.Position}}</td><td>{{.ProductName}}</td><td>{{.SerialNumber}}</td><td class="num">{{.Quantity}}</td><td class="num">{{money .SalesPrice}}</td><td class="num">{{money (lineAmount .)}}</td></tr>
{{end}}</table>
<p class="num"><strong>Total: {{money .TotalAmount}}</strong><br>Outstanding: {{money .Outstanding}}</p>
</body></html>`))

var moneyPrinter = message.NewPrinter(language.English)

// formatMoney renders an amount with thousands separators, e.g. ₦1,250,000.00.
func formatMoney(v float64) string {
	return moneyPrinter.Sprintf("₦%.2f", v)
}

type receiptView struct {
	Invoice
	BusinessName string
}

// RenderReceiptHTML renders the printable receipt of inv. business heads the
// receipt when set.
func RenderReceiptHTML(inv Invoice, business string) (string, error) {
	var buf bytes.Buffer
	if err := receiptTemplate.Execute(&buf, receiptView{Invoice: inv, BusinessName: business}); err != nil {
		return "", fmt.Errorf("render receipt: %w", err)
	}
	return buf.String(), nil
}

// PDFRenderer converts HTML into a PDF document.
type PDFRenderer interface {
	RenderHTML(ctx context.Context, html string) ([]byte, error)
}

// ReceiptCache keeps rendered receipts in Redis.
type ReceiptCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewReceiptCache constructs the cache. A zero ttl keeps entries for a day.
func NewReceiptCache(client *redis.Client, ttl time.Duration) *ReceiptCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &ReceiptCache{client: client, ttl: ttl}
}

func receiptKey(ownerID, invoiceID string) string {
	return "receipt:" + ownerID + ":" + invoiceID
}

// Get returns the cached PDF and whether it was present.
func (c *ReceiptCache) Get(ctx context.Context, ownerID, invoiceID string) ([]byte, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	data, err := c.client.Get(ctx, receiptKey(ownerID, invoiceID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Put stores pdf under the invoice key.
func (c *ReceiptCache) Put(ctx context.Context, ownerID, invoiceID string, pdf []byte) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Set(ctx, receiptKey(ownerID, invoiceID), pdf, c.ttl).Err()
}

// InvoiceSource loads invoices for a given owner.
type InvoiceSource interface {
	InvoiceForOwner(ctx context.Context, ownerID, id string) (*Invoice, error)
}

// BusinessNames resolves the trading name printed on receipts.
type BusinessNames interface {
	BusinessName(ctx context.Context, ownerID string) (string, error)
}

// Receipts renders invoice receipts, serving from cache when possible.
type Receipts struct {
	invoices InvoiceSource
	renderer PDFRenderer
	cache    *ReceiptCache
	business BusinessNames
}

func NewReceipts(invoices InvoiceSource, renderer PDFRenderer, cache *ReceiptCache) *Receipts {
	return &Receipts{invoices: invoices, renderer: renderer, cache: cache}
}

// WithBusiness prints the owner's business name in the receipt header.
func (r *Receipts) WithBusiness(names BusinessNames) *Receipts {
	r.business = names
	return r
}

// PDF returns the receipt PDF. cached reports whether it came from the cache.
func (r *Receipts) PDF(ctx context.Context, ownerID, invoiceID string) (pdf []byte, cached bool, err error) {
	if data, ok, err := r.cache.Get(ctx, ownerID, invoiceID); err == nil && ok {
		return data, true, nil
	}
	pdf, err = r.Render(ctx, ownerID, invoiceID)
	return pdf, false, err
}

// Render always renders through the PDF renderer and refreshes the cache.
func (r *Receipts) Render(ctx context.Context, ownerID, invoiceID string) ([]byte, error) {
	inv, err := r.invoices.InvoiceForOwner(ctx, ownerID, invoiceID)
	if err != nil {
		return nil, err
	}
	var business string
	if r.business != nil {
		if business, err = r.business.BusinessName(ctx, ownerID); err != nil {
			return nil, fmt.Errorf("receipt business name: %w", err)
		}
	}
	html, err := RenderReceiptHTML(*inv, business)
	if err != nil {
		return nil, err
	}
	pdf, err := r.renderer.RenderHTML(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	// a cache miss next time is acceptable
	_ = r.cache.Put(ctx, ownerID, invoiceID, pdf)
	return pdf, nil
}
