package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/bizdesk/internal/customers"
	"github.com/odyssey-erp/bizdesk/internal/inventory"
	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// InventorySnapshotter reads current stock for a set of products.
type InventorySnapshotter interface {
	Snapshot(ctx context.Context, ownerID string, ids []string) (map[string]inventory.Item, error)
}

// CustomerLookup resolves and promotes customers of the current principal.
type CustomerLookup interface {
	Get(ctx context.Context, id string) (*customers.Customer, error)
	Promote(ctx context.Context, id string) error
}

// ReceiptQueue schedules background receipt rendering.
type ReceiptQueue interface {
	EnqueueReceipt(ctx context.Context, ownerID, invoiceID string) error
}

// CheckoutMetrics counts checkout outcomes.
type CheckoutMetrics interface {
	ObserveCheckout(result string)
	IncStockConflict()
}

// Checkout results reported to CheckoutMetrics.
const (
	ResultOK       = "ok"
	ResultInvalid  = "invalid"
	ResultConflict = "conflict"
	ResultError    = "error"
)

// Config tunes checkout retries.
type Config struct {
	MaxAttempts int
	RetryBase   time.Duration
}

// Service provides business logic for sales operations.
type Service struct {
	repo      RepositoryPort
	inventory InventorySnapshotter
	customers CustomerLookup
	processor *Processor
	cfg       Config

	idempotency shared.IdempotencyGuard
	audit       shared.AuditRecorder
	receipts    ReceiptQueue
	metrics     CheckoutMetrics
	business    BusinessNames
	logger      *slog.Logger

	validate *validator.Validate
	now      func() time.Time
	sleep    func(context.Context, time.Duration) error
}

// NewService constructs a sales service. Optional collaborators are attached
// with the With* methods.
func NewService(repo RepositoryPort, inv InventorySnapshotter, cust CustomerLookup, cfg Config) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 10 * time.Millisecond
	}
	return &Service{
		repo:      repo,
		inventory: inv,
		customers: cust,
		processor: NewProcessor(),
		cfg:       cfg,
		logger:    slog.Default(),
		validate:  validator.New(),
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

func (s *Service) WithIdempotency(guard shared.IdempotencyGuard) *Service {
	s.idempotency = guard
	return s
}

func (s *Service) WithAudit(audit shared.AuditRecorder) *Service {
	s.audit = audit
	return s
}

func (s *Service) WithReceiptQueue(q ReceiptQueue) *Service {
	s.receipts = q
	return s
}

func (s *Service) WithMetrics(m CheckoutMetrics) *Service {
	s.metrics = m
	return s
}

// WithBusiness adds the owner's business name to the dashboard summary.
func (s *Service) WithBusiness(names BusinessNames) *Service {
	s.business = names
	return s
}

func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// ============================================================================
// CHECKOUT
// ============================================================================

// Checkout validates the cart against fresh stock and applies the sale. When
// stock moves between snapshot and apply it re-snapshots and retries with
// exponential backoff, surfacing *ConcurrencyConflictError once attempts run out.
// A non-empty idempotencyKey makes a repeated request fail with
// shared.ErrIdempotencyConflict instead of selling twice.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest, idempotencyKey string) (*Invoice, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		s.observe(ResultInvalid)
		return nil, &ValidationError{Reason: fmt.Sprintf("%s: %v", ReasonInvalidInput, err)}
	}

	cart := Cart{
		CustomerID:  req.CustomerID,
		Status:      req.Status,
		Outstanding: req.Outstanding,
		Lines:       make([]CartLine, len(req.Lines)),
	}
	if req.Date != nil {
		cart.Date = req.Date.UTC()
	}
	for i, l := range req.Lines {
		cart.Lines[i] = CartLine{
			ProductID:          l.ProductID,
			Quantity:           l.Quantity,
			SalesPriceOverride: l.SalesPrice,
			SerialNumber:       strings.TrimSpace(l.SerialNumber),
		}
	}
	if cart.CustomerID != "" {
		c, err := s.customers.Get(ctx, cart.CustomerID)
		if err != nil {
			if errors.Is(err, customers.ErrNotFound) {
				s.observe(ResultInvalid)
				return nil, &ValidationError{Reason: ReasonUnknownCustomer}
			}
			s.observe(ResultError)
			return nil, fmt.Errorf("lookup customer: %w", err)
		}
		cart.CustomerName = c.FullName
	}

	var key string
	if idempotencyKey != "" && s.idempotency != nil {
		key = shared.IdempotencyKey(principal.ID, idempotencyKey)
		if err := s.idempotency.CheckAndInsert(ctx, key, "sales.checkout"); err != nil {
			return nil, err
		}
	}

	eff, err := s.checkoutWithRetry(ctx, principal.ID, cart)
	if err != nil {
		if key != "" {
			if delErr := s.idempotency.Delete(ctx, key); delErr != nil {
				s.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		return nil, err
	}
	s.observe(ResultOK)

	inv := eff.Invoice
	inv.OwnerID = principal.ID
	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			OwnerID:  principal.ID,
			Action:   "sales:checkout",
			Entity:   "invoice",
			EntityID: inv.ID,
			Meta: map[string]any{
				"invoice_number": inv.InvoiceNumber,
				"total_amount":   inv.TotalAmount,
				"lines":          len(inv.Items),
				"status":         string(inv.Status),
			},
		}); err != nil {
			s.logger.Warn("audit checkout", slog.Any("error", err))
		}
	}
	if s.receipts != nil {
		if err := s.receipts.EnqueueReceipt(ctx, principal.ID, inv.ID); err != nil {
			s.logger.Warn("enqueue receipt", slog.String("invoice_id", inv.ID), slog.Any("error", err))
		}
	}
	return &inv, nil
}

func (s *Service) checkoutWithRetry(ctx context.Context, ownerID string, cart Cart) (Effects, error) {
	ids := productIDs(cart.Lines)
	delay := s.cfg.RetryBase
	for attempt := 1; ; attempt++ {
		snap, err := s.inventory.Snapshot(ctx, ownerID, ids)
		if err != nil {
			s.observe(ResultError)
			return Effects{}, fmt.Errorf("snapshot inventory: %w", err)
		}
		eff, err := s.processor.Process(cart, snap)
		if err != nil {
			s.observe(ResultInvalid)
			return Effects{}, err
		}
		err = s.repo.ApplySale(ctx, ownerID, eff)
		if err == nil {
			return eff, nil
		}
		if !errors.Is(err, ErrConcurrencyConflict) {
			s.observe(ResultError)
			return Effects{}, fmt.Errorf("apply sale: %w", err)
		}
		if s.metrics != nil {
			s.metrics.IncStockConflict()
		}
		if attempt >= s.cfg.MaxAttempts {
			s.observe(ResultConflict)
			return Effects{}, err
		}
		s.logger.Debug("checkout conflict, retrying", slog.Int("attempt", attempt), slog.Any("error", err))
		if err := s.sleep(ctx, delay); err != nil {
			return Effects{}, err
		}
		delay *= 2
	}
}

func (s *Service) observe(result string) {
	if s.metrics != nil {
		s.metrics.ObserveCheckout(result)
	}
}

func productIDs(lines []CartLine) []string {
	seen := make(map[string]struct{}, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ============================================================================
// SALE RECORDS
// ============================================================================

// RecordSale stores a single sale without touching stock. Outstanding is
// derived from status except for part payments.
func (s *Service) RecordSale(ctx context.Context, req CreateSaleRequest) (*SaleRecord, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("%s: %v", ReasonInvalidInput, err)}
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	outstanding, err := recordOutstanding(req.Status, req.Outstanding, req.SalesPrice, qty)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.CustomerName)
	if req.CustomerID != "" {
		c, err := s.customers.Get(ctx, req.CustomerID)
		if err != nil {
			if errors.Is(err, customers.ErrNotFound) {
				return nil, &ValidationError{Reason: ReasonUnknownCustomer}
			}
			return nil, fmt.Errorf("lookup customer: %w", err)
		}
		name = c.FullName
	}

	now := s.now().UTC()
	date := now
	if req.Date != nil {
		date = req.Date.UTC()
	}
	rec := SaleRecord{
		ID:           uuid.NewString(),
		OwnerID:      principal.ID,
		Date:         date,
		CustomerID:   req.CustomerID,
		CustomerName: name,
		ProductName:  strings.TrimSpace(req.ProductName),
		SerialNumber: strings.TrimSpace(req.SerialNumber),
		Quantity:     qty,
		CostPrice:    req.CostPrice,
		SalesPrice:   req.SalesPrice,
		Status:       req.Status,
		Outstanding:  outstanding,
		CreatedAt:    now,
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return nil, fmt.Errorf("record sale: %w", err)
	}
	if rec.CustomerID != "" {
		if err := s.customers.Promote(ctx, rec.CustomerID); err != nil {
			s.logger.Warn("promote customer", slog.String("customer_id", rec.CustomerID), slog.Any("error", err))
		}
	}
	return &rec, nil
}

// Update changes payment status, recomputing outstanding from the status.
func (s *Service) Update(ctx context.Context, id string, req UpdateSaleRequest) (*SaleRecord, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, principal.ID, id)
	if err != nil {
		return nil, err
	}
	status := rec.Status
	if req.Status != nil {
		status = *req.Status
	}
	requested := rec.Outstanding
	if req.Outstanding != nil {
		requested = *req.Outstanding
	}
	outstanding, err := recordOutstanding(status, requested, rec.SalesPrice, rec.Quantity)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdatePayment(ctx, principal.ID, id, status, outstanding); err != nil {
		return nil, fmt.Errorf("update sale: %w", err)
	}
	rec.Status = status
	rec.Outstanding = outstanding
	return &rec, nil
}

// MarkPaid settles a sale.
func (s *Service) MarkPaid(ctx context.Context, id string) (*SaleRecord, error) {
	paid := StatusPaid
	return s.Update(ctx, id, UpdateSaleRequest{Status: &paid})
}

func (s *Service) Get(ctx context.Context, id string) (*SaleRecord, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	rec, err := s.repo.Get(ctx, principal.ID, id)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the principal's sales inside period, optionally for one customer.
func (s *Service) List(ctx context.Context, period shared.Period, customerID string) ([]SaleRecord, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.ListForOwner(ctx, principal.ID, period, s.now())
	if err != nil {
		return nil, err
	}
	if customerID == "" {
		return records, nil
	}
	out := records[:0]
	for _, rec := range records {
		if rec.CustomerID == customerID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// ListForOwner lists sales without a principal in context, for reports and the CLI.
func (s *Service) ListForOwner(ctx context.Context, ownerID string, period shared.Period, now time.Time) ([]SaleRecord, error) {
	all, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return shared.FilterByPeriod(all, period, now, func(r SaleRecord) time.Time { return r.Date }), nil
}

// GetInvoice returns an invoice with its line items.
func (s *Service) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return s.InvoiceForOwner(ctx, principal.ID, id)
}

// InvoiceForOwner loads an invoice for ownerID; used by the receipt worker.
func (s *Service) InvoiceForOwner(ctx context.Context, ownerID, id string) (*Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(inv.Items, func(i, j int) bool { return inv.Items[i].Position < inv.Items[j].Position })
	return &inv, nil
}

// Summary loads dashboard totals, the five latest sales and the business name
// concurrently.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return Summary{}, err
	}
	var (
		totals   Totals
		recent   []SaleRecord
		business string
	)
	g, gctx := errgroup.WithContext(ctx)
	if s.business != nil {
		g.Go(func() error {
			var err error
			business, err = s.business.BusinessName(gctx, principal.ID)
			return err
		})
	}
	g.Go(func() error {
		var err error
		totals, err = s.repo.Totals(gctx, principal.ID)
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.repo.Recent(gctx, principal.ID, 5)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("dashboard summary: %w", err)
	}
	if recent == nil {
		recent = []SaleRecord{}
	}
	return Summary{
		BusinessName: business,
		TotalSales:   totals.TotalSales,
		TotalProfit:  totals.TotalProfit,
		Outstanding:  totals.Outstanding,
		UnpaidCount:  totals.UnpaidCount,
		Recent:       recent,
	}, nil
}

// recordOutstanding applies the status policy to a single sale row.
func recordOutstanding(status PaymentStatus, requested, price float64, qty int) (float64, error) {
	total := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(qty)))
	switch status {
	case StatusPaid:
		return 0, nil
	case StatusUnpaid:
		return total.InexactFloat64(), nil
	case StatusPartPayment:
		if math.IsNaN(requested) || math.IsInf(requested, 0) {
			return 0, &ValidationError{Reason: ReasonInvalidOutstanding}
		}
		o := decimal.NewFromFloat(requested)
		if !o.IsPositive() || o.GreaterThanOrEqual(total) {
			return 0, &ValidationError{Reason: ReasonInvalidOutstanding}
		}
		return requested, nil
	default:
		return 0, &ValidationError{Reason: ReasonInvalidStatus}
	}
}
