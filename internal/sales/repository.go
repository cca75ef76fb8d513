package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizdesk/internal/platform/db"
)

// Store applies checkout effects atomically.
type Store interface {
	ApplySale(ctx context.Context, ownerID string, eff Effects) error
}

// Totals are aggregates over all of an owner's sale rows.
type Totals struct {
	TotalSales  float64
	TotalProfit float64
	Outstanding float64
	UnpaidCount int
}

// RepositoryPort is what Service needs from storage.
type RepositoryPort interface {
	Store
	ListByOwner(ctx context.Context, ownerID string) ([]SaleRecord, error)
	Get(ctx context.Context, ownerID, id string) (SaleRecord, error)
	Insert(ctx context.Context, rec SaleRecord) error
	UpdatePayment(ctx context.Context, ownerID, id string, status PaymentStatus, outstanding float64) error
	GetInvoice(ctx context.Context, ownerID, id string) (Invoice, error)
	Totals(ctx context.Context, ownerID string) (Totals, error)
	Recent(ctx context.Context, ownerID string, limit int) ([]SaleRecord, error)
}

// Repository persists sales and invoices in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const saleColumns = `id, owner_id, COALESCE(invoice_id::text, ''), date, COALESCE(customer_id::text, ''), customer_name,
	COALESCE(product_id::text, ''), product_name, COALESCE(serial_number, ''), quantity, cost_price, sales_price,
	status, outstanding, created_at`

// ApplySale writes the invoice, its items, the sale rows, the conditional
// stock decrements and the customer promotion in one transaction. An invoice
// that already exists is treated as applied.
func (r *Repository) ApplySale(ctx context.Context, ownerID string, eff Effects) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		inv := eff.Invoice
		tag, err := tx.Exec(ctx, `INSERT INTO invoices (id, owner_id, invoice_number, customer_id, customer_name,
				total_amount, total_profit, status, outstanding, date, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO NOTHING`,
			inv.ID, ownerID, inv.InvoiceNumber, nullable(inv.CustomerID), inv.CustomerName,
			inv.TotalAmount, inv.TotalProfit, string(inv.Status), inv.Outstanding, inv.Date, inv.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert invoice: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		for _, li := range eff.LineItems {
			if _, err := tx.Exec(ctx, `INSERT INTO invoice_items (id, invoice_id, position, product_id, product_name,
					quantity, cost_price, sales_price, serial_number)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (id) DO NOTHING`,
				li.ID, li.InvoiceID, li.Position, li.ProductID, li.ProductName,
				li.Quantity, li.CostPrice, li.SalesPrice, nullable(li.SerialNumber)); err != nil {
				return fmt.Errorf("insert invoice item: %w", err)
			}
		}

		for _, dec := range eff.StockDecrements {
			tag, err := tx.Exec(ctx, `INSERT INTO stock_movements (invoice_id, item_id, quantity)
				VALUES ($1, $2, $3) ON CONFLICT (invoice_id, item_id) DO NOTHING`,
				inv.ID, dec.ProductID, dec.Quantity)
			if err != nil {
				return fmt.Errorf("insert stock movement: %w", err)
			}
			if tag.RowsAffected() == 0 {
				continue
			}
			tag, err = tx.Exec(ctx, `UPDATE inventory SET quantity = quantity - $1, updated_at = NOW()
				WHERE id = $2 AND owner_id = $3 AND quantity >= $1`,
				dec.Quantity, dec.ProductID, ownerID)
			if err != nil {
				if isSerializationFailure(err) {
					return &ConcurrencyConflictError{ProductRef: dec.ProductID}
				}
				return fmt.Errorf("decrement stock: %w", err)
			}
			if tag.RowsAffected() == 0 {
				return &ConcurrencyConflictError{ProductRef: dec.ProductID}
			}
		}

		for _, rec := range eff.Sales {
			if err := insertSale(ctx, tx, ownerID, rec); err != nil {
				return err
			}
		}

		if eff.PromoteCustomer != "" {
			if _, err := tx.Exec(ctx, `UPDATE customers SET status = 'Customer', updated_at = NOW()
				WHERE id = $1 AND owner_id = $2 AND status <> 'Customer'`,
				eff.PromoteCustomer, ownerID); err != nil {
				return fmt.Errorf("promote customer: %w", err)
			}
		}
		return nil
	})
	if err != nil && !errors.Is(err, ErrConcurrencyConflict) && isSerializationFailure(err) {
		return &ConcurrencyConflictError{}
	}
	return err
}

// isSerializationFailure reports SQLSTATE 40001, raised when a concurrent
// transaction updated the same stock row under repeatable read.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// ListByOwner returns every sale row, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]SaleRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales WHERE owner_id = $1 ORDER BY date DESC, id`, ownerID)
	if err != nil {
		return nil, err
	}
	return collectSales(rows)
}

// Recent returns the latest limit sale rows.
func (r *Repository) Recent(ctx context.Context, ownerID string, limit int) ([]SaleRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+saleColumns+` FROM sales WHERE owner_id = $1 ORDER BY date DESC, id LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	return collectSales(rows)
}

// Totals aggregates the dashboard figures in SQL.
func (r *Repository) Totals(ctx context.Context, ownerID string) (Totals, error) {
	var t Totals
	err := r.pool.QueryRow(ctx, `SELECT
			COALESCE(SUM(quantity * sales_price), 0)::float8,
			COALESCE(SUM(quantity * (sales_price - cost_price)), 0)::float8,
			COALESCE(SUM(outstanding), 0)::float8,
			COUNT(*) FILTER (WHERE status <> 'Paid')
		FROM sales WHERE owner_id = $1`, ownerID).Scan(&t.TotalSales, &t.TotalProfit, &t.Outstanding, &t.UnpaidCount)
	return t, err
}

func (r *Repository) Get(ctx context.Context, ownerID, id string) (SaleRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE owner_id = $1 AND id = $2`, ownerID, id)
	rec, err := scanSale(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return SaleRecord{}, ErrNotFound
	}
	return rec, err
}

func (r *Repository) Insert(ctx context.Context, rec SaleRecord) error {
	return insertSale(ctx, r.pool, rec.OwnerID, rec)
}

func (r *Repository) UpdatePayment(ctx context.Context, ownerID, id string, status PaymentStatus, outstanding float64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE sales SET status = $1, outstanding = $2 WHERE owner_id = $3 AND id = $4`,
		string(status), outstanding, ownerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetInvoice loads an invoice with its items ordered by position.
func (r *Repository) GetInvoice(ctx context.Context, ownerID, id string) (Invoice, error) {
	var (
		inv    Invoice
		status string
	)
	err := r.pool.QueryRow(ctx, `SELECT id, owner_id, invoice_number, COALESCE(customer_id::text, ''), customer_name,
			total_amount, total_profit, status, outstanding, date, created_at
		FROM invoices WHERE owner_id = $1 AND id = $2`, ownerID, id).
		Scan(&inv.ID, &inv.OwnerID, &inv.InvoiceNumber, &inv.CustomerID, &inv.CustomerName,
			&inv.TotalAmount, &inv.TotalProfit, &status, &inv.Outstanding, &inv.Date, &inv.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrNotFound
		}
		return Invoice{}, err
	}
	inv.Status = PaymentStatus(status)

	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, position, product_id::text, product_name, quantity,
			cost_price, sales_price, COALESCE(serial_number, '')
		FROM invoice_items WHERE invoice_id = $1 ORDER BY position`, id)
	if err != nil {
		return Invoice{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.ID, &li.InvoiceID, &li.Position, &li.ProductID, &li.ProductName, &li.Quantity,
			&li.CostPrice, &li.SalesPrice, &li.SerialNumber); err != nil {
			return Invoice{}, err
		}
		inv.Items = append(inv.Items, li)
	}
	return inv, rows.Err()
}

func insertSale(ctx context.Context, q db.Querier, ownerID string, rec SaleRecord) error {
	_, err := q.Exec(ctx, `INSERT INTO sales (id, owner_id, invoice_id, date, customer_id, customer_name, product_id,
			product_name, serial_number, quantity, cost_price, sales_price, status, outstanding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO NOTHING`,
		rec.ID, ownerID, nullable(rec.InvoiceID), rec.Date, nullable(rec.CustomerID), rec.CustomerName,
		nullable(rec.ProductID), rec.ProductName, nullable(rec.SerialNumber), rec.Quantity, rec.CostPrice,
		rec.SalesPrice, string(rec.Status), rec.Outstanding, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func collectSales(rows pgx.Rows) ([]SaleRecord, error) {
	defer rows.Close()
	var out []SaleRecord
	for rows.Next() {
		rec, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanSale(row pgx.Row) (SaleRecord, error) {
	var (
		rec    SaleRecord
		status string
	)
	err := row.Scan(&rec.ID, &rec.OwnerID, &rec.InvoiceID, &rec.Date, &rec.CustomerID, &rec.CustomerName,
		&rec.ProductID, &rec.ProductName, &rec.SerialNumber, &rec.Quantity, &rec.CostPrice, &rec.SalesPrice,
		&status, &rec.Outstanding, &rec.CreatedAt)
	if err != nil {
		return SaleRecord{}, err
	}
	rec.Status = PaymentStatus(status)
	return rec, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
