package customers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizdesk/internal/platform/db"
)

var (
	ErrNotFound      = errors.New("customers: record not found")
	ErrInvalidStatus = errors.New("customers: invalid status")
	ErrInvalidInput  = errors.New("customers: invalid input")
)

type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error
	Get(ctx context.Context, ownerID, id string) (*Customer, error)
	List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error)
	Create(ctx context.Context, customer Customer) error
	Update(ctx context.Context, ownerID, id string, updates map[string]any) error
	SetStatus(ctx context.Context, ownerID, id string, status Status) error
	PurchaseTotals(ctx context.Context, ownerID, customerID string) (Stats, error)
	Purchases(ctx context.Context, ownerID, customerID string, limit int) ([]Purchase, error)
}

type repository struct {
	db   db.Querier
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
}

const customerColumns = `id, owner_id, full_name, phone, email, notes, status, created_at, updated_at`

func (r *repository) Get(ctx context.Context, ownerID, id string) (*Customer, error) {
	row := r.db.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE owner_id = $1 AND id = $2`, ownerID, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	conditions := []string{"owner_id = $1"}
	args := []any{req.OwnerID}
	argPos := 2

	if req.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*req.Status))
		argPos++
	}
	if req.Search != nil && *req.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(full_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+*req.Search+"%")
		argPos++
	}
	whereClause := "WHERE " + strings.Join(conditions, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY full_name, id LIMIT $%d OFFSET $%d`,
		customerColumns, whereClause, argPos, argPos+1)
	args = append(args, req.Limit, req.Offset)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) error {
	_, err := r.db.Exec(ctx, `INSERT INTO customers (id, owner_id, full_name, phone, email, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		c.ID, c.OwnerID, c.FullName, c.Phone, c.Email, c.Notes, string(c.Status), c.CreatedAt, c.UpdatedAt)
	return err
}

// updatable guards the column names accepted by Update.
var updatable = map[string]bool{
	"full_name": true, "phone": true, "email": true, "notes": true, "status": true, "updated_at": true,
}

func (r *repository) Update(ctx context.Context, ownerID, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	cols := make([]string, 0, len(updates))
	for col := range updates {
		if !updatable[col] {
			return fmt.Errorf("customers: column %q not updatable", col)
		}
		cols = append(cols, col)
	}
	sort.Strings(cols)
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+2)
	for i, col := range cols {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+1))
		args = append(args, updates[col])
	}
	args = append(args, ownerID, id)
	query := fmt.Sprintf("UPDATE customers SET %s WHERE owner_id = $%d AND id = $%d",
		strings.Join(sets, ", "), len(cols)+1, len(cols)+2)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) SetStatus(ctx context.Context, ownerID, id string, status Status) error {
	tag, err := r.db.Exec(ctx, `UPDATE customers SET status = $1, updated_at = NOW() WHERE owner_id = $2 AND id = $3`,
		string(status), ownerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// PurchaseTotals sums the line amounts and balances of a customer's sales.
func (r *repository) PurchaseTotals(ctx context.Context, ownerID, customerID string) (Stats, error) {
	var st Stats
	err := r.db.QueryRow(ctx, `SELECT
			COUNT(*),
			COALESCE(SUM(quantity * sales_price), 0)::float8,
			COALESCE(SUM(outstanding), 0)::float8
		FROM sales WHERE owner_id = $1 AND customer_id = $2`, ownerID, customerID).
		Scan(&st.SalesCount, &st.LifetimeValue, &st.Outstanding)
	return st, err
}

func (r *repository) Purchases(ctx context.Context, ownerID, customerID string, limit int) ([]Purchase, error) {
	rows, err := r.db.Query(ctx, `SELECT id::text, COALESCE(invoice_id::text, ''), date, product_name,
			COALESCE(serial_number, ''), quantity, sales_price, status, outstanding, created_at
		FROM sales WHERE owner_id = $1 AND customer_id = $2
		ORDER BY created_at DESC, id LIMIT $3`, ownerID, customerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.InvoiceID, &p.Date, &p.ProductName, &p.SerialNumber, &p.Quantity,
			&p.SalesPrice, &p.Status, &p.Outstanding, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c      Customer
		status string
	)
	if err := row.Scan(&c.ID, &c.OwnerID, &c.FullName, &c.Phone, &c.Email, &c.Notes, &status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Customer{}, err
	}
	c.Status = Status(status)
	return c, nil
}
