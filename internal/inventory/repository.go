package inventory

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizdesk/internal/platform/db"
	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// Repository persists inventory data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service.
type TxRepository interface {
	Insert(ctx context.Context, item Item) error
	Update(ctx context.Context, item Item) error
	Delete(ctx context.Context, ownerID, id string) error
	GetForUpdate(ctx context.Context, ownerID, id string) (Item, error)
}

type txRepo struct {
	tx pgx.Tx
}

const itemColumns = `id, owner_id, product_name, COALESCE(sku, ''), COALESCE(imei, ''), quantity, cost_price, sales_price, created_at, updated_at`

// WithTx executes the callback inside repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// List returns items ordered by product name.
func (r *Repository) List(ctx context.Context, ownerID string, params shared.ListParams) ([]Item, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM inventory WHERE owner_id = $1 ORDER BY product_name, id LIMIT $2 OFFSET $3`, ownerID, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Get loads a single item.
func (r *Repository) Get(ctx context.Context, ownerID, id string) (Item, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory WHERE owner_id = $1 AND id = $2`, ownerID, id)
	return scanItemRow(row)
}

// GetMany loads the listed items keyed by id.
func (r *Repository) GetMany(ctx context.Context, ownerID string, ids []string) (map[string]Item, error) {
	out := make(map[string]Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM inventory WHERE owner_id = $1 AND id = ANY($2::uuid[])`, ownerID, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[item.ID] = item
	}
	return out, rows.Err()
}

func (t *txRepo) Insert(ctx context.Context, item Item) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO inventory (id, owner_id, product_name, sku, imei, quantity, cost_price, sales_price, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9, $10)
	`, item.ID, item.OwnerID, item.ProductName, item.SKU, item.IMEI, item.Quantity, item.CostPrice, item.SalesPrice, item.CreatedAt, item.UpdatedAt)
	return err
}

func (t *txRepo) Update(ctx context.Context, item Item) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE inventory
		SET product_name = $3, sku = NULLIF($4, ''), imei = NULLIF($5, ''), quantity = $6,
			cost_price = $7, sales_price = $8, updated_at = $9
		WHERE owner_id = $1 AND id = $2
	`, item.OwnerID, item.ID, item.ProductName, item.SKU, item.IMEI, item.Quantity, item.CostPrice, item.SalesPrice, item.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (t *txRepo) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM inventory WHERE owner_id = $1 AND id = $2`, ownerID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, ownerID, id string) (Item, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+itemColumns+` FROM inventory WHERE owner_id = $1 AND id = $2 FOR UPDATE`, ownerID, id)
	return scanItemRow(row)
}

func scanItemRow(row pgx.Row) (Item, error) {
	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, err
	}
	return item, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.OwnerID, &item.ProductName, &item.SKU, &item.IMEI, &item.Quantity,
		&item.CostPrice, &item.SalesPrice, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}
