package expenses

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists expenses in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListByOwner returns every expense of ownerID, newest first.
func (r *Repository) ListByOwner(ctx context.Context, ownerID string) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, owner_id, date, description, COALESCE(category, ''), amount, created_at
		FROM expenses WHERE owner_id = $1 ORDER BY date DESC, id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.Date, &e.Description, &e.Category, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) Insert(ctx context.Context, e Expense) error {
	var category any
	if e.Category != "" {
		category = e.Category
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO expenses (id, owner_id, date, description, category, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.OwnerID, e.Date, e.Description, category, e.Amount, e.CreatedAt)
	return err
}
