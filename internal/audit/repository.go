package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit_logs.
type Repository interface {
	Timeline(ctx context.Context, q Query) ([]TimelineRow, error)
}

// PGRepository implements Repository with pgx.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Timeline returns the owner's entries, newest first.
func (r *PGRepository) Timeline(ctx context.Context, q Query) ([]TimelineRow, error) {
	conds := []string{"owner_id = $1"}
	args := []any{q.OwnerID}
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if !q.From.IsZero() {
		add("occurred_at >= $%d", q.From)
	}
	if !q.To.IsZero() {
		add("occurred_at < $%d", q.To)
	}
	if q.Entity != "" {
		add("entity = $%d", q.Entity)
	}
	if q.Action != "" {
		add("action = $%d", q.Action)
	}
	sql := `SELECT occurred_at, action, entity, entity_id, COALESCE(meta, 'null'::jsonb)
		FROM audit_logs WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY occurred_at DESC, id DESC`
	if q.Limit > 0 {
		args = append(args, q.Limit, q.Offset)
		sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.At, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta: %w", err)
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
