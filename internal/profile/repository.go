package profile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/bizdesk/internal/platform/db"
)

var (
	ErrNotFound     = errors.New("profile: record not found")
	ErrInvalidInput = errors.New("profile: invalid input")
)

type Repository interface {
	Get(ctx context.Context, userID string) (*Profile, error)
	Upsert(ctx context.Context, p Profile) error
}

type repository struct {
	db db.Querier
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) Get(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := r.db.QueryRow(ctx, `SELECT user_id::text, full_name, phone_number, business_name, business_address, updated_at
		FROM profiles WHERE user_id = $1`, userID).
		Scan(&p.UserID, &p.FullName, &p.PhoneNumber, &p.BusinessName, &p.BusinessAddress, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

// Upsert writes every field of p, creating the row on first save.
func (r *repository) Upsert(ctx context.Context, p Profile) error {
	_, err := r.db.Exec(ctx, `INSERT INTO profiles (user_id, full_name, phone_number, business_name, business_address, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			phone_number = EXCLUDED.phone_number,
			business_name = EXCLUDED.business_name,
			business_address = EXCLUDED.business_address,
			updated_at = EXCLUDED.updated_at`,
		p.UserID, p.FullName, p.PhoneNumber, p.BusinessName, p.BusinessAddress, p.UpdatedAt)
	return err
}
