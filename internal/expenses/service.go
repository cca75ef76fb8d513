package expenses

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// RepositoryPort abstracts expense storage.
type RepositoryPort interface {
	ListByOwner(ctx context.Context, ownerID string) ([]Expense, error)
	Insert(ctx context.Context, e Expense) error
}

type Service struct {
	repo     RepositoryPort
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validate: validator.New(), now: time.Now}
}

// List returns the principal's expenses inside the period window.
func (s *Service) List(ctx context.Context, period shared.Period) ([]Expense, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return s.ListForOwner(ctx, principal.ID, period, s.now())
}

// ListForOwner is List without a principal in context, for reports and the CLI.
func (s *Service) ListForOwner(ctx context.Context, ownerID string, period shared.Period, now time.Time) ([]Expense, error) {
	all, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return shared.FilterByPeriod(all, period, now, func(e Expense) time.Time { return e.Date }), nil
}

func (s *Service) Create(ctx context.Context, input CreateExpenseInput) (Expense, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return Expense{}, err
	}
	if math.IsNaN(input.Amount) || math.IsInf(input.Amount, 0) || input.Amount < 0 {
		return Expense{}, ErrInvalidAmount
	}
	if err := s.validate.Struct(input); err != nil {
		return Expense{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	now := s.now().UTC()
	date := now
	if input.Date != nil && !input.Date.IsZero() {
		date = input.Date.UTC()
	}
	e := Expense{
		ID:          uuid.NewString(),
		OwnerID:     principal.ID,
		Date:        date,
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Amount:      input.Amount,
		CreatedAt:   now,
	}
	if err := s.repo.Insert(ctx, e); err != nil {
		return Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return e, nil
}
