package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/bizdesk/internal/shared"
)

type Service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, validate: validator.New(), now: time.Now}
}

// Create stores a customer for the current principal. Status defaults to Prospect.
func (s *Service) Create(ctx context.Context, req CreateCustomerRequest) (*Customer, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	status := req.Status
	if status == "" {
		status = StatusProspect
	}
	now := s.now().UTC()
	customer := Customer{
		ID:        uuid.NewString(),
		OwnerID:   principal.ID,
		FullName:  strings.TrimSpace(req.FullName),
		Phone:     req.Phone,
		Email:     req.Email,
		Notes:     req.Notes,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Create(ctx, customer)
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &customer, nil
}

func (s *Service) Update(ctx context.Context, id string, req UpdateCustomerRequest) (*Customer, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	existing, err := s.repo.Get(ctx, principal.ID, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	updates := make(map[string]any)
	if req.FullName != nil {
		updates["full_name"] = strings.TrimSpace(*req.FullName)
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Notes != nil {
		updates["notes"] = *req.Notes
	}
	if req.Status != nil {
		updates["status"] = string(*req.Status)
	}
	if len(updates) == 0 {
		return existing, nil
	}
	updates["updated_at"] = s.now().UTC()

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.Update(ctx, principal.ID, id, updates)
	})
	if err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return s.repo.Get(ctx, principal.ID, id)
}

func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, principal.ID, id)
}

// HistoryLimit caps the purchases returned by Detail.
const HistoryLimit = 50

// Detail loads a customer with its lifetime value, outstanding balance and
// latest purchases. The three reads run concurrently.
func (s *Service) Detail(ctx context.Context, id string) (*Detail, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	var (
		customer *Customer
		totals   Stats
		history  []Purchase
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		customer, err = s.repo.Get(gctx, principal.ID, id)
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.repo.PurchaseTotals(gctx, principal.ID, id)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.repo.Purchases(gctx, principal.ID, id, HistoryLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("customer detail: %w", err)
	}
	if history == nil {
		history = []Purchase{}
	}
	totals.History = history
	return &Detail{Customer: *customer, Stats: totals}, nil
}

func (s *Service) List(ctx context.Context, status *Status, search *string, params shared.ListParams) ([]Customer, int, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, 0, err
	}
	if status != nil && !status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	params = params.Normalize()
	return s.repo.List(ctx, ListCustomersRequest{
		OwnerID: principal.ID,
		Status:  status,
		Search:  search,
		Limit:   params.Limit,
		Offset:  params.Offset,
	})
}

// Promote marks the customer as a paying Customer. Promoting twice is a no-op.
func (s *Service) Promote(ctx context.Context, id string) error {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		return repo.SetStatus(ctx, principal.ID, id, StatusCustomer)
	})
}
