package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

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

// Get returns the caller's profile. A user who never saved one gets an empty,
// incomplete profile rather than an error.
func (s *Service) Get(ctx context.Context) (*Profile, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, principal.ID)
}

// Upsert replaces the caller's profile.
func (s *Service) Upsert(ctx context.Context, req UpsertProfileRequest) (*Profile, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	p := Profile{
		UserID:          principal.ID,
		FullName:        strings.TrimSpace(req.FullName),
		PhoneNumber:     strings.TrimSpace(req.PhoneNumber),
		BusinessName:    strings.TrimSpace(req.BusinessName),
		BusinessAddress: strings.TrimSpace(req.BusinessAddress),
		UpdatedAt:       s.now().UTC(),
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, fmt.Errorf("upsert profile: %w", err)
	}
	p.Complete = p.complete()
	return &p, nil
}

// BusinessName returns the business name of ownerID, or "" when no profile
// exists. It does not need a principal so the receipt worker can use it.
func (s *Service) BusinessName(ctx context.Context, ownerID string) (string, error) {
	p, err := s.load(ctx, ownerID)
	if err != nil {
		return "", err
	}
	return p.BusinessName, nil
}

func (s *Service) load(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &Profile{UserID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	p.Complete = p.complete()
	return p, nil
}
