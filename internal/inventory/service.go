package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, ownerID string, params shared.ListParams) ([]Item, error)
	Get(ctx context.Context, ownerID, id string) (Item, error)
	GetMany(ctx context.Context, ownerID string, ids []string) (map[string]Item, error)
}

// Service coordinates inventory operations.
type Service struct {
	repo     RepositoryPort
	audit    shared.AuditRecorder
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService builds Service. audit may be nil.
func NewService(repo RepositoryPort, audit shared.AuditRecorder) *Service {
	return &Service{repo: repo, audit: audit, logger: slog.Default(), validate: validator.New(), now: time.Now}
}

// WithLogger overrides the logger used for audit failures.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// List returns the owner's items ordered by product name.
func (s *Service) List(ctx context.Context, params shared.ListParams) ([]Item, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, principal.ID, params.Normalize())
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, id string) (Item, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return Item{}, err
	}
	return s.repo.Get(ctx, principal.ID, id)
}

// Snapshot reads the current state of the given items for ownerID.
// Unknown ids are simply absent from the result.
func (s *Service) Snapshot(ctx context.Context, ownerID string, ids []string) (map[string]Item, error) {
	if ownerID == "" {
		return nil, shared.ErrUnauthenticated
	}
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	return s.repo.GetMany(ctx, ownerID, valid)
}

// Create stores a new item.
func (s *Service) Create(ctx context.Context, input CreateItemInput) (Item, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return Item{}, err
	}
	if err := s.validate.Struct(input); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !validPrice(input.CostPrice) || !validPrice(input.SalesPrice) {
		return Item{}, ErrInvalidPrice
	}
	now := s.now().UTC()
	item := Item{
		ID:          uuid.NewString(),
		OwnerID:     principal.ID,
		ProductName: strings.TrimSpace(input.ProductName),
		SKU:         strings.TrimSpace(input.SKU),
		IMEI:        strings.TrimSpace(input.IMEI),
		Quantity:    input.Quantity,
		CostPrice:   input.CostPrice,
		SalesPrice:  input.SalesPrice,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Insert(ctx, item)
	})
	if err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

// Update applies a partial update.
func (s *Service) Update(ctx context.Context, id string, input UpdateItemInput) (Item, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return Item{}, err
	}
	if err := s.validate.Struct(input); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	var updated Item
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetForUpdate(ctx, principal.ID, id)
		if err != nil {
			return err
		}
		if input.ProductName != nil {
			item.ProductName = strings.TrimSpace(*input.ProductName)
		}
		if input.SKU != nil {
			item.SKU = strings.TrimSpace(*input.SKU)
		}
		if input.IMEI != nil {
			item.IMEI = strings.TrimSpace(*input.IMEI)
		}
		if input.Quantity != nil {
			item.Quantity = *input.Quantity
		}
		if input.CostPrice != nil {
			if !validPrice(*input.CostPrice) {
				return ErrInvalidPrice
			}
			item.CostPrice = *input.CostPrice
		}
		if input.SalesPrice != nil {
			if !validPrice(*input.SalesPrice) {
				return ErrInvalidPrice
			}
			item.SalesPrice = *input.SalesPrice
		}
		item.UpdatedAt = s.now().UTC()
		if err := tx.Update(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	return updated, nil
}

// Delete removes an item.
func (s *Service) Delete(ctx context.Context, id string) error {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return err
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.Delete(ctx, principal.ID, id)
	})
}

// Adjust adds or removes stock. Removing more than is on hand fails with
// ErrNegativeStock and nothing is written.
func (s *Service) Adjust(ctx context.Context, id string, input AdjustmentInput) (Item, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return Item{}, err
	}
	if input.Quantity <= 0 {
		return Item{}, ErrInvalidQuantity
	}
	if err := s.validate.Struct(input); err != nil {
		return Item{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	delta := input.Quantity
	if input.Mode == AdjustRemove {
		delta = -delta
	}
	var adjusted Item
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetForUpdate(ctx, principal.ID, id)
		if err != nil {
			return err
		}
		newQty := item.Quantity + delta
		if newQty < 0 {
			return ErrNegativeStock
		}
		item.Quantity = newQty
		item.UpdatedAt = s.now().UTC()
		if err := tx.Update(ctx, item); err != nil {
			return err
		}
		adjusted = item
		return nil
	})
	if err != nil {
		return Item{}, err
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			OwnerID:  principal.ID,
			Action:   fmt.Sprintf("inventory:%s", input.Mode),
			Entity:   "inventory",
			EntityID: id,
			Meta: map[string]any{
				"qty":     input.Quantity,
				"balance": adjusted.Quantity,
				"note":    input.Note,
			},
		})
		if err != nil {
			s.logger.Warn("audit inventory adjustment", slog.String("item_id", id), slog.Any("error", err))
		}
	}
	return adjusted, nil
}

func validPrice(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
