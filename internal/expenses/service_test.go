package expenses

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizdesk/internal/shared"
)

type memoryRepo struct {
	items []Expense
}

func (m *memoryRepo) ListByOwner(_ context.Context, ownerID string) ([]Expense, error) {
	var out []Expense
	for _, e := range m.items {
		if e.OwnerID == ownerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryRepo) Insert(_ context.Context, e Expense) error {
	m.items = append(m.items, e)
	return nil
}

func ctxFor(id string) context.Context {
	return shared.ContextWithPrincipal(context.Background(), shared.Principal{ID: id})
}

func TestCreateDefaultsDateToNow(t *testing.T) {
	fixed := time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)
	svc := NewService(&memoryRepo{})
	svc.now = func() time.Time { return fixed }

	e, err := svc.Create(ctxFor("u1"), CreateExpenseInput{Description: "Shop rent", Category: "Rent", Amount: 150000})
	require.NoError(t, err)
	require.Equal(t, fixed, e.Date)
	require.Equal(t, "Rent", e.Category)
}

func TestCreateRejectsNegativeAmount(t *testing.T) {
	svc := NewService(&memoryRepo{})
	_, err := svc.Create(ctxFor("u1"), CreateExpenseInput{Description: "x", Amount: -5})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCreateRequiresDescription(t *testing.T) {
	svc := NewService(&memoryRepo{})
	_, err := svc.Create(ctxFor("u1"), CreateExpenseInput{Amount: 5})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestListFiltersByPeriodAndOwner(t *testing.T) {
	now := time.Date(2024, 5, 17, 9, 0, 0, 0, time.UTC)
	repo := &memoryRepo{items: []Expense{
		{ID: "1", OwnerID: "u1", Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Amount: 10},
		{ID: "2", OwnerID: "u1", Date: time.Date(2024, 4, 30, 23, 0, 0, 0, time.UTC), Amount: 20},
		{ID: "3", OwnerID: "u1", Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Amount: 30},
		{ID: "4", OwnerID: "u2", Date: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), Amount: 40},
	}}
	svc := NewService(repo)
	svc.now = func() time.Time { return now }

	month, err := svc.List(ctxFor("u1"), shared.PeriodMonth)
	require.NoError(t, err)
	require.Len(t, month, 1)

	quarter, err := svc.List(ctxFor("u1"), shared.PeriodQuarter)
	require.NoError(t, err)
	require.Len(t, quarter, 2)

	all, err := svc.List(ctxFor("u1"), shared.PeriodAll)
	require.NoError(t, err)
	require.Len(t, all, 3)

	_, err = svc.List(context.Background(), shared.PeriodAll)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}
