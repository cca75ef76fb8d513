package inventory

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizdesk/internal/shared"
)

type memoryRepo struct {
	mu    sync.Mutex
	items map[string]Item
}

type memoryTx struct {
	items map[string]Item
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{items: make(map[string]Item)}
}

// WithTx works on a copy and commits it only when fn succeeds.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	staged := make(map[string]Item, len(r.items))
	for k, v := range r.items {
		staged[k] = v
	}
	if err := fn(ctx, &memoryTx{items: staged}); err != nil {
		return err
	}
	r.items = staged
	return nil
}

func (r *memoryRepo) List(_ context.Context, ownerID string, params shared.ListParams) ([]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Item
	for _, item := range r.items {
		if item.OwnerID == ownerID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductName < out[j].ProductName })
	if params.Offset >= len(out) {
		return nil, nil
	}
	out = out[params.Offset:]
	if len(out) > params.Limit {
		out = out[:params.Limit]
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, ownerID, id string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.OwnerID != ownerID {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (r *memoryRepo) GetMany(_ context.Context, ownerID string, ids []string) (map[string]Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Item)
	for _, id := range ids {
		if item, ok := r.items[id]; ok && item.OwnerID == ownerID {
			out[id] = item
		}
	}
	return out, nil
}

func (tx *memoryTx) Insert(_ context.Context, item Item) error {
	tx.items[item.ID] = item
	return nil
}

func (tx *memoryTx) Update(_ context.Context, item Item) error {
	if _, ok := tx.items[item.ID]; !ok {
		return ErrItemNotFound
	}
	tx.items[item.ID] = item
	return nil
}

func (tx *memoryTx) Delete(_ context.Context, ownerID, id string) error {
	item, ok := tx.items[id]
	if !ok || item.OwnerID != ownerID {
		return ErrItemNotFound
	}
	delete(tx.items, id)
	return nil
}

func (tx *memoryTx) GetForUpdate(_ context.Context, ownerID, id string) (Item, error) {
	item, ok := tx.items[id]
	if !ok || item.OwnerID != ownerID {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

type auditSpy struct {
	logs []shared.AuditLog
	err  error
}

func (a *auditSpy) Record(_ context.Context, log shared.AuditLog) error {
	if a.err != nil {
		return a.err
	}
	a.logs = append(a.logs, log)
	return nil
}

func ownerCtx(id string) context.Context {
	return shared.ContextWithPrincipal(context.Background(), shared.Principal{ID: id, Email: id + "@example.com"})
}

func seedItem(t *testing.T, svc *Service, ctx context.Context, qty int) Item {
	t.Helper()
	item, err := svc.Create(ctx, CreateItemInput{
		ProductName: "Galaxy A15",
		IMEI:        "356789104455221",
		Quantity:    qty,
		CostPrice:   100000,
		SalesPrice:  150000,
	})
	require.NoError(t, err)
	return item
}

func TestCreateRequiresPrincipal(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Create(context.Background(), CreateItemInput{ProductName: "x"})
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestCreateRejectsNegativePrice(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	_, err := svc.Create(ownerCtx("u1"), CreateItemInput{ProductName: "x", CostPrice: -1})
	require.Error(t, err)
}

func TestAdjustAddAndRemove(t *testing.T) {
	audit := &auditSpy{}
	svc := NewService(newMemoryRepo(), audit)
	ctx := ownerCtx("u1")
	item := seedItem(t, svc, ctx, 3)

	got, err := svc.Adjust(ctx, item.ID, AdjustmentInput{Mode: AdjustAdd, Quantity: 4})
	require.NoError(t, err)
	require.Equal(t, 7, got.Quantity)

	got, err = svc.Adjust(ctx, item.ID, AdjustmentInput{Mode: AdjustRemove, Quantity: 7, Note: "damaged"})
	require.NoError(t, err)
	require.Equal(t, 0, got.Quantity)

	require.Len(t, audit.logs, 2)
	require.Equal(t, "inventory:remove", audit.logs[1].Action)
	require.Equal(t, 0, audit.logs[1].Meta["balance"])
}

func TestAdjustLogsAuditFailure(t *testing.T) {
	var buf bytes.Buffer
	audit := &auditSpy{err: errors.New("audit table locked")}
	svc := NewService(newMemoryRepo(), audit).WithLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := ownerCtx("u1")
	item := seedItem(t, svc, ctx, 1)

	got, err := svc.Adjust(ctx, item.ID, AdjustmentInput{Mode: AdjustAdd, Quantity: 2})
	require.NoError(t, err)
	require.Equal(t, 3, got.Quantity)

	out := buf.String()
	require.Contains(t, out, "level=WARN")
	require.Contains(t, out, "audit inventory adjustment")
	require.Contains(t, out, "audit table locked")
	require.Contains(t, out, item.ID)
}

func TestAdjustRemoveBelowZeroLeavesStock(t *testing.T) {
	audit := &auditSpy{}
	svc := NewService(newMemoryRepo(), audit)
	ctx := ownerCtx("u1")
	item := seedItem(t, svc, ctx, 2)

	_, err := svc.Adjust(ctx, item.ID, AdjustmentInput{Mode: AdjustRemove, Quantity: 3})
	require.ErrorIs(t, err, ErrNegativeStock)

	stored, err := svc.Get(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.Quantity)
	require.Empty(t, audit.logs)
}

func TestAdjustRejectsNonPositiveQuantity(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := ownerCtx("u1")
	item := seedItem(t, svc, ctx, 2)

	_, err := svc.Adjust(ctx, item.ID, AdjustmentInput{Mode: AdjustAdd, Quantity: 0})
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestItemsAreScopedToOwner(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	item := seedItem(t, svc, ownerCtx("u1"), 5)

	_, err := svc.Get(ownerCtx("u2"), item.ID)
	require.ErrorIs(t, err, ErrItemNotFound)

	items, err := svc.List(ownerCtx("u2"), shared.ListParams{})
	require.NoError(t, err)
	require.Empty(t, items)
}

func TestUpdatePartial(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	ctx := ownerCtx("u1")
	item := seedItem(t, svc, ctx, 5)

	price := 175000.0
	got, err := svc.Update(ctx, item.ID, UpdateItemInput{SalesPrice: &price})
	require.NoError(t, err)
	require.Equal(t, price, got.SalesPrice)
	require.Equal(t, item.ProductName, got.ProductName)
	require.Equal(t, 5, got.Quantity)
}

func TestSnapshotSkipsUnknownAndMalformedIDs(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil)
	item := seedItem(t, svc, ownerCtx("u1"), 5)

	snap, err := svc.Snapshot(context.Background(), "u1", []string{item.ID, uuid.NewString(), "not-a-uuid"})
	require.NoError(t, err)
	require.Len(t, snap, 1)
	require.Equal(t, 5, snap[item.ID].Quantity)

	_, err = svc.Snapshot(context.Background(), "", []string{item.ID})
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}
