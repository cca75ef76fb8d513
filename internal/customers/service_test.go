package customers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizdesk/internal/shared"
)

type memoryRepo struct {
	mu        sync.Mutex
	customers map[string]Customer
	purchases []ownedPurchase
}

type ownedPurchase struct {
	ownerID    string
	customerID string
	Purchase
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{customers: make(map[string]Customer)}
}

func (r *memoryRepo) addPurchase(ownerID, customerID string, p Purchase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purchases = append(r.purchases, ownedPurchase{ownerID: ownerID, customerID: customerID, Purchase: p})
}

func (r *memoryRepo) PurchaseTotals(_ context.Context, ownerID, customerID string) (Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var st Stats
	for _, p := range r.purchases {
		if p.ownerID != ownerID || p.customerID != customerID {
			continue
		}
		st.SalesCount++
		st.LifetimeValue += float64(p.Quantity) * p.SalesPrice
		st.Outstanding += p.Outstanding
	}
	return st, nil
}

func (r *memoryRepo) Purchases(_ context.Context, ownerID, customerID string, limit int) ([]Purchase, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Purchase
	for _, p := range r.purchases {
		if p.ownerID == ownerID && p.customerID == customerID {
			out = append(out, p.Purchase)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, r)
}

func (r *memoryRepo) Get(_ context.Context, ownerID, id string) (*Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok || c.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (r *memoryRepo) List(_ context.Context, req ListCustomersRequest) ([]Customer, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Customer
	for _, c := range r.customers {
		if c.OwnerID != req.OwnerID {
			continue
		}
		if req.Status != nil && c.Status != *req.Status {
			continue
		}
		if req.Search != nil && !strings.Contains(strings.ToLower(c.FullName), strings.ToLower(*req.Search)) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, len(out), nil
}

func (r *memoryRepo) Create(_ context.Context, c Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.customers[c.ID] = c
	return nil
}

func (r *memoryRepo) Update(_ context.Context, ownerID, id string, updates map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok || c.OwnerID != ownerID {
		return ErrNotFound
	}
	for col, v := range updates {
		switch col {
		case "full_name":
			c.FullName = v.(string)
		case "phone":
			s := v.(string)
			c.Phone = &s
		case "email":
			s := v.(string)
			c.Email = &s
		case "notes":
			s := v.(string)
			c.Notes = &s
		case "status":
			c.Status = Status(v.(string))
		}
	}
	r.customers[id] = c
	return nil
}

func (r *memoryRepo) SetStatus(_ context.Context, ownerID, id string, status Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok || c.OwnerID != ownerID {
		return ErrNotFound
	}
	c.Status = status
	r.customers[id] = c
	return nil
}

func ownerCtx(id string) context.Context {
	return shared.ContextWithPrincipal(context.Background(), shared.Principal{ID: id, Email: id + "@example.com"})
}

func TestCreateDefaultsToProspect(t *testing.T) {
	svc := NewService(newMemoryRepo())
	c, err := svc.Create(ownerCtx("u1"), CreateCustomerRequest{FullName: "  Ada Obi "})
	require.NoError(t, err)
	assert.Equal(t, StatusProspect, c.Status)
	assert.Equal(t, "Ada Obi", c.FullName)
	assert.NotEmpty(t, c.ID)
}

func TestCreateRejectsBadEmail(t *testing.T) {
	svc := NewService(newMemoryRepo())
	email := "nope"
	_, err := svc.Create(ownerCtx("u1"), CreateCustomerRequest{FullName: "Ada", Email: &email})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateRequiresPrincipal(t *testing.T) {
	svc := NewService(newMemoryRepo())
	_, err := svc.Create(context.Background(), CreateCustomerRequest{FullName: "Ada"})
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestPromoteIsIdempotent(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := ownerCtx("u1")
	c, err := svc.Create(ctx, CreateCustomerRequest{FullName: "Ada", Status: StatusLead})
	require.NoError(t, err)

	require.NoError(t, svc.Promote(ctx, c.ID))
	require.NoError(t, svc.Promote(ctx, c.ID))

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCustomer, got.Status)
}

func TestListFiltersByStatus(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := ownerCtx("u1")
	_, err := svc.Create(ctx, CreateCustomerRequest{FullName: "Ada"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateCustomerRequest{FullName: "Bola", Status: StatusCustomer})
	require.NoError(t, err)
	_, err = svc.Create(ownerCtx("u2"), CreateCustomerRequest{FullName: "Chidi", Status: StatusCustomer})
	require.NoError(t, err)

	st := StatusCustomer
	list, total, err := svc.List(ctx, &st, nil, shared.ListParams{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, "Bola", list[0].FullName)

	bad := Status("VIP")
	_, _, err = svc.List(ctx, &bad, nil, shared.ListParams{})
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateStatus(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := ownerCtx("u1")
	c, err := svc.Create(ctx, CreateCustomerRequest{FullName: "Ada"})
	require.NoError(t, err)

	st := StatusLead
	got, err := svc.Update(ctx, c.ID, UpdateCustomerRequest{Status: &st})
	require.NoError(t, err)
	assert.Equal(t, StatusLead, got.Status)

	_, err = svc.Update(ownerCtx("u2"), c.ID, UpdateCustomerRequest{Status: &st})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDetailAggregatesPurchases(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := ownerCtx("u1")
	c, err := svc.Create(ctx, CreateCustomerRequest{FullName: "Ada"})
	require.NoError(t, err)
	other, err := svc.Create(ctx, CreateCustomerRequest{FullName: "Bola"})
	require.NoError(t, err)

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	repo.addPurchase("u1", c.ID, Purchase{ID: "s1", ProductName: "Galaxy A15", Quantity: 1, SalesPrice: 150000, Status: "Paid", CreatedAt: base})
	repo.addPurchase("u1", c.ID, Purchase{ID: "s2", ProductName: "Charger", Quantity: 2, SalesPrice: 5000, Status: "Part Payment", Outstanding: 4000, CreatedAt: base.Add(time.Hour)})
	repo.addPurchase("u1", other.ID, Purchase{ID: "s3", ProductName: "iPhone", Quantity: 1, SalesPrice: 900000, Status: "Unpaid", Outstanding: 900000, CreatedAt: base})
	repo.addPurchase("u2", c.ID, Purchase{ID: "s4", ProductName: "Tecno", Quantity: 1, SalesPrice: 80000, Status: "Unpaid", Outstanding: 80000, CreatedAt: base})

	detail, err := svc.Detail(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", detail.FullName)
	assert.Equal(t, 2, detail.Stats.SalesCount)
	assert.Equal(t, 160000.0, detail.Stats.LifetimeValue)
	assert.Equal(t, 4000.0, detail.Stats.Outstanding)
	require.Len(t, detail.Stats.History, 2)
	assert.Equal(t, "s2", detail.Stats.History[0].ID)
	assert.Equal(t, "s1", detail.Stats.History[1].ID)
}

func TestDetailWithoutPurchases(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := ownerCtx("u1")
	c, err := svc.Create(ctx, CreateCustomerRequest{FullName: "Ada"})
	require.NoError(t, err)

	detail, err := svc.Detail(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, detail.Stats.SalesCount)
	assert.Zero(t, detail.Stats.LifetimeValue)
	assert.NotNil(t, detail.Stats.History)

	_, err = svc.Detail(ownerCtx("u2"), c.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Detail(context.Background(), c.ID)
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{ID: "u1"})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})
	r.Route("/customers", h.MountRoutes)
	return r
}

func TestHandlerCreateAndShow(t *testing.T) {
	router := newTestRouter(NewService(newMemoryRepo()))

	req := httptest.NewRequest(http.MethodPost, "/customers", strings.NewReader(`{"full_name":"Ada Obi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"Prospect"`)

	var created Customer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	req = httptest.NewRequest(http.MethodGet, "/customers/"+created.ID, nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var shown Detail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shown))
	assert.Equal(t, "Ada Obi", shown.FullName)
	assert.Contains(t, rec.Body.String(), `"lifetime_value":0`)
	assert.Contains(t, rec.Body.String(), `"history":[]`)

	req = httptest.NewRequest(http.MethodGet, "/customers/missing", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerRejectsUnknownFields(t *testing.T) {
	router := newTestRouter(NewService(newMemoryRepo()))
	req := httptest.NewRequest(http.MethodPost, "/customers", strings.NewReader(`{"name":"Ada"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
