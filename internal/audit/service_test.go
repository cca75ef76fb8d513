package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/bizdesk/internal/shared"
)

type memoryEntry struct {
	owner string
	row   TimelineRow
}

type memoryRepo struct {
	entries []memoryEntry
	last    Query
}

func (m *memoryRepo) Timeline(_ context.Context, q Query) ([]TimelineRow, error) {
	m.last = q
	var out []TimelineRow
	for _, e := range m.entries {
		if e.owner != q.OwnerID {
			continue
		}
		if q.Entity != "" && e.row.Entity != q.Entity {
			continue
		}
		if q.Action != "" && e.row.Action != q.Action {
			continue
		}
		if !q.From.IsZero() && e.row.At.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !e.row.At.Before(q.To) {
			continue
		}
		out = append(out, e.row)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].At.After(out[j].At) })
	if q.Offset > len(out) {
		return nil, nil
	}
	out = out[q.Offset:]
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func seeded() *memoryRepo {
	base := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	repo := &memoryRepo{}
	for i := 0; i < 5; i++ {
		repo.entries = append(repo.entries, memoryEntry{owner: "owner-1", row: TimelineRow{
			At: base.Add(time.Duration(i) * time.Hour), Action: "sales:checkout", Entity: "invoice", EntityID: "inv-" + string(rune('a'+i)),
		}})
	}
	repo.entries = append(repo.entries,
		memoryEntry{owner: "owner-1", row: TimelineRow{At: base.Add(-24 * time.Hour), Action: "inventory:adjust", Entity: "inventory", EntityID: "item-1", Meta: map[string]any{"mode": "remove"}}},
		memoryEntry{owner: "owner-2", row: TimelineRow{At: base, Action: "sales:checkout", Entity: "invoice", EntityID: "other"}},
	)
	return repo
}

func ctxFor(owner string) context.Context {
	return shared.ContextWithPrincipal(context.Background(), shared.Principal{ID: owner})
}

func TestTimelinePaging(t *testing.T) {
	repo := seeded()
	svc := NewService(repo)

	result, err := svc.Timeline(ctxFor("owner-1"), TimelineFilters{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Equal(t, 3, repo.last.Limit)
	assert.Equal(t, 0, repo.last.Offset)
	assert.Equal(t, "inv-e", result.Rows[0].EntityID)

	result, err = svc.Timeline(ctxFor("owner-1"), TimelineFilters{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.PrevPage)
	assert.Equal(t, 4, repo.last.Offset)
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := seeded()
	_, err := NewService(repo).Timeline(ctxFor("owner-1"), TimelineFilters{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, maxPageSize+1, repo.last.Limit)
}

func TestTimelineIsOwnerScoped(t *testing.T) {
	result, err := NewService(seeded()).Timeline(ctxFor("owner-2"), TimelineFilters{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "other", result.Rows[0].EntityID)

	_, err = NewService(seeded()).Timeline(context.Background(), TimelineFilters{})
	require.ErrorIs(t, err, shared.ErrUnauthenticated)
}

func TestExportCSV(t *testing.T) {
	rows, err := NewService(seeded()).Export(ctxFor("owner-1"), TimelineFilters{Entity: "inventory"})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	buf := &bytes.Buffer{}
	require.NoError(t, WriteCSV(buf, rows))
	records, err := csv.NewReader(buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "inventory:adjust", records[1][1])
	assert.JSONEq(t, `{"mode":"remove"}`, records[1][4])
}

func newRouter(repo Repository) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithPrincipal(req.Context(), shared.Principal{ID: "owner-1"})))
		})
	})
	r.Route("/audit", NewHandler(nil, NewService(repo)).MountRoutes)
	return r
}

func TestHandlerFiltersByDate(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(seeded()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit?from=2025-03-09&to=2025-03-09", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var result Result
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "item-1", result.Rows[0].EntityID)
}

func TestHandlerRejectsBadInput(t *testing.T) {
	for _, target := range []string{"/audit?from=yesterday", "/audit?page=x"} {
		rr := httptest.NewRecorder()
		newRouter(seeded()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
	}
}

func TestHandlerExport(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(seeded()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/audit/export.csv?action=sales:checkout", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/csv", rr.Header().Get("Content-Type"))
	assert.Equal(t, 6, strings.Count(rr.Body.String(), "\n"))
}
