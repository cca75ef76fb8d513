package audit

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/odyssey-erp/bizdesk/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// Service serves the current principal's activity timeline.
type Service struct {
	repo Repository
}

// NewService creates an audit timeline service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches one page of audit entries.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return Result{}, err
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	q := query(principal.ID, filters)
	q.Offset = (page - 1) * pageSize
	q.Limit = pageSize + 1

	rows, err := s.repo.Timeline(ctx, q)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	if rows == nil {
		rows = []TimelineRow{}
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export returns every matching entry without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	principal, err := shared.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Timeline(ctx, query(principal.ID, filters))
}

func query(ownerID string, f TimelineFilters) Query {
	return Query{
		OwnerID: ownerID,
		From:    f.From,
		To:      f.To,
		Entity:  strings.TrimSpace(f.Entity),
		Action:  strings.TrimSpace(f.Action),
	}
}

// WriteCSV serialises timeline rows.
func WriteCSV(w io.Writer, rows []TimelineRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"At", "Action", "Entity", "EntityID", "Meta"}); err != nil {
		return err
	}
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			b, err := json.Marshal(row.Meta)
			if err != nil {
				return fmt.Errorf("audit: encode meta: %w", err)
			}
			meta = string(b)
		}
		if err := writer.Write([]string{row.At.UTC().Format(time.RFC3339), row.Action, row.Entity, row.EntityID, meta}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
