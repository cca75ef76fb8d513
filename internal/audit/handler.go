package audit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizdesk/internal/platform/httpx"
)

// Handler serves the activity timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs an audit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.timeline)
	r.Get("/export.csv", h.export)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit export", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit_timeline.csv")
	if err := WriteCSV(w, rows); err != nil {
		h.logger.Error("write audit csv", slog.Any("error", err))
	}
}

func parseFilters(r *http.Request) (TimelineFilters, error) {
	q := r.URL.Query()
	f := TimelineFilters{Entity: q.Get("entity"), Action: q.Get("action")}
	var err error
	if f.From, err = parseDate(q.Get("from")); err != nil {
		return f, err
	}
	if f.To, err = parseDate(q.Get("to")); err != nil {
		return f, err
	}
	if !f.To.IsZero() {
		f.To = f.To.AddDate(0, 0, 1)
	}
	if raw := q.Get("page"); raw != "" {
		if f.Page, err = strconv.Atoi(raw); err != nil {
			return f, fmt.Errorf("%w: %w", httpx.ErrValidation, err)
		}
	}
	if raw := q.Get("page_size"); raw != "" {
		if f.PageSize, err = strconv.Atoi(raw); err != nil {
			return f, fmt.Errorf("%w: %w", httpx.ErrValidation, err)
		}
	}
	return f, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	}
	return t, nil
}
