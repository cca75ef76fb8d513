package tax

import (
	"bytes"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizdesk/internal/platform/httpx"
	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// Handler manages tax endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	now     func() time.Time
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, now: time.Now}
}

// MountRoutes registers tax routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.report)
	r.Get("/export.csv", h.exportCSV)
	r.Get("/export.xlsx", h.exportXLSX)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) (Report, bool) {
	principal, err := shared.RequirePrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return Report{}, false
	}
	period, err := shared.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httpx.RespondError(w, err)
		return Report{}, false
	}
	report, err := h.service.Report(r.Context(), principal, period, h.now())
	if err != nil {
		h.logger.Error("tax report failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return Report{}, false
	}
	return report, true
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	report, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	report, ok := h.load(w, r)
	if !ok {
		return
	}
	buf := &bytes.Buffer{}
	if err := WriteCSV(buf, report); err != nil {
		h.logger.Error("tax csv export failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=tax_report.csv")
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) exportXLSX(w http.ResponseWriter, r *http.Request) {
	report, ok := h.load(w, r)
	if !ok {
		return
	}
	buf := &bytes.Buffer{}
	if err := WriteXLSX(buf, report); err != nil {
		h.logger.Error("tax xlsx export failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename=tax_report.xlsx")
	_, _ = w.Write(buf.Bytes())
}
