package report

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizdesk/internal/platform/httpx"
	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// Handler serves printable statements and the renderer health check.
type Handler struct {
	client *Client
	logger *slog.Logger
	taxes  TaxReporter
	now    func() time.Time
}

// NewHandler creates a report handler.
func NewHandler(client *Client, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{client: client, logger: logger, now: time.Now}
}

// WithTaxes enables GET /tax.pdf.
func (h *Handler) WithTaxes(taxes TaxReporter) *Handler {
	h.taxes = taxes
	return h
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ping", h.ping)
	if h.taxes != nil {
		r.Get("/tax.pdf", h.taxPDF)
	}
}

func (h *Handler) ping(w http.ResponseWriter, r *http.Request) {
	if err := h.client.Ping(r.Context()); err != nil {
		h.logger.Warn("gotenberg ping failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Renderer Unavailable", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) taxPDF(w http.ResponseWriter, r *http.Request) {
	principal, err := shared.RequirePrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	period, err := shared.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rep, err := h.taxes.Report(r.Context(), principal, period, h.now())
	if err != nil {
		h.logger.Error("tax statement", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	html, err := RenderTaxHTML(rep)
	if err != nil {
		h.logger.Error("tax statement html", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	pdf, err := h.client.RenderHTML(r.Context(), html)
	if err != nil {
		h.logger.Error("tax statement pdf", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Renderer Failed", "")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="tax-`+string(period)+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
