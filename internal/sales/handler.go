package sales

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizdesk/internal/platform/httpx"
	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// IdempotencyHeader carries the client's checkout key.
const IdempotencyHeader = "Idempotency-Key"

// Handler exposes HTTP endpoints for sales.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	receipts *Receipts
}

// NewHandler constructs the sales handler. receipts may be nil.
func NewHandler(logger *slog.Logger, service *Service, receipts *Receipts) *Handler {
	return &Handler{logger: logger, service: service, receipts: receipts}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/checkout", h.checkout)
	r.Get("/invoices/{id}", h.showInvoice)
	r.Get("/invoices/{id}/receipt", h.receipt)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Post("/{id}/mark-paid", h.markPaid)
}

// Dashboard serves the summary totals and latest sales.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, "dashboard summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	inv, err := h.service.Checkout(r.Context(), req, r.Header.Get(IdempotencyHeader))
	if err != nil {
		h.fail(w, "checkout", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.RecordSale(r.Context(), req)
	if err != nil {
		h.fail(w, "record sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	period, err := shared.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("period") == "" {
		period = shared.PeriodAll
	}
	records, err := h.service.List(r.Context(), period, r.URL.Query().Get("customer_id"))
	if err != nil {
		h.fail(w, "list sales", err)
		return
	}
	if records == nil {
		records = []SaleRecord{}
	}
	httpx.JSON(w, http.StatusOK, records)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req UpdateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	rec, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, "update sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.MarkPaid(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "mark paid", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get invoice", err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) receipt(w http.ResponseWriter, r *http.Request) {
	if h.receipts == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Unavailable", "receipt rendering is not configured")
		return
	}
	principal, err := shared.RequirePrincipal(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	id := chi.URLParam(r, "id")
	pdf, cached, err := h.receipts.PDF(r.Context(), principal.ID, id)
	if err != nil {
		h.fail(w, "render receipt", err)
		return
	}
	h.logger.Debug("receipt served", slog.String("invoice_id", id), slog.Bool("cached", cached))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=receipt-"+id+".pdf")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	err = httpx.Classify(err, httpx.ErrValidation, ErrValidation)
	err = httpx.Classify(err, httpx.ErrConflict, ErrConcurrencyConflict)
	err = httpx.Classify(err, httpx.ErrNotFound, ErrNotFound)
	h.logger.Warn(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
