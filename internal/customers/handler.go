package customers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizdesk/internal/platform/httpx"
	"github.com/odyssey-erp/bizdesk/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

type listResponse struct {
	Customers []Customer `json:"customers"`
	Total     int        `json:"total"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	var status *Status
	if v := r.URL.Query().Get("status"); v != "" {
		st := Status(v)
		status = &st
	}
	var search *string
	if v := r.URL.Query().Get("search"); v != "" {
		search = &v
	}
	params := shared.ListParamsFromRequest(r)

	customers, total, err := h.service.List(r.Context(), status, search, params)
	if err != nil {
		h.fail(w, "list customers failed", err)
		return
	}
	if customers == nil {
		customers = []Customer{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Customers: customers, Total: total, Limit: params.Limit, Offset: params.Offset})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get customer failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create customer failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, customer)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	customer, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		h.fail(w, "update customer failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, customer)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	err = httpx.Classify(err, httpx.ErrValidation, ErrInvalidInput, ErrInvalidStatus)
	err = httpx.Classify(err, httpx.ErrNotFound, ErrNotFound)
	h.logger.Error(msg, "error", err)
	httpx.RespondError(w, err)
}
