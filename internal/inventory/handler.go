package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/bizdesk/internal/platform/httpx"
	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/adjust", h.adjust)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), shared.ListParamsFromRequest(r))
	if err != nil {
		h.fail(w, "list inventory", err)
		return
	}
	if items == nil {
		items = []Item{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateItemInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.fail(w, "create item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var input UpdateItemInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "update item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var input AdjustmentInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Adjust(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "adjust stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	err = httpx.Classify(err, httpx.ErrValidation, ErrNegativeStock, ErrInvalidQuantity, ErrInvalidPrice, ErrInvalidInput)
	err = httpx.Classify(err, httpx.ErrNotFound, ErrItemNotFound)
	if h.logger != nil {
		h.logger.Warn(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
