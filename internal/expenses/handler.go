package expenses

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

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	period, err := shared.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.List(r.Context(), period)
	if err != nil {
		h.logger.Error("list expenses failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input CreateExpenseInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.Create(r.Context(), input)
	if err != nil {
		err = httpx.Classify(err, httpx.ErrValidation, ErrInvalidAmount, ErrInvalidInput)
		h.logger.Warn("create expense failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
}
