package profile

import (
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/bizdesk/internal/platform/httpx"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context())
	if err != nil {
		h.fail(w, "get profile failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req UpsertProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.Upsert(r.Context(), req)
	if err != nil {
		h.fail(w, "save profile failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	err = httpx.Classify(err, httpx.ErrValidation, ErrInvalidInput)
	h.logger.Error(msg, "error", err)
	httpx.RespondError(w, err)
}
