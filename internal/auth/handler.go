package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/odyssey-erp/bizdesk/internal/platform/httpx"
	"github.com/odyssey-erp/bizdesk/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
	secure    bool
}

// NewHandler constructs a Handler instance. secureCookie marks the session
// cookie Secure.
func NewHandler(logger *slog.Logger, service *Service, secureCookie bool) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
		secure:    secureCookie,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/logout", h.handleLogout)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sess, err := h.service.Login(r.Context(), req.Email, req.Password, r.RemoteAddr, r.UserAgent())
	if err != nil {
		h.logger.Warn("login failed", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     shared.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.JSON(w, http.StatusOK, sess)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := shared.TokenFromRequest(r)
	if token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
	}
	http.SetCookie(w, &http.Cookie{Name: shared.SessionCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.secure})
	w.WriteHeader(http.StatusNoContent)
}
