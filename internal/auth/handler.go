package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pych2536/rpca70/internal/platform/middleware"
	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
	"github.com/pych2536/rpca70/pkg/platform/httputil"
)

// Handler exposes the admin login endpoint.
type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/admin/login", h.HandleLogin)
}

// LoginRequest carries the admin credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

func (r *LoginRequest) Validate() error {
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "username and password are required")
	}
	return nil
}

// LoginResponse returns the session token to carry on /admin requests.
type LoginResponse struct {
	Token string `json:"token"`
}

// HandleLogin verifies credentials and issues a session token.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	token, err := h.service.Login(req.Username, req.Password)
	if err != nil {
		h.logger.WarnContext(ctx, "admin login failed", "username", req.Username, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &LoginResponse{Token: token})
}
