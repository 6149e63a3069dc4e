package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sundayezeilo/storyboard/internal/errx"
	"github.com/sundayezeilo/storyboard/internal/httpx"
)

// CredentialsRequest represents the JSON request body for register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse represents the JSON response for a successful register or login.
type SessionResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// Handler provides HTTP handlers for account registration and login.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new Handler instance.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register handles POST requests to create an account.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	h.handleCredentials(w, r, "register", h.service.Register)
}

// Login handles POST requests to authenticate an account.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	h.handleCredentials(w, r, "login", h.service.Login)
}

func (h *Handler) handleCredentials(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(ctx context.Context, username, password string) (User, string, error),
) {
	ctx := r.Context()

	logger := h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)

	req, err := httpx.DecodeJSON[CredentialsRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	user, token, err := fn(ctx, req.Username, req.Password)
	if err != nil {
		kind := errx.KindOf(err)

		logAttrs := []any{
			"error", err.Error(),
			"error_kind", kind,
			"operation", errx.OpOf(err),
			"username", req.Username,
		}

		switch kind {
		case errx.Invalid:
			logger.WarnContext(ctx, "invalid credentials request", logAttrs...)
			httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

		case errx.Conflict:
			logger.WarnContext(ctx, "username already taken", logAttrs...)
			httpx.WriteError(w, http.StatusConflict, "conflict",
				"This username is already taken", nil)

		case errx.Unauthorized:
			logger.WarnContext(ctx, "authentication failed", logAttrs...)
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
				"Invalid username or password", nil)

		case errx.Unavailable:
			logger.ErrorContext(ctx, "auth store unavailable", logAttrs...)
			httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
				"Unable to sign in at this time. Please try again.", nil)

		default:
			logger.ErrorContext(ctx, "unexpected auth error", logAttrs...)
			httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
				"Unable to sign in at this time. Please try again.", nil)
		}
		return
	}

	logger.InfoContext(ctx, action+" succeeded", "user_id", user.ID.String())

	status := http.StatusOK
	if action == "register" {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, SessionResponse{
		UserID:   user.ID.String(),
		Username: user.Username,
		Token:    token,
	})
}
