package engagement

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/sundayezeilo/storyboard/internal/auth"
	"github.com/sundayezeilo/storyboard/internal/errx"
	"github.com/sundayezeilo/storyboard/internal/httpx"
)

// Handler provides HTTP handlers for engagement reads and toggles.
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

// GetEngagement handles GET requests for a story's engagement state.
// Anonymous viewers get false flags and the story's like total.
func (h *Handler) GetEngagement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(ctx, r)

	storyID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		logger.WarnContext(ctx, "invalid story id", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid story id", nil)
		return
	}

	userID, _ := auth.UserIDFrom(ctx) // uuid.Nil when anonymous

	state, err := h.service.Get(ctx, storyID, userID)
	if err != nil {
		h.handleServiceError(ctx, w, logger, err, storyID)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, state)
}

// ToggleLike handles POST requests flipping the caller's like on a story.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "like", h.service.ToggleLike)
}

// ToggleBookmark handles POST requests flipping the caller's bookmark on a story.
func (h *Handler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, "bookmark", h.service.ToggleBookmark)
}

func (h *Handler) toggle(
	w http.ResponseWriter,
	r *http.Request,
	action string,
	fn func(ctx context.Context, storyID, userID uuid.UUID) (State, error),
) {
	ctx := r.Context()
	logger := h.requestLogger(ctx, r)

	storyID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		logger.WarnContext(ctx, "invalid story id", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid story id", nil)
		return
	}

	userID, ok := auth.UserIDFrom(ctx)
	if !ok {
		logger.WarnContext(ctx, "anonymous toggle attempt", "story_id", storyID.String(), "action", action)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
			"Please sign in to continue", nil)
		return
	}

	state, err := fn(ctx, storyID, userID)
	if err != nil {
		h.handleServiceError(ctx, w, logger, err, storyID)
		return
	}

	logger.InfoContext(ctx, "engagement toggled",
		"story_id", storyID.String(),
		"action", action,
		"liked", state.Liked,
		"bookmarked", state.Bookmarked,
	)

	httpx.WriteJSON(w, http.StatusOK, state)
}

func (h *Handler) handleServiceError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error, storyID uuid.UUID) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
		"story_id", storyID.String(),
	}

	switch kind {
	case errx.Invalid:
		logger.WarnContext(ctx, "invalid engagement request", logAttrs...)
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error(), nil)

	case errx.Unauthorized:
		logger.WarnContext(ctx, "unauthenticated engagement request", logAttrs...)
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
			"Please sign in to continue", nil)

	case errx.NotFound:
		logger.WarnContext(ctx, "engagement target missing", logAttrs...)
		httpx.WriteError(w, http.StatusNotFound, "not_found",
			"Story not found", nil)

	case errx.Conflict:
		logger.WarnContext(ctx, "engagement write lost concurrent race", logAttrs...)
		httpx.WriteError(w, http.StatusConflict, "conflict",
			"Please retry your last action", nil)

	case errx.Unavailable:
		logger.ErrorContext(ctx, "durable store unavailable", logAttrs...)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable",
			"Unable to update engagement at this time. Please try again.", nil)

	default:
		logger.ErrorContext(ctx, "unexpected engagement error", logAttrs...)
		httpx.WriteError(w, http.StatusInternalServerError, "internal_error",
			"Unable to update engagement at this time. Please try again.", nil)
	}
}

func (h *Handler) requestLogger(ctx context.Context, r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)
}
