package story

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/sundayezeilo/storyboard/internal/auth"
	"github.com/sundayezeilo/storyboard/internal/errx"
	"github.com/sundayezeilo/storyboard/internal/httpx"
)

// SaveStoryHTTPRequest represents the JSON request body for creating or updating a story.
type SaveStoryHTTPRequest struct {
	Category string  `json:"category"`
	Slides   []Slide `json:"slides"`
}

// StoryResponse represents the JSON response for a story.
type StoryResponse struct {
	ID        string  `json:"id"`
	UserID    string  `json:"user_id"`
	Category  string  `json:"category"`
	Slides    []Slide `json:"slides"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

// Handler provides HTTP handlers for the story service.
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

// CreateStory handles POST requests to create a story.
func (h *Handler) CreateStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(ctx, r)

	userID, _ := auth.UserIDFrom(ctx)

	req, err := httpx.DecodeJSON[SaveStoryHTTPRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	story, err := h.service.Create(ctx, userID, SaveStoryRequest{
		Category: req.Category,
		Slides:   req.Slides,
	})
	if err != nil {
		h.handleServiceError(ctx, w, logger, err)
		return
	}

	logger.InfoContext(ctx, "story created",
		"story_id", story.ID.String(),
		"category", story.Category,
		"slides", len(story.Slides),
	)

	httpx.WriteJSON(w, http.StatusCreated, toStoryResponse(story))
}

// GetStory handles GET requests for a single story.
func (h *Handler) GetStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(ctx, r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid story id", nil)
		return
	}

	story, err := h.service.Get(ctx, id)
	if err != nil {
		h.handleServiceError(ctx, w, logger, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toStoryResponse(story))
}

// ListStories handles GET requests listing stories in a category.
func (h *Handler) ListStories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(ctx, r)

	category := r.URL.Query().Get("category")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	stories, err := h.service.ListByCategory(ctx, category, limit)
	if err != nil {
		h.handleServiceError(ctx, w, logger, err)
		return
	}

	resp := make([]StoryResponse, 0, len(stories))
	for _, story := range stories {
		resp = append(resp, toStoryResponse(story))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// UpdateStory handles PUT requests replacing a story's content.
func (h *Handler) UpdateStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(ctx, r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid story id", nil)
		return
	}

	userID, _ := auth.UserIDFrom(ctx)

	req, err := httpx.DecodeJSON[SaveStoryHTTPRequest](r)
	if err != nil {
		logger.WarnContext(ctx, "failed to decode request", "error", err.Error())
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	story, err := h.service.Update(ctx, id, userID, SaveStoryRequest{
		Category: req.Category,
		Slides:   req.Slides,
	})
	if err != nil {
		h.handleServiceError(ctx, w, logger, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toStoryResponse(story))
}

// DeleteStory handles DELETE requests removing a story.
func (h *Handler) DeleteStory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.requestLogger(ctx, r)

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "invalid story id", nil)
		return
	}

	userID, _ := auth.UserIDFrom(ctx)

	if err := h.service.Delete(ctx, id, userID); err != nil {
		h.handleServiceError(ctx, w, logger, err)
		return
	}

	httpx.WriteNoContent(w)
}

func (h *Handler) handleServiceError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error) {
	kind := errx.KindOf(err)

	logAttrs := []any{
		"error", err.Error(),
		"error_kind", kind,
		"operation", errx.OpOf(err),
	}

	// Status and code follow the standard kind mapping; only the log line and
	// the user-facing message vary per kind.
	var message string
	switch kind {
	case errx.NotFound:
		logger.WarnContext(ctx, "story not found", logAttrs...)
		message = "story doesn't exist"

	case errx.Invalid:
		logger.WarnContext(ctx, "invalid story request", logAttrs...)
		message = err.Error()

	case errx.Unauthorized:
		logger.WarnContext(ctx, "unauthenticated story request", logAttrs...)
		message = "Please sign in to continue"

	case errx.Forbidden:
		logger.WarnContext(ctx, "story ownership violation", logAttrs...)
		message = "You can only change your own stories"

	case errx.Unavailable:
		logger.ErrorContext(ctx, "story store unavailable", logAttrs...)
		message = "Unable to process this story at this time. Please try again."

	default:
		logger.ErrorContext(ctx, "unexpected story error", logAttrs...)
		message = "Unable to process this story at this time. Please try again."
	}

	httpx.WriteError(w, httpx.ErrorKindToStatus(kind), httpx.ErrorKindToCode(kind), message, nil)
}

func (h *Handler) requestLogger(ctx context.Context, r *http.Request) *slog.Logger {
	return h.logger.With(
		"request_id", httpx.GetRequestID(ctx),
		"method", r.Method,
		"path", r.URL.Path,
	)
}

func toStoryResponse(story Story) StoryResponse {
	return StoryResponse{
		ID:        story.ID.String(),
		UserID:    story.UserID.String(),
		Category:  story.Category,
		Slides:    story.Slides,
		CreatedAt: story.CreatedAt.Format(time.RFC3339),
		UpdatedAt: story.UpdatedAt.Format(time.RFC3339),
	}
}
