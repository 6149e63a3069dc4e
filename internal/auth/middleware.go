package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sundayezeilo/storyboard/internal/httpx"
)

// contextKey is the type for context keys to avoid collisions.
type contextKey string

const userIDContextKey contextKey = "user_id"

// UserIDFrom extracts the authenticated user ID from the request context.
// The second return value is false for anonymous requests.
func UserIDFrom(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDContextKey).(uuid.UUID)
	return id, ok
}

// WithUserID returns a context carrying the given user ID.
// Useful for tests that exercise handlers without the middleware.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}

// Require is a middleware that rejects requests without a valid bearer token.
func Require(tm *TokenManager) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := bearerUserID(tm, r)
			if !ok {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
					"Please sign in to continue", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// Optional is a middleware that attaches the user ID when a valid bearer
// token is present and passes the request through anonymously otherwise.
func Optional(tm *TokenManager) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if userID, ok := bearerUserID(tm, r); ok {
				r = r.WithContext(WithUserID(r.Context(), userID))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerUserID(tm *TokenManager, r *http.Request) (uuid.UUID, bool) {
	header := r.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return uuid.Nil, false
	}

	userID, err := tm.Verify(token)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}
