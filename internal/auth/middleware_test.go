package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRequire(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	userID := uuid.New()
	token, err := tm.Issue(userID)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantUserID bool
	}{
		{
			name:       "valid bearer token passes through with identity",
			authHeader: "Bearer " + token,
			wantStatus: http.StatusOK,
			wantUserID: true,
		},
		{
			name:       "missing header is rejected",
			authHeader: "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "wrong scheme is rejected",
			authHeader: "Basic " + token,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token is rejected",
			authHeader: "Bearer not-a-token",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID uuid.UUID
			var gotOK bool
			handler := Require(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotID, gotOK = UserIDFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/v1/stories/abc/like", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantUserID {
				if !gotOK || gotID != userID {
					t.Errorf("context user = %s (ok %v), want %s", gotID, gotOK, userID)
				}
			}
		})
	}
}

func TestOptional(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	userID := uuid.New()
	token, err := tm.Issue(userID)
	if err != nil {
		t.Fatalf("Issue() failed: %v", err)
	}

	t.Run("attaches identity when a valid token is present", func(t *testing.T) {
		var gotID uuid.UUID
		var gotOK bool
		handler := Optional(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotID, gotOK = UserIDFrom(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stories/abc/engagement", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		if !gotOK || gotID != userID {
			t.Errorf("context user = %s (ok %v), want %s", gotID, gotOK, userID)
		}
	})

	t.Run("passes anonymous and bad-token requests through", func(t *testing.T) {
		for _, header := range []string{"", "Bearer garbage"} {
			var gotOK bool
			handler := Optional(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, gotOK = UserIDFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/stories/abc/engagement", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200 for header %q", rec.Code, header)
			}
			if gotOK {
				t.Errorf("identity attached for header %q", header)
			}
		}
	})
}
