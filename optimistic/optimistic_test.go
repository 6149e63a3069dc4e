package optimistic

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

/***************
 * Mocks
 ***************/

// mockBackend implements Backend with per-method overrides.
type mockBackend struct {
	toggleLikeFunc     func(ctx context.Context, storyID uuid.UUID) (State, error)
	toggleBookmarkFunc func(ctx context.Context, storyID uuid.UUID) (State, error)

	likeCalls     int
	bookmarkCalls int
}

func (m *mockBackend) ToggleLike(ctx context.Context, storyID uuid.UUID) (State, error) {
	m.likeCalls++
	if m.toggleLikeFunc != nil {
		return m.toggleLikeFunc(ctx, storyID)
	}
	return State{}, nil
}

func (m *mockBackend) ToggleBookmark(ctx context.Context, storyID uuid.UUID) (State, error) {
	m.bookmarkCalls++
	if m.toggleBookmarkFunc != nil {
		return m.toggleBookmarkFunc(ctx, storyID)
	}
	return State{}, nil
}

/***************
 * Tests
 ***************/

func TestApply(t *testing.T) {
	tests := []struct {
		name   string
		state  State
		action Action
		want   State
	}{
		{
			name:   "liking increments the total",
			state:  State{TotalLikes: 5},
			action: ActionLike,
			want:   State{Liked: true, TotalLikes: 6},
		},
		{
			name:   "unliking decrements the total",
			state:  State{Liked: true, TotalLikes: 6},
			action: ActionLike,
			want:   State{TotalLikes: 5},
		},
		{
			name:   "bookmarking leaves the total alone",
			state:  State{TotalLikes: 5},
			action: ActionBookmark,
			want:   State{Bookmarked: true, TotalLikes: 5},
		},
		{
			name:   "unbookmarking",
			state:  State{Bookmarked: true, Liked: true, TotalLikes: 2},
			action: ActionBookmark,
			want:   State{Liked: true, TotalLikes: 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Apply(tt.state, tt.action); got != tt.want {
				t.Errorf("Apply() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestApply_DoubleApplyRestoresState(t *testing.T) {
	seed := State{Bookmarked: true, TotalLikes: 11}
	for _, action := range []Action{ActionLike, ActionBookmark} {
		if got := Apply(Apply(seed, action), action); got != seed {
			t.Errorf("double Apply(%v) = %+v, want %+v", action, got, seed)
		}
	}
}

func TestController_ToggleLike(t *testing.T) {
	storyID := uuid.New()

	t.Run("keeps the optimistic flip when the write commits", func(t *testing.T) {
		backend := &mockBackend{
			toggleLikeFunc: func(context.Context, uuid.UUID) (State, error) {
				return State{Liked: true, TotalLikes: 6}, nil
			},
		}
		ctrl := NewController(backend, storyID, State{TotalLikes: 5}, true)

		if err := ctrl.ToggleLike(context.Background()); err != nil {
			t.Fatalf("ToggleLike() failed: %v", err)
		}
		want := State{Liked: true, TotalLikes: 6}
		if got := ctrl.State(); got != want {
			t.Errorf("State() = %+v, want %+v", got, want)
		}
	})

	t.Run("reverts the flip exactly when the write fails", func(t *testing.T) {
		backend := &mockBackend{
			toggleLikeFunc: func(context.Context, uuid.UUID) (State, error) {
				return State{}, errors.New("store unavailable")
			},
		}
		seed := State{TotalLikes: 5}
		ctrl := NewController(backend, storyID, seed, true)

		if err := ctrl.ToggleLike(context.Background()); err == nil {
			t.Fatal("ToggleLike() succeeded despite a failing backend")
		}
		if got := ctrl.State(); got != seed {
			t.Errorf("State() after revert = %+v, want %+v", got, seed)
		}
	})

	t.Run("retry after a failure works from the reverted state", func(t *testing.T) {
		fail := true
		backend := &mockBackend{
			toggleLikeFunc: func(context.Context, uuid.UUID) (State, error) {
				if fail {
					return State{}, errors.New("store unavailable")
				}
				return State{Liked: true, TotalLikes: 6}, nil
			},
		}
		ctrl := NewController(backend, storyID, State{TotalLikes: 5}, true)

		if err := ctrl.ToggleLike(context.Background()); err == nil {
			t.Fatal("first ToggleLike() should have failed")
		}
		fail = false
		if err := ctrl.ToggleLike(context.Background()); err != nil {
			t.Fatalf("retry failed: %v", err)
		}
		want := State{Liked: true, TotalLikes: 6}
		if got := ctrl.State(); got != want {
			t.Errorf("State() = %+v, want %+v", got, want)
		}
	})

	t.Run("adopts the server total when a concurrent writer moved it", func(t *testing.T) {
		backend := &mockBackend{
			toggleLikeFunc: func(context.Context, uuid.UUID) (State, error) {
				// Someone else liked while our write was in flight.
				return State{Liked: true, TotalLikes: 8}, nil
			},
		}
		ctrl := NewController(backend, storyID, State{TotalLikes: 5}, true)

		if err := ctrl.ToggleLike(context.Background()); err != nil {
			t.Fatalf("ToggleLike() failed: %v", err)
		}
		if got := ctrl.State().TotalLikes; got != 8 {
			t.Errorf("TotalLikes = %d, want the server's 8", got)
		}
	})

	t.Run("anonymous toggles never reach the backend", func(t *testing.T) {
		backend := &mockBackend{}
		seed := State{TotalLikes: 5}
		ctrl := NewController(backend, storyID, seed, false)

		if err := ctrl.ToggleLike(context.Background()); !errors.Is(err, ErrSignInRequired) {
			t.Errorf("ToggleLike() error = %v, want ErrSignInRequired", err)
		}
		if backend.likeCalls != 0 {
			t.Errorf("backend called %d times for an anonymous user", backend.likeCalls)
		}
		if got := ctrl.State(); got != seed {
			t.Errorf("State() = %+v, want untouched seed %+v", got, seed)
		}
	})
}

func TestController_ToggleBookmark(t *testing.T) {
	storyID := uuid.New()

	t.Run("commits without touching the like total", func(t *testing.T) {
		backend := &mockBackend{
			toggleBookmarkFunc: func(context.Context, uuid.UUID) (State, error) {
				return State{Bookmarked: true, TotalLikes: 3}, nil
			},
		}
		ctrl := NewController(backend, storyID, State{TotalLikes: 3}, true)

		if err := ctrl.ToggleBookmark(context.Background()); err != nil {
			t.Fatalf("ToggleBookmark() failed: %v", err)
		}
		want := State{Bookmarked: true, TotalLikes: 3}
		if got := ctrl.State(); got != want {
			t.Errorf("State() = %+v, want %+v", got, want)
		}
	})

	t.Run("reverts on failure", func(t *testing.T) {
		backend := &mockBackend{
			toggleBookmarkFunc: func(context.Context, uuid.UUID) (State, error) {
				return State{}, errors.New("store unavailable")
			},
		}
		seed := State{Bookmarked: true, TotalLikes: 3}
		ctrl := NewController(backend, storyID, seed, true)

		if err := ctrl.ToggleBookmark(context.Background()); err == nil {
			t.Fatal("ToggleBookmark() succeeded despite a failing backend")
		}
		if got := ctrl.State(); got != seed {
			t.Errorf("State() after revert = %+v, want %+v", got, seed)
		}
	})
}

func TestController_ShareURL(t *testing.T) {
	storyID := uuid.New()
	ctrl := NewController(&mockBackend{}, storyID, State{}, false)

	got := ctrl.ShareURL("https://stories.example.com")
	if !strings.HasPrefix(got, "https://stories.example.com/view/") {
		t.Errorf("ShareURL() = %q, want the /view/ path on the base URL", got)
	}
	if !strings.HasSuffix(got, storyID.String()) {
		t.Errorf("ShareURL() = %q, want it to end with the story id", got)
	}
}
