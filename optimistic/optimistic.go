// Package optimistic implements the client-side engagement controller used by
// story presentation surfaces. It applies a user's like or bookmark flip to
// local state immediately, invokes the backend write, and reverts the flip
// exactly if the write fails, so the user can simply retry by tapping again.
//
// The transition logic is an explicit reducer over a two-phase lifecycle
// (apply, then commit or revert) rather than ad hoc boolean flips, which keeps
// the failure path exhaustively testable.
package optimistic

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrSignInRequired is returned when an anonymous user attempts a toggle.
// The surrounding UI should prompt for sign-in; no state changes.
var ErrSignInRequired = errors.New("sign in required")

// State is the engagement view a presentation surface renders for one story.
type State struct {
	Bookmarked bool
	Liked      bool
	TotalLikes int64
}

// Backend is the server-side engagement write surface the controller drives.
// Both calls return the committed post-operation state.
type Backend interface {
	ToggleLike(ctx context.Context, storyID uuid.UUID) (State, error)
	ToggleBookmark(ctx context.Context, storyID uuid.UUID) (State, error)
}

// Action identifies a user toggle.
type Action int

const (
	ActionLike Action = iota
	ActionBookmark
)

// Apply returns the state after optimistically applying an action.
// Pure function; the controller uses it for both the optimistic flip and,
// via the saved previous state, the exact revert.
func Apply(s State, action Action) State {
	switch action {
	case ActionLike:
		s.Liked = !s.Liked
		if s.Liked {
			s.TotalLikes++
		} else {
			s.TotalLikes--
		}
	case ActionBookmark:
		s.Bookmarked = !s.Bookmarked
	}
	return s
}

// Controller holds the optimistic engagement state for one displayed story.
// One controller per rendered story; safe for concurrent use.
type Controller struct {
	backend       Backend
	storyID       uuid.UUID
	authenticated bool

	mu    sync.Mutex
	state State
}

// NewController creates a controller seeded with the state from an initial
// engagement read. authenticated must be false for anonymous viewers, whose
// toggles raise ErrSignInRequired instead of reaching the backend.
func NewController(backend Backend, storyID uuid.UUID, seed State, authenticated bool) *Controller {
	return &Controller{
		backend:       backend,
		storyID:       storyID,
		authenticated: authenticated,
		state:         seed,
	}
}

// State returns the current view state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// ToggleLike flips the like flag and adjusts the like total locally, then
// performs the backend write. On failure the local state reverts exactly and
// the error is returned; the user may retry by toggling again.
func (c *Controller) ToggleLike(ctx context.Context) error {
	return c.toggle(ctx, ActionLike, c.backend.ToggleLike)
}

// ToggleBookmark flips the bookmark flag locally, then performs the backend
// write, reverting on failure.
func (c *Controller) ToggleBookmark(ctx context.Context) error {
	return c.toggle(ctx, ActionBookmark, c.backend.ToggleBookmark)
}

func (c *Controller) toggle(ctx context.Context, action Action, call func(context.Context, uuid.UUID) (State, error)) error {
	if !c.authenticated {
		return ErrSignInRequired
	}

	c.mu.Lock()
	previous := c.state
	c.state = Apply(previous, action)
	c.mu.Unlock()

	committed, err := call(ctx, c.storyID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = previous
		return err
	}
	// Adopt the committed state: it matches the optimistic flip unless a
	// concurrent writer moved the like total, in which case the server wins.
	c.state = committed
	return nil
}

// ShareURL returns the public view link for the story. Pure string
// construction with no side effects.
func (c *Controller) ShareURL(baseURL string) string {
	return fmt.Sprintf("%s/view/%s", baseURL, c.storyID)
}
