package engagement

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Cache is the accelerator tier in front of the durable store. It holds no
// data the store doesn't also hold; losing its contents costs latency, never
// correctness. Lookups on an unreachable tier report a miss rather than an
// error, and writes report an error so callers can log the desync.
type Cache interface {
	// GetState returns a cached per-user engagement view. The second return
	// value is false on a miss, including whenever the tier is degraded.
	GetState(ctx context.Context, storyID, userID uuid.UUID) (State, bool)
	SetState(ctx context.Context, storyID, userID uuid.UUID, state State) error

	// GetAggregate and SetAggregate cover the per-story like total, which is
	// also consulted for anonymous viewers with no per-user entry.
	GetAggregate(ctx context.Context, storyID uuid.UUID) (int64, bool)
	SetAggregate(ctx context.Context, storyID uuid.UUID, totalLikes int64) error

	// Ready reports whether the tier is currently reachable. A degraded
	// tier short-circuits every call until a probe restores it.
	Ready() bool
}

func stateKey(storyID, userID uuid.UUID) string {
	return fmt.Sprintf("engagement:%s:%s", storyID, userID)
}

func aggregateKey(storyID uuid.UUID) string {
	return fmt.Sprintf("engagement:%s:likes", storyID)
}
