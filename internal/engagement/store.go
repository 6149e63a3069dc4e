package engagement

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the durable, authoritative persistence operations for
// engagement state. The store is the serialization point for all writes;
// the cache tier is a derived view on top of it.
//
// Absence semantics: GetRecord returns a zero-flag record (not an error) when
// no row exists, and GetAggregate returns a zero count for unknown stories.
type Store interface {
	GetRecord(ctx context.Context, storyID, userID uuid.UUID) (Record, error)

	// PutRecord upserts a record without touching the aggregate.
	// Used for bookmark toggles, which never change the like total.
	PutRecord(ctx context.Context, record Record) (Record, error)

	// ApplyToggle upserts a record and adjusts the story's like total by
	// likeDelta in a single atomic commit. Either both changes land or
	// neither does. The adjustment is a commuting in-place increment, so
	// concurrent likes by different users never lose updates.
	// Returns the record and the post-adjustment aggregate.
	ApplyToggle(ctx context.Context, record Record, likeDelta int64) (Record, Aggregate, error)

	GetAggregate(ctx context.Context, storyID uuid.UUID) (Aggregate, error)

	// PutAggregate overwrites a story's stored like total. Used by preload
	// to write back recomputed counts.
	PutAggregate(ctx context.Context, aggregate Aggregate) error

	// ListAggregates returns all story aggregates. Bounded by story count,
	// unlike the (story x user) record space, so preload can walk it.
	ListAggregates(ctx context.Context) ([]Aggregate, error)

	// CountLikes recomputes a story's like total from the authoritative
	// records with Liked set.
	CountLikes(ctx context.Context, storyID uuid.UUID) (int64, error)
}
