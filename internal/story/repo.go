package story

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the persistence operations for stories.
// Creating a story also creates its engagement aggregate (starting at zero
// likes) in the same commit; deleting a story cascades to its engagement
// records and aggregate.
type Repository interface {
	CreateStory(ctx context.Context, story Story) (Story, error)
	GetStory(ctx context.Context, id uuid.UUID) (Story, error)
	ListStoriesByCategory(ctx context.Context, category string, limit int) ([]Story, error)
	UpdateStory(ctx context.Context, story Story) (Story, error)
	DeleteStory(ctx context.Context, id uuid.UUID) error
}
