package story

import (
	"time"

	"github.com/google/uuid"
)

// Story is a short-lived sequence of slides posted by a user.
type Story struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Category  string
	Slides    []Slide
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slide is a single frame of a story.
type Slide struct {
	Heading     string `json:"heading"`
	Description string `json:"description"`
	ImageURL    string `json:"imageUrl"`
}
