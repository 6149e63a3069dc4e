package engagement

import (
	"time"

	"github.com/google/uuid"
)

// Record represents one user's relationship to one story. At most one record
// exists per (story, user) pair; a missing record is equivalent to one with
// both flags false. Records are created lazily on first toggle and updated in
// place thereafter, never deleted on untoggle.
type Record struct {
	StoryID    uuid.UUID
	UserID     uuid.UUID
	Bookmarked bool
	Liked      bool
	UpdatedAt  time.Time
}

// Aggregate holds story-wide derived counters. TotalLikes equals the count of
// records for the story with Liked set; it is maintained incrementally on each
// toggle and recomputed from the records during preload to heal drift.
type Aggregate struct {
	StoryID    uuid.UUID
	TotalLikes int64
}

// State is the engagement view returned by every service operation:
// the requesting user's flags plus the story's current like total.
type State struct {
	Bookmarked bool  `json:"bookmarked"`
	Liked      bool  `json:"liked"`
	TotalLikes int64 `json:"totalLikes"`
}
