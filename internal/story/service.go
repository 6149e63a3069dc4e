package story

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sundayezeilo/storyboard/internal/errx"
)

const (
	MinSlides        = 3
	MaxSlides        = 6
	MaxHeadingLength = 120
	MaxCategoryLen   = 64
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// SaveStoryRequest represents the parameters for creating or updating a story.
type SaveStoryRequest struct {
	Category string
	Slides   []Slide
}

// Service defines the business logic operations for stories.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, req SaveStoryRequest) (Story, error)
	Get(ctx context.Context, id uuid.UUID) (Story, error)
	ListByCategory(ctx context.Context, category string, limit int) ([]Story, error)
	Update(ctx context.Context, id, userID uuid.UUID, req SaveStoryRequest) (Story, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService creates a new story service instance.
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, req SaveStoryRequest) (Story, error) {
	const op = "story.service.Create"

	if userID == uuid.Nil {
		return Story{}, errx.E(op, errx.Unauthorized, errors.New("sign in required"))
	}
	if err := validateSaveRequest(req); err != nil {
		return Story{}, errx.E(op, errx.Invalid, err)
	}

	created, err := s.repo.CreateStory(ctx, Story{
		UserID:   userID,
		Category: req.Category,
		Slides:   req.Slides,
	})
	if err != nil {
		return Story{}, errx.E(op, errx.KindOf(err), err)
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (Story, error) {
	const op = "story.service.Get"

	if id == uuid.Nil {
		return Story{}, errx.E(op, errx.Invalid, errors.New("story id is required"))
	}

	story, err := s.repo.GetStory(ctx, id)
	if err != nil {
		return Story{}, errx.E(op, errx.KindOf(err), err)
	}
	return story, nil
}

func (s *service) ListByCategory(ctx context.Context, category string, limit int) ([]Story, error) {
	const op = "story.service.ListByCategory"

	if category == "" {
		return nil, errx.E(op, errx.Invalid, errors.New("category is required"))
	}
	if limit <= 0 || limit > MaxListLimit {
		limit = DefaultListLimit
	}

	stories, err := s.repo.ListStoriesByCategory(ctx, category, limit)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return stories, nil
}

func (s *service) Update(ctx context.Context, id, userID uuid.UUID, req SaveStoryRequest) (Story, error) {
	const op = "story.service.Update"

	if userID == uuid.Nil {
		return Story{}, errx.E(op, errx.Unauthorized, errors.New("sign in required"))
	}
	if err := validateSaveRequest(req); err != nil {
		return Story{}, errx.E(op, errx.Invalid, err)
	}

	existing, err := s.repo.GetStory(ctx, id)
	if err != nil {
		return Story{}, errx.E(op, errx.KindOf(err), err)
	}
	if existing.UserID != userID {
		return Story{}, errx.E(op, errx.Forbidden, errors.New("story belongs to another user"))
	}

	updated, err := s.repo.UpdateStory(ctx, Story{
		ID:       id,
		Category: req.Category,
		Slides:   req.Slides,
	})
	if err != nil {
		return Story{}, errx.E(op, errx.KindOf(err), err)
	}
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	const op = "story.service.Delete"

	if userID == uuid.Nil {
		return errx.E(op, errx.Unauthorized, errors.New("sign in required"))
	}

	existing, err := s.repo.GetStory(ctx, id)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	if existing.UserID != userID {
		return errx.E(op, errx.Forbidden, errors.New("story belongs to another user"))
	}

	if err := s.repo.DeleteStory(ctx, id); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

func validateSaveRequest(req SaveStoryRequest) error {
	if req.Category == "" {
		return errors.New("category cannot be empty")
	}
	if len(req.Category) > MaxCategoryLen {
		return errors.New("category too long (maximum 64 characters)")
	}
	if len(req.Slides) < MinSlides || len(req.Slides) > MaxSlides {
		return fmt.Errorf("a story needs between %d and %d slides", MinSlides, MaxSlides)
	}
	for i, slide := range req.Slides {
		if slide.Heading == "" {
			return fmt.Errorf("slide %d is missing a heading", i+1)
		}
		if len(slide.Heading) > MaxHeadingLength {
			return fmt.Errorf("slide %d heading too long (maximum %d characters)", i+1, MaxHeadingLength)
		}
		if slide.ImageURL == "" {
			return fmt.Errorf("slide %d is missing an image", i+1)
		}
	}
	return nil
}
