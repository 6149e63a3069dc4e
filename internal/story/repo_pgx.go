package story

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sundayezeilo/storyboard/internal/errx"
	"github.com/sundayezeilo/storyboard/internal/idgen"
)

type repo struct {
	pool *pgxpool.Pool
	ids  idgen.Generator
}

// NewRepository creates a Postgres-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repo{
		pool: pool,
		ids:  idgen.NewV7(idgen.WithRetries(1)),
	}
}

func (r *repo) CreateStory(ctx context.Context, story Story) (Story, error) {
	const op = "story.repo.CreateStory"

	if story.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return Story{}, errx.E(op, errx.Unavailable, err)
		}
		story.ID = id
	}

	slides, err := json.Marshal(story.Slides)
	if err != nil {
		return Story{}, errx.E(op, errx.Internal, fmt.Errorf("failed to encode slides: %w", err))
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Story{}, errx.E(op, errx.Unavailable, err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		INSERT INTO stories (id, user_id, category, slides)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, category, slides, created_at, updated_at`,
		story.ID, story.UserID, story.Category, slides,
	)

	created, err := scanStory(row)
	if err != nil {
		return Story{}, errx.E(op, errx.Unavailable, err)
	}

	// The like total exists from the moment the story does.
	if _, err := tx.Exec(ctx,
		`INSERT INTO story_aggregates (story_id, total_likes) VALUES ($1, 0)`,
		story.ID,
	); err != nil {
		return Story{}, errx.E(op, errx.Unavailable, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return Story{}, errx.E(op, errx.Unavailable, err)
	}
	return created, nil
}

func (r *repo) GetStory(ctx context.Context, id uuid.UUID) (Story, error) {
	const op = "story.repo.GetStory"

	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, category, slides, created_at, updated_at
		FROM stories
		WHERE id = $1`,
		id,
	)

	story, err := scanStory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Story{}, errx.E(op, errx.NotFound, err)
		}
		return Story{}, errx.E(op, errx.Unavailable, err)
	}
	return story, nil
}

func (r *repo) ListStoriesByCategory(ctx context.Context, category string, limit int) ([]Story, error) {
	const op = "story.repo.ListStoriesByCategory"

	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, category, slides, created_at, updated_at
		FROM stories
		WHERE category = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		category, limit,
	)
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	defer rows.Close()

	var stories []Story
	for rows.Next() {
		story, err := scanStory(rows)
		if err != nil {
			return nil, errx.E(op, errx.Unavailable, err)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}
	return stories, nil
}

func (r *repo) UpdateStory(ctx context.Context, story Story) (Story, error) {
	const op = "story.repo.UpdateStory"

	slides, err := json.Marshal(story.Slides)
	if err != nil {
		return Story{}, errx.E(op, errx.Internal, fmt.Errorf("failed to encode slides: %w", err))
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE stories
		SET category = $2, slides = $3, updated_at = now()
		WHERE id = $1
		RETURNING id, user_id, category, slides, created_at, updated_at`,
		story.ID, story.Category, slides,
	)

	updated, err := scanStory(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Story{}, errx.E(op, errx.NotFound, err)
		}
		return Story{}, errx.E(op, errx.Unavailable, err)
	}
	return updated, nil
}

func (r *repo) DeleteStory(ctx context.Context, id uuid.UUID) error {
	const op = "story.repo.DeleteStory"

	// Engagement records and the aggregate go with the story via FK cascade.
	tag, err := r.pool.Exec(ctx, `DELETE FROM stories WHERE id = $1`, id)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, errors.New("story does not exist"))
	}
	return nil
}

func scanStory(row pgx.Row) (Story, error) {
	var (
		story  Story
		slides []byte
	)
	if err := row.Scan(&story.ID, &story.UserID, &story.Category, &slides, &story.CreatedAt, &story.UpdatedAt); err != nil {
		return Story{}, err
	}
	if err := json.Unmarshal(slides, &story.Slides); err != nil {
		return Story{}, fmt.Errorf("failed to decode slides: %w", err)
	}
	return story, nil
}
