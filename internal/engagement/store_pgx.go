package engagement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sundayezeilo/storyboard/internal/errx"
)

type pgxStore struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewStore creates a Postgres-backed Store. Every call is bounded by timeout,
// so a hung database surfaces as an Unavailable error within the bound
// instead of holding the request open.
func NewStore(pool *pgxpool.Pool, timeout time.Duration) Store {
	return &pgxStore{pool: pool, timeout: timeout}
}

func (s *pgxStore) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *pgxStore) GetRecord(ctx context.Context, storyID, userID uuid.UUID) (Record, error) {
	const op = "engagement.store.GetRecord"

	ctx, cancel := s.bound(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		SELECT story_id, user_id, bookmarked, liked, updated_at
		FROM engagement_records
		WHERE story_id = $1 AND user_id = $2`,
		storyID, userID,
	)

	var rec Record
	err := row.Scan(&rec.StoryID, &rec.UserID, &rec.Bookmarked, &rec.Liked, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// No row means no engagement yet; both flags default to false.
		return Record{StoryID: storyID, UserID: userID}, nil
	}
	if err != nil {
		return Record{}, mapStoreError(op, err)
	}
	return rec, nil
}

func (s *pgxStore) PutRecord(ctx context.Context, record Record) (Record, error) {
	const op = "engagement.store.PutRecord"

	ctx, cancel := s.bound(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, upsertRecordSQL,
		record.StoryID, record.UserID, record.Bookmarked, record.Liked,
	)

	var rec Record
	if err := row.Scan(&rec.StoryID, &rec.UserID, &rec.Bookmarked, &rec.Liked, &rec.UpdatedAt); err != nil {
		return Record{}, mapStoreError(op, err)
	}
	return rec, nil
}

func (s *pgxStore) ApplyToggle(ctx context.Context, record Record, likeDelta int64) (Record, Aggregate, error) {
	const op = "engagement.store.ApplyToggle"

	ctx, cancel := s.bound(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Record{}, Aggregate{}, mapStoreError(op, err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, upsertRecordSQL,
		record.StoryID, record.UserID, record.Bookmarked, record.Liked,
	)

	var rec Record
	if err := row.Scan(&rec.StoryID, &rec.UserID, &rec.Bookmarked, &rec.Liked, &rec.UpdatedAt); err != nil {
		return Record{}, Aggregate{}, mapStoreError(op, err)
	}

	agg := Aggregate{StoryID: record.StoryID}
	if likeDelta != 0 {
		// In-place increment commutes under concurrent writers; the floor
		// guards the non-negative invariant against pre-preload drift.
		row := tx.QueryRow(ctx, `
			UPDATE story_aggregates
			SET total_likes = GREATEST(total_likes + $2, 0), updated_at = now()
			WHERE story_id = $1
			RETURNING total_likes`,
			record.StoryID, likeDelta,
		)
		if err := row.Scan(&agg.TotalLikes); err != nil {
			return Record{}, Aggregate{}, mapStoreError(op, err)
		}
	} else {
		row := tx.QueryRow(ctx,
			`SELECT total_likes FROM story_aggregates WHERE story_id = $1`,
			record.StoryID,
		)
		if err := row.Scan(&agg.TotalLikes); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return Record{}, Aggregate{}, mapStoreError(op, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Record{}, Aggregate{}, mapStoreError(op, err)
	}
	return rec, agg, nil
}

func (s *pgxStore) GetAggregate(ctx context.Context, storyID uuid.UUID) (Aggregate, error) {
	const op = "engagement.store.GetAggregate"

	ctx, cancel := s.bound(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT story_id, total_likes FROM story_aggregates WHERE story_id = $1`,
		storyID,
	)

	var agg Aggregate
	err := row.Scan(&agg.StoryID, &agg.TotalLikes)
	if errors.Is(err, pgx.ErrNoRows) {
		return Aggregate{StoryID: storyID}, nil
	}
	if err != nil {
		return Aggregate{}, mapStoreError(op, err)
	}
	return agg, nil
}

func (s *pgxStore) PutAggregate(ctx context.Context, aggregate Aggregate) error {
	const op = "engagement.store.PutAggregate"

	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO story_aggregates (story_id, total_likes)
		VALUES ($1, $2)
		ON CONFLICT (story_id)
		DO UPDATE SET total_likes = EXCLUDED.total_likes, updated_at = now()`,
		aggregate.StoryID, aggregate.TotalLikes,
	)
	if err != nil {
		return mapStoreError(op, err)
	}
	return nil
}

func (s *pgxStore) ListAggregates(ctx context.Context) ([]Aggregate, error) {
	const op = "engagement.store.ListAggregates"

	ctx, cancel := s.bound(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT story_id, total_likes FROM story_aggregates`,
	)
	if err != nil {
		return nil, mapStoreError(op, err)
	}
	defer rows.Close()

	var aggs []Aggregate
	for rows.Next() {
		var agg Aggregate
		if err := rows.Scan(&agg.StoryID, &agg.TotalLikes); err != nil {
			return nil, mapStoreError(op, err)
		}
		aggs = append(aggs, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(op, err)
	}
	return aggs, nil
}

func (s *pgxStore) CountLikes(ctx context.Context, storyID uuid.UUID) (int64, error) {
	const op = "engagement.store.CountLikes"

	ctx, cancel := s.bound(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM engagement_records WHERE story_id = $1 AND liked`,
		storyID,
	)

	var n int64
	if err := row.Scan(&n); err != nil {
		return 0, mapStoreError(op, err)
	}
	return n, nil
}

const upsertRecordSQL = `
	INSERT INTO engagement_records (story_id, user_id, bookmarked, liked)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (story_id, user_id)
	DO UPDATE SET bookmarked = EXCLUDED.bookmarked, liked = EXCLUDED.liked, updated_at = now()
	RETURNING story_id, user_id, bookmarked, liked, updated_at`

// mapStoreError translates pgx errors into the service error taxonomy:
// serialization failures and constraint violations are retryable conflicts,
// a broken foreign key means the referenced story is gone, and everything
// else (timeouts included) means the durable store is unreachable or broken.
func mapStoreError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		// Absent engagement rows are handled before mapping, so no rows
		// here means the story's aggregate row does not exist.
		return errx.E(op, errx.NotFound, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return errx.E(op, errx.Conflict, err)
		case "23505", "23514": // unique_violation, check_violation
			return errx.E(op, errx.Conflict, err)
		case "23503": // foreign_key_violation: story or user no longer exists
			return errx.E(op, errx.NotFound, err)
		}
	}
	return errx.E(op, errx.Unavailable, err)
}
