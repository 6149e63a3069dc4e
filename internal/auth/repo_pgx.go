package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sundayezeilo/storyboard/internal/errx"
	"github.com/sundayezeilo/storyboard/internal/idgen"
)

type repo struct {
	pool *pgxpool.Pool
	ids  idgen.Generator
}

// NewRepository creates a Postgres-backed UserRepository.
func NewRepository(pool *pgxpool.Pool) UserRepository {
	return &repo{
		pool: pool,
		ids:  idgen.NewV7(idgen.WithRetries(1)),
	}
}

func (r *repo) CreateUser(ctx context.Context, user User) (User, error) {
	const op = "auth.repo.CreateUser"

	if user.ID == uuid.Nil {
		id, err := r.ids.Generate()
		if err != nil {
			return User{}, errx.E(op, errx.Unavailable, err)
		}
		user.ID = id
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, username, password_hash, created_at`,
		user.ID, user.Username, user.PasswordHash,
	)

	created, err := scanUser(row)
	if err != nil {
		if isUsernameUniqueViolation(err) {
			return User{}, errx.E(op, errx.Conflict, err)
		}
		return User{}, errx.E(op, errx.Unavailable, err)
	}
	return created, nil
}

func (r *repo) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const op = "auth.repo.GetUserByUsername"

	row := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1`,
		username,
	)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, errx.E(op, errx.NotFound, err)
		}
		return User{}, errx.E(op, errx.Unavailable, err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt); err != nil {
		return User{}, err
	}
	return u, nil
}

func isUsernameUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505"
}
