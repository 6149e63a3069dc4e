package engagement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sundayezeilo/storyboard/internal/errx"
)

func TestMapStoreError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errx.Kind
	}{
		{"serialization failure retries as conflict", &pgconn.PgError{Code: "40001"}, errx.Conflict},
		{"deadlock retries as conflict", &pgconn.PgError{Code: "40P01"}, errx.Conflict},
		{"unique violation is a conflict", &pgconn.PgError{Code: "23505"}, errx.Conflict},
		{"check violation is a conflict", &pgconn.PgError{Code: "23514"}, errx.Conflict},
		{"broken foreign key means the story is gone", &pgconn.PgError{Code: "23503"}, errx.NotFound},
		{"missing aggregate row is not found", pgx.ErrNoRows, errx.NotFound},
		{"expired deadline means the store is unavailable", context.DeadlineExceeded, errx.Unavailable},
		{"anything else is unavailable", errors.New("connection refused"), errx.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapStoreError("engagement.store.GetAggregate", tt.err)
			if got := errx.KindOf(err); got != tt.want {
				t.Errorf("kind = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStoreCallDeadline(t *testing.T) {
	t.Run("calls carry the configured bound", func(t *testing.T) {
		s := &pgxStore{timeout: 250 * time.Millisecond}

		ctx, cancel := s.bound(context.Background())
		defer cancel()

		deadline, ok := ctx.Deadline()
		if !ok {
			t.Fatal("expected a deadline on the call context")
		}
		if remaining := time.Until(deadline); remaining > 250*time.Millisecond {
			t.Errorf("deadline %v away, want at most 250ms", remaining)
		}
	})

	t.Run("zero timeout leaves the caller's context alone", func(t *testing.T) {
		s := &pgxStore{}
		parent := context.Background()

		ctx, cancel := s.bound(parent)
		defer cancel()

		if _, ok := ctx.Deadline(); ok {
			t.Error("expected no deadline without a configured timeout")
		}
		if ctx != parent {
			t.Error("expected the parent context unchanged")
		}
	})
}
