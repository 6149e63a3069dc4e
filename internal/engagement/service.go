package engagement

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/sundayezeilo/storyboard/internal/errx"
)

// lockStripes sizes the keyed mutex table that serializes same-user
// same-story toggles. Unrelated pairs only collide by hash.
const lockStripes = 128

// Service defines the engagement operations exposed to the routing layer.
//
// Reads are cache-aside: the cache tier answers when it can, and a miss reads
// the durable store then populates the cache. Writes are write-through: the
// store commits first (atomically for record plus like total), then the cache
// is updated with the committed values before the call returns, giving the
// writing user read-your-writes on their next request.
type Service interface {
	// Get returns the engagement state for a story. userID may be uuid.Nil
	// for anonymous viewers, whose flags are always false but who still see
	// the story's like total.
	Get(ctx context.Context, storyID, userID uuid.UUID) (State, error)

	// ToggleLike flips the caller's like and adjusts the story's like total
	// by one in the same commit. Fails with an Unauthorized kind for
	// anonymous callers.
	ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (State, error)

	// ToggleBookmark flips the caller's bookmark. Like ToggleLike but never
	// touches the aggregate.
	ToggleBookmark(ctx context.Context, storyID, userID uuid.UUID) (State, error)
}

type service struct {
	store  Store
	cache  Cache
	logger *slog.Logger
	locks  [lockStripes]sync.Mutex
}

// ServiceConfig holds configuration for the engagement service.
type ServiceConfig struct {
	Store  Store
	Cache  Cache
	Logger *slog.Logger
}

// NewService creates a new engagement service instance.
func NewService(cfg ServiceConfig) Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &service{
		store:  cfg.Store,
		cache:  cfg.Cache,
		logger: logger,
	}
}

func (s *service) Get(ctx context.Context, storyID, userID uuid.UUID) (State, error) {
	const op = "engagement.service.Get"

	if storyID == uuid.Nil {
		return State{}, errx.E(op, errx.Invalid, errors.New("story id is required"))
	}

	if !s.cache.Ready() {
		degradedReads.Inc()
	}

	if userID == uuid.Nil {
		return s.getAnonymous(ctx, op, storyID)
	}

	if state, ok := s.cache.GetState(ctx, storyID, userID); ok {
		cacheHits.Inc()
		return state, nil
	}
	cacheMisses.Inc()

	record, err := s.store.GetRecord(ctx, storyID, userID)
	if err != nil {
		return State{}, errx.E(op, errx.KindOf(err), err)
	}
	aggregate, err := s.store.GetAggregate(ctx, storyID)
	if err != nil {
		return State{}, errx.E(op, errx.KindOf(err), err)
	}

	state := State{
		Bookmarked: record.Bookmarked,
		Liked:      record.Liked,
		TotalLikes: aggregate.TotalLikes,
	}
	// A failed populate on the read path is not a desync: the cache simply
	// stays cold and the next miss tries again.
	if err := s.populate(ctx, storyID, userID, state); err != nil {
		s.logger.Debug("skipped cache populate", "story_id", storyID, "error", err)
	}
	return state, nil
}

// getAnonymous serves viewers with no identity: flags are false by
// definition, so only the aggregate key is worth caching.
func (s *service) getAnonymous(ctx context.Context, op string, storyID uuid.UUID) (State, error) {
	if total, ok := s.cache.GetAggregate(ctx, storyID); ok {
		cacheHits.Inc()
		return State{TotalLikes: total}, nil
	}
	cacheMisses.Inc()

	aggregate, err := s.store.GetAggregate(ctx, storyID)
	if err != nil {
		return State{}, errx.E(op, errx.KindOf(err), err)
	}

	if err := s.cache.SetAggregate(ctx, storyID, aggregate.TotalLikes); err != nil {
		s.logger.Debug("skipped cache populate", "story_id", storyID, "error", err)
	}
	return State{TotalLikes: aggregate.TotalLikes}, nil
}

func (s *service) ToggleLike(ctx context.Context, storyID, userID uuid.UUID) (State, error) {
	const op = "engagement.service.ToggleLike"
	return s.toggle(ctx, op, storyID, userID, func(record *Record) int64 {
		record.Liked = !record.Liked
		if record.Liked {
			return 1
		}
		return -1
	})
}

func (s *service) ToggleBookmark(ctx context.Context, storyID, userID uuid.UUID) (State, error) {
	const op = "engagement.service.ToggleBookmark"
	return s.toggle(ctx, op, storyID, userID, func(record *Record) int64 {
		record.Bookmarked = !record.Bookmarked
		return 0
	})
}

// toggle runs the write-through cycle: read the authoritative record, flip it,
// commit record and like-total adjustment atomically, then update the cache
// with the committed values. A commit lost to a concurrent update is retried
// once from the read step before surfacing as a Conflict.
func (s *service) toggle(ctx context.Context, op string, storyID, userID uuid.UUID, flip func(*Record) int64) (State, error) {
	if storyID == uuid.Nil {
		return State{}, errx.E(op, errx.Invalid, errors.New("story id is required"))
	}
	if userID == uuid.Nil {
		return State{}, errx.E(op, errx.Unauthorized, errors.New("sign in required"))
	}

	lock := s.lockFor(storyID, userID)
	lock.Lock()
	defer lock.Unlock()

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		record, err := s.store.GetRecord(ctx, storyID, userID)
		if err != nil {
			return State{}, errx.E(op, errx.KindOf(err), err)
		}

		likeDelta := flip(&record)

		var aggregate Aggregate
		if likeDelta != 0 {
			record, aggregate, err = s.store.ApplyToggle(ctx, record, likeDelta)
		} else {
			record, err = s.store.PutRecord(ctx, record)
			if err == nil {
				aggregate, err = s.store.GetAggregate(ctx, storyID)
			}
		}
		if err != nil {
			if errx.IsKind(err, errx.Conflict) {
				lastErr = err
				continue
			}
			return State{}, errx.E(op, errx.KindOf(err), err)
		}

		state := State{
			Bookmarked: record.Bookmarked,
			Liked:      record.Liked,
			TotalLikes: aggregate.TotalLikes,
		}
		// The commit already landed, so a failed cache update here means
		// the tier may serve a stale entry until its TTL expires.
		if err := s.populate(ctx, storyID, userID, state); err != nil {
			cacheDesyncs.Inc()
			s.logger.Warn("cache desync observed",
				"story_id", storyID,
				"user_id", userID,
				"error", err,
			)
		}
		return state, nil
	}

	return State{}, errx.E(op, errx.Conflict, lastErr)
}

// populate writes both cache entries for a committed state. Best-effort: the
// durable store already holds the truth, so callers decide how loudly a
// failure is reported.
func (s *service) populate(ctx context.Context, storyID, userID uuid.UUID, state State) error {
	stateErr := s.cache.SetState(ctx, storyID, userID, state)
	aggErr := s.cache.SetAggregate(ctx, storyID, state.TotalLikes)
	return errors.Join(stateErr, aggErr)
}

func (s *service) lockFor(storyID, userID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(storyID[:])
	h.Write(userID[:])
	return &s.locks[h.Sum32()%lockStripes]
}
