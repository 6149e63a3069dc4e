package engagement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Preloader warms the cache tier at startup so steady-state traffic is
// cache-hot. It walks every story aggregate, recomputes the like total from
// the authoritative records (healing drift left by a crash between a record
// write and its counter adjustment), writes the corrected value back to the
// store, and populates the cache aggregate key.
//
// Per-user records are never preloaded: their cardinality is stories times
// users, while aggregates are bounded by story count. Reads for a story that
// preload hasn't reached yet simply fall through to the store.
type Preloader struct {
	store  Store
	cache  Cache
	logger *slog.Logger
}

// NewPreloader creates a Preloader.
func NewPreloader(store Store, cache Cache, logger *slog.Logger) *Preloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Preloader{store: store, cache: cache, logger: logger}
}

// Run executes one full preload pass. It returns an error when the cache
// tier is unreachable or the store walk fails; callers retry on a schedule
// rather than treating that as fatal.
func (p *Preloader) Run(ctx context.Context) error {
	if !p.cache.Ready() {
		return errors.New("cache tier not reachable")
	}

	aggregates, err := p.store.ListAggregates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list aggregates: %w", err)
	}

	var healed, cached int
	for _, aggregate := range aggregates {
		actual, err := p.store.CountLikes(ctx, aggregate.StoryID)
		if err != nil {
			return fmt.Errorf("failed to count likes for story %s: %w", aggregate.StoryID, err)
		}

		if actual != aggregate.TotalLikes {
			corrected := Aggregate{StoryID: aggregate.StoryID, TotalLikes: actual}
			if err := p.store.PutAggregate(ctx, corrected); err != nil {
				return fmt.Errorf("failed to heal aggregate for story %s: %w", aggregate.StoryID, err)
			}
			p.logger.Warn("healed stale like total",
				"story_id", aggregate.StoryID,
				"stored", aggregate.TotalLikes,
				"actual", actual,
			)
			aggregate.TotalLikes = actual
			healed++
		}

		if err := p.cache.SetAggregate(ctx, aggregate.StoryID, aggregate.TotalLikes); err != nil {
			return fmt.Errorf("failed to populate cache for story %s: %w", aggregate.StoryID, err)
		}
		cached++
	}

	p.logger.Info("cache preload complete", "stories", cached, "healed", healed)
	return nil
}

// Start runs preload passes on the given interval until one succeeds or ctx
// is cancelled. The first attempt runs immediately. Traffic is served while
// this loop runs; reads fall through to the store until their story is warm.
func (p *Preloader) Start(ctx context.Context, retryInterval time.Duration) {
	for {
		err := p.Run(ctx)
		if err == nil {
			return
		}
		p.logger.Warn("cache preload failed, will retry",
			"error", err,
			"retry_in", retryInterval,
		)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryInterval):
		}
	}
}
