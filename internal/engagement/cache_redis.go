package engagement

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// entryTTL bounds staleness for entries written before a cache outage:
// a write that lands while the tier is down cannot refresh them, so they
// expire instead of serving stale values forever after recovery.
const entryTTL = 15 * time.Minute

// redisCmdable abstracts the minimal Redis surface the cache needs.
// *redis.Client satisfies it; unit tests substitute a fake.
type redisCmdable interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisCache is a Cache backed by a shared Redis tier.
//
// Degraded mode is a first-class state rather than an exception path: after
// any transport error every call short-circuits (reads miss, writes fail fast)
// until a background probe reaches the tier again.
type RedisCache struct {
	client  redisCmdable
	timeout time.Duration
	logger  *slog.Logger

	down atomic.Bool
}

// RedisCacheConfig holds configuration for the redis cache adapter.
type RedisCacheConfig struct {
	Client  redisCmdable
	Timeout time.Duration // per-call budget; a timed-out call counts as a miss
	Logger  *slog.Logger
}

// NewRedisCache creates a RedisCache. The adapter starts in the reachable
// state; the first failing call flips it to degraded.
func NewRedisCache(cfg RedisCacheConfig) *RedisCache {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 250 * time.Millisecond
	}
	return &RedisCache{
		client:  cfg.Client,
		timeout: timeout,
		logger:  logger,
	}
}

// Ready reports whether the tier is currently reachable.
func (c *RedisCache) Ready() bool {
	return !c.down.Load()
}

// GetState implements Cache.
func (c *RedisCache) GetState(ctx context.Context, storyID, userID uuid.UUID) (State, bool) {
	raw, ok := c.get(ctx, stateKey(storyID, userID))
	if !ok {
		return State{}, false
	}

	var state State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		// Corrupt entry; treat as a miss so a store read repairs it.
		c.logger.Warn("discarding unreadable cache entry", "key", stateKey(storyID, userID), "error", err)
		return State{}, false
	}
	return state, true
}

// SetState implements Cache.
func (c *RedisCache) SetState(ctx context.Context, storyID, userID uuid.UUID, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	return c.set(ctx, stateKey(storyID, userID), data)
}

// GetAggregate implements Cache.
func (c *RedisCache) GetAggregate(ctx context.Context, storyID uuid.UUID) (int64, bool) {
	raw, ok := c.get(ctx, aggregateKey(storyID))
	if !ok {
		return 0, false
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		c.logger.Warn("discarding unreadable cache entry", "key", aggregateKey(storyID), "error", err)
		return 0, false
	}
	return n, true
}

// SetAggregate implements Cache.
func (c *RedisCache) SetAggregate(ctx context.Context, storyID uuid.UUID, totalLikes int64) error {
	return c.set(ctx, aggregateKey(storyID), totalLikes)
}

// StartProbe pings the tier on the given interval while it is degraded and
// restores it on the first successful ping. Returns when ctx is cancelled.
func (c *RedisCache) StartProbe(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if c.Ready() {
				continue
			}
			callCtx, cancel := context.WithTimeout(ctx, c.timeout)
			err := c.client.Ping(callCtx).Err()
			cancel()
			if err == nil {
				c.down.Store(false)
				c.logger.Info("cache tier reachable again")
			}
		}
	}
}

func (c *RedisCache) get(ctx context.Context, key string) (string, bool) {
	if c.down.Load() {
		return "", false
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.client.Get(callCtx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.markDown(err)
		return "", false
	}
	return raw, true
}

func (c *RedisCache) set(ctx context.Context, key string, value any) error {
	if c.down.Load() {
		return errors.New("cache tier degraded")
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.client.Set(callCtx, key, value, entryTTL).Err(); err != nil {
		c.markDown(err)
		return err
	}
	return nil
}

func (c *RedisCache) markDown(err error) {
	if c.down.CompareAndSwap(false, true) {
		c.logger.Warn("cache tier unreachable, degrading to store reads", "error", err)
	}
}
