package redis

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alem-hub/taskmaster/internal/domain/shared"
	"github.com/alem-hub/taskmaster/internal/domain/taskmaster"
	"github.com/alem-hub/taskmaster/pkg/circuitbreaker"
	"github.com/alem-hub/taskmaster/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ROSTER CACHE
// ══════════════════════════════════════════════════════════════════════════════

// SnapshotCache is the cache side of CachedRepository.
type SnapshotCache interface {
	// GetRoster returns the cached snapshot or ErrCacheMiss.
	GetRoster(ctx context.Context) (*taskmaster.Snapshot, error)

	// SetRoster caches snap.
	SetRoster(ctx context.Context, snap *taskmaster.Snapshot) error

	// InvalidateRoster drops the cached snapshot.
	InvalidateRoster(ctx context.Context) error
}

const (
	// SnapshotKey holds the cached roster.
	SnapshotKey = "taskmaster:roster:snapshot"

	// DefaultSnapshotTTL bounds how long a cached roster may outlive a write
	// made by another instance that could not invalidate it.
	DefaultSnapshotTTL = 10 * time.Minute
)

// RosterCache stores the whole roster as one JSON value under SnapshotKey.
type RosterCache struct {
	cache *Cache
	ttl   time.Duration
}

var _ SnapshotCache = (*RosterCache)(nil)

// NewRosterCache creates a RosterCache. A zero ttl means DefaultSnapshotTTL.
func NewRosterCache(cache *Cache, ttl time.Duration) *RosterCache {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	return &RosterCache{cache: cache, ttl: ttl}
}

func (c *RosterCache) GetRoster(ctx context.Context) (*taskmaster.Snapshot, error) {
	return getJSON[taskmaster.Snapshot](ctx, c.cache, SnapshotKey)
}

func (c *RosterCache) SetRoster(ctx context.Context, snap *taskmaster.Snapshot) error {
	return setJSON(ctx, c.cache, SnapshotKey, snap, c.ttl)
}

func (c *RosterCache) InvalidateRoster(ctx context.Context) error {
	return c.cache.client.Del(ctx, SnapshotKey).Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// CACHED REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// CachedRepository puts a SnapshotCache in front of a taskmaster.Repository.
//
// The store stays the source of truth: Save succeeds or fails with the store,
// and cache failures are logged and swallowed. While the breaker is open the
// cache is bypassed entirely.
type CachedRepository struct {
	inner   taskmaster.Repository
	cache   SnapshotCache
	breaker *circuitbreaker.CircuitBreaker
	retrier *retry.Retrier
	logger  *slog.Logger
}

var _ taskmaster.Repository = (*CachedRepository)(nil)

// NewCachedRepository wraps inner with cache.
func NewCachedRepository(inner taskmaster.Repository, cache SnapshotCache, logger *slog.Logger) *CachedRepository {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "roster_cache")

	onChange := func(name string, from, to circuitbreaker.State) {
		logger.Warn("cache breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &CachedRepository{
		inner: inner,
		cache: cache,
		breaker: circuitbreaker.CacheBreaker(onChange,
			circuitbreaker.WithIsFailure(func(err error) bool { return !errors.Is(err, ErrCacheMiss) }),
		),
		retrier: retry.CacheRetrier(
			retry.WithRetryIf(func(err error) bool { return !errors.Is(err, ErrCacheMiss) }),
		),
		logger: logger,
	}
}

// Load returns the cached roster, or loads it from the store and caches it.
func (r *CachedRepository) Load(ctx context.Context) (*taskmaster.Snapshot, error) {
	var cached *taskmaster.Snapshot
	err := r.call(ctx, func(ctx context.Context) error {
		var err error
		cached, err = r.cache.GetRoster(ctx)
		return err
	})
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrCacheMiss) {
		r.logger.Warn("cache read failed, falling back to store", "error", err)
	}

	snap, err := r.inner.Load(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrRosterNotFound) {
			r.invalidate(ctx)
		}
		return nil, err
	}

	r.store(ctx, snap)
	return snap, nil
}

// Save writes src to the store, then refreshes the cache. If the store write
// fails the cached copy is dropped, since it may no longer match the store.
func (r *CachedRepository) Save(ctx context.Context, src taskmaster.ReadOnlyTaskmaster) error {
	snap := taskmaster.SnapshotOf(src)

	if err := r.inner.Save(ctx, snap); err != nil {
		r.invalidate(ctx)
		return err
	}

	r.store(ctx, snap)
	return nil
}

// Breaker exposes the cache breaker for health reporting.
func (r *CachedRepository) Breaker() *circuitbreaker.CircuitBreaker {
	return r.breaker
}

func (r *CachedRepository) store(ctx context.Context, snap *taskmaster.Snapshot) {
	err := r.call(ctx, func(ctx context.Context) error {
		return r.cache.SetRoster(ctx, snap)
	})
	if err != nil {
		r.logger.Warn("cache write failed", "error", err)
		r.invalidate(ctx)
	}
}

func (r *CachedRepository) invalidate(ctx context.Context) {
	err := r.call(ctx, r.cache.InvalidateRoster)
	if err != nil {
		r.logger.Warn("cache invalidation failed", "error", err)
	}
}

func (r *CachedRepository) call(ctx context.Context, fn func(context.Context) error) error {
	return r.breaker.Execute(ctx, func(ctx context.Context) error {
		return r.retrier.Do(ctx, fn)
	})
}
