package profilecache

import (
	"context"
	"sync"
	"time"

	"github.com/monetix/monetix-go/internal/pkg/logger"
	"github.com/monetix/monetix-go/models"
)

// DefaultTTL bounds how stale a served profile may be.
const DefaultTTL = 300 * time.Second

// Fetcher loads a profile from the backend on cache miss.
type Fetcher interface {
	GetProfile(ctx context.Context, profileID string) (*models.Profile, error)
}

// Entry is the cached profile together with the instant it was fetched.
type Entry struct {
	Profile   *models.Profile `json:"profile"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// EntryStore holds the single cache entry. The in-memory store is the
// default; a redis-backed store lets server-side deployments share one cache
// across processes.
type EntryStore interface {
	Load(ctx context.Context) (*Entry, error)
	Save(ctx context.Context, entry *Entry, ttl time.Duration) error
	Drop(ctx context.Context) error
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithEntryStore swaps the backing entry store.
func WithEntryStore(store EntryStore) Option {
	return func(c *Cache) { c.store = store }
}

// WithClock injects a clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) { c.clock = clock }
}

// Cache memoizes the entitlement profile of the active user. A single mutex
// serializes all access to the entry: concurrent stale reads coalesce behind
// the lock, so at most one fetch is in flight and the last completed
// response wins.
type Cache struct {
	mu      sync.Mutex
	fetcher Fetcher
	store   EntryStore
	ttl     time.Duration
	clock   func() time.Time
}

// New builds a cache over the given fetcher.
func New(fetcher Fetcher, opts ...Option) *Cache {
	c := &Cache{
		fetcher: fetcher,
		store:   NewMemoryStore(),
		ttl:     DefaultTTL,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetProfile returns the cached profile while fresh, otherwise fetches and
// replaces the entry. A failed fetch is returned to the caller and leaves
// any existing (possibly stale) entry untouched, so a transient network blip
// never downgrades the cached view.
func (c *Cache) GetProfile(ctx context.Context, profileID string, forceRefresh bool) (*models.Profile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !forceRefresh {
		entry, err := c.store.Load(ctx)
		switch {
		case err != nil:
			logger.Warnf("[ProfileCache] load failed, fetching instead: %v", err)
		case entry != nil && entry.Profile != nil &&
			entry.Profile.ProfileID == profileID &&
			c.clock().Sub(entry.FetchedAt) < c.ttl:
			return entry.Profile, nil
		}
	}

	profile, err := c.fetcher.GetProfile(ctx, profileID)
	if err != nil {
		return nil, err
	}
	c.saveLocked(ctx, profile)
	return profile, nil
}

// UpdateCache overwrites the entry and resets its timestamp. Used after a
// confirmed mutation (purchase report, restore, attribute update), bypassing
// the TTL check entirely.
func (c *Cache) UpdateCache(ctx context.Context, profile *models.Profile) {
	if profile == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saveLocked(ctx, profile)
}

// Invalidate drops the entry unconditionally. Used on identity change.
func (c *Cache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.Drop(ctx); err != nil {
		logger.Warnf("[ProfileCache] invalidate failed: %v", err)
	}
}

func (c *Cache) saveLocked(ctx context.Context, profile *models.Profile) {
	entry := &Entry{Profile: profile, FetchedAt: c.clock()}
	if err := c.store.Save(ctx, entry, c.ttl); err != nil {
		logger.Warnf("[ProfileCache] save failed: %v", err)
	}
}
