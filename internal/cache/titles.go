package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackfest-platform/registration-engine/internal/models"
	"github.com/hackfest-platform/registration-engine/internal/storage"
)

// titlesKey is where the serialized title catalog lives in Redis.
const titlesKey = "registration:titles"

// TitleCache keeps the project title catalog in Redis so the registration
// form can poll it without hitting the store. It is a read-side helper
// only: the store stays the single source of truth and every allocation
// still validates against it.
type TitleCache struct {
	client *redis.Client
	store  storage.Store
	ttl    time.Duration
}

// NewTitleCache creates a cache backed by the given Redis client
func NewTitleCache(client *redis.Client, store storage.Store, ttl time.Duration) *TitleCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	return &TitleCache{
		client: client,
		store:  store,
		ttl:    ttl,
	}
}

// Titles returns the title catalog, from Redis when fresh, falling back
// to the store (and repopulating the cache) otherwise. Redis being down
// degrades to store reads, never to an error.
func (c *TitleCache) Titles(ctx context.Context) ([]*models.Title, error) {
	payload, err := c.client.Get(ctx, titlesKey).Bytes()
	if err == nil {
		var titles []*models.Title
		if err := json.Unmarshal(payload, &titles); err == nil {
			return titles, nil
		}
		slog.Warn("corrupt title cache entry, refreshing", "key", titlesKey)
	} else if err != redis.Nil {
		slog.Warn("title cache read failed, falling back to store", "error", err)
	}

	return c.Refresh(ctx)
}

// Refresh reloads the catalog from the store and rewrites the cache entry
func (c *TitleCache) Refresh(ctx context.Context) ([]*models.Title, error) {
	titles, err := c.store.ListTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load titles: %w", err)
	}

	payload, err := json.Marshal(titles)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal titles: %w", err)
	}

	if err := c.client.Set(ctx, titlesKey, payload, c.ttl).Err(); err != nil {
		slog.Warn("failed to write title cache", "error", err)
	}

	return titles, nil
}

// Invalidate drops the cached catalog. Called after any mutation that
// changes a title's availability.
func (c *TitleCache) Invalidate(ctx context.Context) {
	if err := c.client.Del(ctx, titlesKey).Err(); err != nil {
		slog.Warn("failed to invalidate title cache", "error", err)
	}
}

// Refresher periodically rebuilds the title cache so watchers of the
// public catalog converge even when an invalidation was lost.
type Refresher struct {
	cache    *TitleCache
	interval time.Duration
}

// NewRefresher creates a new cache refresh worker
func NewRefresher(cache *TitleCache, interval time.Duration) *Refresher {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Refresher{
		cache:    cache,
		interval: interval,
	}
}

// Start begins the refresh worker in a goroutine
func (r *Refresher) Start(ctx context.Context) {
	go r.run(ctx)
}

func (r *Refresher) run(ctx context.Context) {
	slog.Info("title cache refresher started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Warm the cache immediately on start
	r.refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("title cache refresher stopped")
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

func (r *Refresher) refresh(ctx context.Context) {
	if _, err := r.cache.Refresh(ctx); err != nil {
		slog.Error("title cache refresh failed", "error", err)
	}
}
