package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/stwalsh4118/dmrb/internal/logger"
)

// DefaultCacheKey is the store key for the cached workbook.
const DefaultCacheKey = "dmrb:workbook"

// Payload is one fetched copy of the workbook.
type Payload struct {
	Data     []byte    `json:"data"`
	LoadedAt time.Time `json:"loaded_at"`
	Source   string    `json:"source"`
}

// CachedSource is a read-through cache of the workbook bytes. Concurrent
// misses are collapsed into a single fetch.
type CachedSource struct {
	fetcher Fetcher
	store   KVStore
	ttl     time.Duration
	key     string
	log     *logger.Logger
	now     func() time.Time

	fetchMu sync.Mutex
}

// CachedSourceOption customizes a CachedSource.
type CachedSourceOption func(*CachedSource)

// WithCacheKey overrides DefaultCacheKey.
func WithCacheKey(key string) CachedSourceOption {
	return func(c *CachedSource) { c.key = key }
}

// WithClock overrides the load timestamp clock.
func WithClock(now func() time.Time) CachedSourceOption {
	return func(c *CachedSource) { c.now = now }
}

// NewCachedSource wraps fetcher with store. A zero ttl disables caching.
func NewCachedSource(fetcher Fetcher, store KVStore, ttl time.Duration, log *logger.Logger, opts ...CachedSourceOption) *CachedSource {
	if log == nil {
		log = logger.Nop()
	}
	c := &CachedSource{
		fetcher: fetcher,
		store:   store,
		ttl:     ttl,
		key:     DefaultCacheKey,
		log:     log.WithComponent("source"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the cached payload or fetches a fresh one. Cache store errors
// are logged and fall through to the fetcher; fetch errors are returned.
func (c *CachedSource) Load(ctx context.Context) (*Payload, error) {
	if p, ok := c.cached(ctx); ok {
		return p, nil
	}

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()

	// Another caller may have filled the cache while we waited.
	if p, ok := c.cached(ctx); ok {
		return p, nil
	}

	start := c.now()
	data, err := c.fetcher.Fetch(ctx)
	if err != nil {
		c.log.Error("Workbook fetch failed", err, map[string]interface{}{
			"source": c.fetcher.Describe(),
		})
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		return nil, err
	}

	p := &Payload{Data: data, LoadedAt: c.now(), Source: c.fetcher.Describe()}
	c.log.Info("Workbook fetched", map[string]interface{}{
		"source":      p.Source,
		"bytes":       len(data),
		"duration_ms": c.now().Sub(start).Milliseconds(),
	})

	if c.ttl > 0 {
		encoded, err := json.Marshal(p)
		if err == nil {
			err = c.store.Set(ctx, c.key, encoded, c.ttl)
		}
		if err != nil {
			c.log.Warn("Failed to cache workbook", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return p, nil
}

func (c *CachedSource) cached(ctx context.Context) (*Payload, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	raw, err := c.store.Get(ctx, c.key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("Workbook cache read failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, false
	}
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		c.log.Warn("Discarding corrupt workbook cache entry", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, false
	}
	return &p, true
}

// Invalidate drops the cached payload so the next Load refetches.
func (c *CachedSource) Invalidate(ctx context.Context) error {
	if err := c.store.Delete(ctx, c.key); err != nil {
		return fmt.Errorf("failed to invalidate workbook cache: %w", err)
	}
	c.log.Debug("Workbook cache invalidated", nil)
	return nil
}

// Ping checks the cache backend.
func (c *CachedSource) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Describe names the underlying source.
func (c *CachedSource) Describe() string {
	return c.fetcher.Describe()
}
