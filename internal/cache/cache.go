package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/metrics"
)

// Cache is a stale-while-revalidate front over a Store.
type Cache struct {
	store Store
	now   Clock
}

// Option configures a Cache
type Option func(*Cache)

// WithClock overrides the wall clock, mainly for tests.
func WithClock(clock Clock) Option {
	return func(c *Cache) {
		c.now = clock
	}
}

// New creates a Cache backed by store
func New(store Store, opts ...Option) *Cache {
	c := &Cache{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hit is a decoded cache read.
type Hit[T any] struct {
	Data      T
	FetchedAt int64
	Status    int
	IsStale   bool
}

// SetOptions controls the lifetime of a written entry.
type SetOptions struct {
	TTL        time.Duration
	StaleAfter time.Duration // zero means the entry stops being served at TTL
	Status     int           // zero records DefaultStatus
}

// Now returns the cache clock in unix seconds.
func (c *Cache) Now() int64 {
	return c.now().Unix()
}

// Get reads key and decodes its payload into T. It returns nil when the key
// is absent, outside its serving window, or holds a payload that does not
// decode. Store failures are returned as errors.
func Get[T any](ctx context.Context, c *Cache, key string) (*Hit[T], error) {
	start := time.Now()
	defer func() {
		metrics.RecordCacheOperation("get", time.Since(start).Seconds())
	}()

	entry, err := c.store.Load(ctx, key)
	if errors.Is(err, ErrCorruptEntry) {
		metrics.RecordCacheLookup("corrupt")
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("Discarding unreadable cache entry")
		return nil, nil
	}
	if err != nil {
		metrics.RecordError("cache", "load")
		return nil, fmt.Errorf("failed to load cache entry %s: %w", key, err)
	}

	now := c.Now()
	if entry == nil || !entry.Servable(now) {
		metrics.RecordCacheLookup("miss")
		return nil, nil
	}

	var data T
	if err := json.Unmarshal(entry.Payload, &data); err != nil {
		metrics.RecordCacheLookup("corrupt")
		log.Warn().
			Err(err).
			Str("key", key).
			Msg("Discarding undecodable cache payload")
		return nil, nil
	}

	stale := entry.Stale(now)
	if stale {
		metrics.RecordCacheLookup("stale")
	} else {
		metrics.RecordCacheLookup("hit")
	}

	return &Hit[T]{
		Data:      data,
		FetchedAt: entry.FetchedAt,
		Status:    entry.Status,
		IsStale:   stale,
	}, nil
}

// Set encodes payload and writes it under key with fetchedAt set to now.
func (c *Cache) Set(ctx context.Context, key string, payload any, opts SetOptions) error {
	start := time.Now()
	defer func() {
		metrics.RecordCacheOperation("set", time.Since(start).Seconds())
	}()

	if opts.TTL < time.Second {
		return fmt.Errorf("cache ttl for %s must be at least one second", key)
	}
	if opts.StaleAfter > 0 && opts.StaleAfter < opts.TTL {
		return fmt.Errorf("cache stale window for %s must not end before its ttl", key)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode cache payload %s: %w", key, err)
	}

	entry := Entry{
		Key:        key,
		Payload:    body,
		Status:     opts.Status,
		FetchedAt:  c.Now(),
		TTLSeconds: int(opts.TTL / time.Second),
	}
	if entry.Status == 0 {
		entry.Status = DefaultStatus
	}
	if opts.StaleAfter > 0 {
		stale := int(opts.StaleAfter / time.Second)
		entry.StaleAfterSeconds = &stale
	}

	if err := c.store.Save(ctx, entry); err != nil {
		metrics.RecordError("cache", "save")
		return fmt.Errorf("failed to save cache entry %s: %w", key, err)
	}

	return nil
}

// Prune deletes every entry whose ttl has elapsed and returns how many were removed.
func (c *Cache) Prune(ctx context.Context) (int64, error) {
	start := time.Now()
	defer func() {
		metrics.RecordCacheOperation("prune", time.Since(start).Seconds())
	}()

	removed, err := c.store.DeleteExpired(ctx, c.Now())
	if err != nil {
		metrics.RecordError("cache", "prune")
		return 0, fmt.Errorf("failed to prune cache: %w", err)
	}

	metrics.RecordCachePrune(removed)
	return removed, nil
}
