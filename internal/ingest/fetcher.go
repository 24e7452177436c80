// Package ingest fetches upstream resources through the response cache,
// normalizes them, and optionally persists the validated rows.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"nbastats/ingestion/internal/cache"
	"nbastats/ingestion/internal/client"
	"nbastats/ingestion/internal/metrics"
	"nbastats/ingestion/internal/normalize"
)

// ErrUpstreamUnavailable marks a refresh that failed because upstream could
// not be reached or returned an unusable payload.
var ErrUpstreamUnavailable = errors.New("upstream data unavailable")

// Upstream fetches the raw body of an endpoint
type Upstream interface {
	Get(ctx context.Context, ep client.Endpoint) ([]byte, error)
}

// Options controls a single fetch
type Options struct {
	PersistToDB bool
}

// Result is the outcome of a fetch
type Result[T any] struct {
	Records   []T
	FromCache bool
	FetchedAt int64
	Persisted int
}

// Source describes one cacheable upstream resource keyed by params P and
// yielding rows of type T.
type Source[P any, T any] struct {
	Name       string
	ResultSet  string
	Key        func(P) string
	Endpoint   func(P) client.Endpoint
	TTL        time.Duration
	StaleAfter time.Duration
	Persist    func(ctx context.Context, records []T) (int, error)
}

// Fetcher runs the cache-then-upstream flow for one Source
type Fetcher[P any, T any] struct {
	source   Source[P, T]
	upstream Upstream
	cache    *cache.Cache
	group    *singleflight.Group
}

// NewFetcher creates a Fetcher. With singleFlight set, concurrent refreshes
// of the same key share one upstream call.
func NewFetcher[P any, T any](source Source[P, T], upstream Upstream, c *cache.Cache, singleFlight bool) *Fetcher[P, T] {
	f := &Fetcher[P, T]{
		source:   source,
		upstream: upstream,
		cache:    c,
	}
	if singleFlight {
		f.group = &singleflight.Group{}
	}
	return f
}

// Fetch serves params from the cache while the entry is fresh. A missing or
// stale entry is refreshed from upstream; there is no retry and no fallback
// to the stale copy when the refresh fails.
func (f *Fetcher[P, T]) Fetch(ctx context.Context, params P, opts Options) (*Result[T], error) {
	start := time.Now()
	key := f.source.Key(params)

	hit, err := cache.Get[[]T](ctx, f.cache, key)
	if err != nil {
		metrics.RecordFetch(f.source.Name, "error", time.Since(start).Seconds())
		return nil, err
	}

	var result *Result[T]
	if hit != nil && !hit.IsStale {
		result = &Result[T]{Records: hit.Data, FromCache: true, FetchedAt: hit.FetchedAt}
	} else {
		if hit != nil {
			log.Debug().Str("source", f.source.Name).Str("key", key).Msg("Cached entry is stale, refreshing")
		}

		result, err = f.refresh(ctx, key, params)
		if err != nil {
			metrics.RecordFetch(f.source.Name, "error", time.Since(start).Seconds())
			metrics.RecordError("ingest", f.source.Name)
			return nil, err
		}
	}

	if opts.PersistToDB {
		n, err := f.persist(ctx, result.Records)
		if err != nil {
			metrics.RecordFetch(f.source.Name, "error", time.Since(start).Seconds())
			return nil, err
		}
		result.Persisted = n
	}

	outcome := "upstream"
	if result.FromCache {
		outcome = "cache"
	}
	metrics.RecordFetch(f.source.Name, outcome, time.Since(start).Seconds())

	log.Debug().
		Str("source", f.source.Name).
		Str("key", key).
		Str("outcome", outcome).
		Int("records", len(result.Records)).
		Int("persisted", result.Persisted).
		Msg("Fetch complete")

	return result, nil
}

func (f *Fetcher[P, T]) refresh(ctx context.Context, key string, params P) (*Result[T], error) {
	if f.group == nil {
		return f.load(ctx, key, params)
	}

	// The shared load serves every joined caller, so it must not inherit
	// cancellation from whichever caller started it.
	v, err, shared := f.group.Do(key, func() (interface{}, error) {
		return f.load(context.WithoutCancel(ctx), key, params)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		log.Debug().Str("key", key).Msg("Joined in-flight refresh")
	}

	loaded := v.(*Result[T])
	return &Result[T]{Records: loaded.Records, FetchedAt: loaded.FetchedAt}, nil
}

func (f *Fetcher[P, T]) load(ctx context.Context, key string, params P) (*Result[T], error) {
	body, err := f.upstream.Get(ctx, f.source.Endpoint(params))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch %s: %w", ErrUpstreamUnavailable, f.source.Name, err)
	}

	normalized, err := normalize.ResultSet[T](body, f.source.ResultSet)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to normalize %s: %w", ErrUpstreamUnavailable, f.source.Name, err)
	}

	err = f.cache.Set(ctx, key, normalized.Records, cache.SetOptions{
		TTL:        f.source.TTL,
		StaleAfter: f.source.StaleAfter,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("source", f.source.Name).
		Str("key", key).
		Int("records", len(normalized.Records)).
		Int("dropped", normalized.Dropped).
		Msg("Refreshed from upstream")

	return &Result[T]{Records: normalized.Records, FetchedAt: f.cache.Now()}, nil
}

func (f *Fetcher[P, T]) persist(ctx context.Context, records []T) (int, error) {
	if f.source.Persist == nil {
		return 0, fmt.Errorf("%s has no persistence configured", f.source.Name)
	}
	if len(records) == 0 {
		return 0, nil
	}

	n, err := f.source.Persist(ctx, records)
	if err != nil {
		return 0, fmt.Errorf("failed to persist %s: %w", f.source.Name, err)
	}
	return n, nil
}
