package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/cache"
)

// WebCacheRepository is the Postgres cache.Store
type WebCacheRepository struct {
	db *Database
}

var _ cache.Store = (*WebCacheRepository)(nil)

// Load returns the entry stored under key, or nil when there is none
func (r *WebCacheRepository) Load(ctx context.Context, key string) (entry *cache.Entry, err error) {
	defer observe("select", "web_cache")(&err)

	query := `
		SELECT key, payload, status, fetched_at, ttl_seconds, stale_after_seconds
		FROM web_cache
		WHERE key = $1
	`

	var (
		e       cache.Entry
		payload string
	)
	err = r.db.Pool.QueryRow(ctx, query, key).Scan(
		&e.Key, &payload, &e.Status, &e.FetchedAt, &e.TTLSeconds, &e.StaleAfterSeconds,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entry: %w", err)
	}

	e.Payload = []byte(payload)
	return &e, nil
}

// Save inserts the entry or overwrites every column of the existing row
func (r *WebCacheRepository) Save(ctx context.Context, entry cache.Entry) (err error) {
	defer observe("upsert", "web_cache")(&err)

	query := `
		INSERT INTO web_cache (key, payload, status, fetched_at, ttl_seconds, stale_after_seconds)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key) DO UPDATE SET
			payload = EXCLUDED.payload,
			status = EXCLUDED.status,
			fetched_at = EXCLUDED.fetched_at,
			ttl_seconds = EXCLUDED.ttl_seconds,
			stale_after_seconds = EXCLUDED.stale_after_seconds
	`

	_, err = r.db.Pool.Exec(ctx, query,
		entry.Key, string(entry.Payload), entry.Status,
		entry.FetchedAt, entry.TTLSeconds, entry.StaleAfterSeconds,
	)
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}

	return nil
}

// DeleteExpired removes rows whose ttl has elapsed at now
func (r *WebCacheRepository) DeleteExpired(ctx context.Context, now int64) (removed int64, err error) {
	defer observe("delete", "web_cache")(&err)

	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM web_cache WHERE fetched_at + ttl_seconds <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired cache entries: %w", err)
	}

	removed = tag.RowsAffected()
	log.Debug().Int64("removed", removed).Msg("Expired cache entries deleted")
	return removed, nil
}
