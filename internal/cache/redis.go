package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "nbastats:webcache:"

// Config holds the Redis connection parameters
type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RedisCache stores entries as JSON documents in Redis. Each key carries a
// native expiry equal to its serving window so Redis drops it on its own once
// it can no longer be served.
type RedisCache struct {
	rdb *redis.Client
}

type redisDocument struct {
	Payload           []byte `json:"payload"`
	Status            int    `json:"status"`
	FetchedAt         int64  `json:"fetched_at"`
	TTLSeconds        int    `json:"ttl_seconds"`
	StaleAfterSeconds *int   `json:"stale_after_seconds,omitempty"`
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(cfg Config) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return NewRedisCacheFromClient(rdb), nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(rdb *redis.Client) *RedisCache {
	return &RedisCache{rdb: rdb}
}

// Close closes the underlying client
func (r *RedisCache) Close() error {
	return r.rdb.Close()
}

func (r *RedisCache) Load(ctx context.Context, key string) (*Entry, error) {
	raw, err := r.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	entry, err := decodeRedisDocument(key, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	return entry, nil
}

func (r *RedisCache) Save(ctx context.Context, entry Entry) error {
	doc, err := json.Marshal(redisDocument{
		Payload:           entry.Payload,
		Status:            entry.Status,
		FetchedAt:         entry.FetchedAt,
		TTLSeconds:        entry.TTLSeconds,
		StaleAfterSeconds: entry.StaleAfterSeconds,
	})
	if err != nil {
		return fmt.Errorf("failed to encode redis document: %w", err)
	}

	expiry := time.Until(time.Unix(entry.FetchedAt+entry.Window(), 0))
	if expiry <= 0 {
		// Already outside its window; keep it only until the next prune sweep.
		expiry = time.Second
	}

	return r.rdb.Set(ctx, redisKeyPrefix+entry.Key, doc, expiry).Err()
}

// DeleteExpired removes entries past their ttl even when their serving
// window, and therefore their native expiry, is still open. Each delete runs
// under WATCH so an entry rewritten during the sweep is left alone.
func (r *RedisCache) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	var removed int64

	iter := r.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 200).Iterator()
	for iter.Next(ctx) {
		redisKey := iter.Val()

		err := r.rdb.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, redisKey).Bytes()
			if errors.Is(err, redis.Nil) {
				return nil
			}
			if err != nil {
				return err
			}

			entry, err := decodeRedisDocument(redisKey, raw)
			if err == nil && !entry.Expired(now) {
				return nil
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, redisKey)
				return nil
			})
			if err == nil {
				removed++
			}
			return err
		}, redisKey)

		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("failed to prune %s: %w", redisKey, err)
		}
	}

	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan redis cache keys: %w", err)
	}

	return removed, nil
}

func decodeRedisDocument(key string, raw []byte) (*Entry, error) {
	var doc redisDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &Entry{
		Key:               key,
		Payload:           doc.Payload,
		Status:            doc.Status,
		FetchedAt:         doc.FetchedAt,
		TTLSeconds:        doc.TTLSeconds,
		StaleAfterSeconds: doc.StaleAfterSeconds,
	}, nil
}
