package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCorruptEntry is returned by a Store whose stored record cannot be read
// back. Get treats it as a miss.
var ErrCorruptEntry = errors.New("corrupt cache entry")

// DefaultStatus is recorded for entries whose upstream status was not supplied.
const DefaultStatus = 200

// Entry is one cached upstream response. Times are unix seconds.
type Entry struct {
	Key               string
	Payload           []byte
	Status            int
	FetchedAt         int64
	TTLSeconds        int
	StaleAfterSeconds *int
}

// Window returns the number of seconds after FetchedAt during which the
// entry may still be served.
func (e *Entry) Window() int64 {
	if e.StaleAfterSeconds != nil {
		return int64(*e.StaleAfterSeconds)
	}
	return int64(e.TTLSeconds)
}

// Servable reports whether the entry is still inside its serving window at now.
func (e *Entry) Servable(now int64) bool {
	return now < e.FetchedAt+e.Window()
}

// Stale reports whether the entry is past its ttl at now.
func (e *Entry) Stale(now int64) bool {
	return now >= e.FetchedAt+int64(e.TTLSeconds)
}

// Expired is the prune boundary. It ignores StaleAfterSeconds.
func (e *Entry) Expired(now int64) bool {
	return e.FetchedAt+int64(e.TTLSeconds) <= now
}

// Store persists cache entries. Load returns nil when the key is absent.
// Save replaces every field of an existing entry.
type Store interface {
	Load(ctx context.Context, key string) (*Entry, error)
	Save(ctx context.Context, entry Entry) error
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// Clock returns the current time.
type Clock func() time.Time
