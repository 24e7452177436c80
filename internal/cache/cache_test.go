package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

type payload struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestCache(t *testing.T) (*Cache, *MemoryStore, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	store := NewMemoryStore()
	return New(store, WithClock(clock.now)), store, clock
}

func TestCache_GetMissingKey(t *testing.T) {
	c, _, _ := newTestCache(t)

	hit, err := Get[payload](context.Background(), c, "absent")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestCache_StaleWhileRevalidateWindow(t *testing.T) {
	c, _, clock := newTestCache(t)
	ctx := context.Background()
	start := clock.t.Unix()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "a", Count: 1}, SetOptions{
		TTL:        10 * time.Second,
		StaleAfter: 30 * time.Second,
	}))

	clock.advance(5 * time.Second)
	hit, err := Get[payload](ctx, c, "k")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.False(t, hit.IsStale, "entry should be fresh before ttl")
	assert.Equal(t, payload{Name: "a", Count: 1}, hit.Data)
	assert.Equal(t, start, hit.FetchedAt)
	assert.Equal(t, DefaultStatus, hit.Status)

	clock.advance(15 * time.Second)
	hit, err = Get[payload](ctx, c, "k")
	require.NoError(t, err)
	require.NotNil(t, hit, "entry should be served inside the stale window")
	assert.True(t, hit.IsStale)

	clock.advance(15 * time.Second)
	hit, err = Get[payload](ctx, c, "k")
	require.NoError(t, err)
	assert.Nil(t, hit, "entry should not be served past staleAfter")
}

func TestCache_BoundariesAreExact(t *testing.T) {
	c, _, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "x"}, SetOptions{TTL: 10 * time.Second}))

	clock.advance(9 * time.Second)
	hit, err := Get[payload](ctx, c, "k")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.False(t, hit.IsStale)

	// Without staleAfter the window equals ttl, so now == fetchedAt+ttl is a miss.
	clock.advance(time.Second)
	hit, err = Get[payload](ctx, c, "k")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestCache_StaleExactlyAtTTL(t *testing.T) {
	c, _, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{}, SetOptions{TTL: 10 * time.Second, StaleAfter: 20 * time.Second}))

	clock.advance(10 * time.Second)
	hit, err := Get[payload](ctx, c, "k")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.True(t, hit.IsStale)

	clock.advance(10 * time.Second)
	hit, err = Get[payload](ctx, c, "k")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestCache_SetReplacesEveryField(t *testing.T) {
	c, store, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", payload{Name: "old"}, SetOptions{
		TTL:        time.Minute,
		StaleAfter: time.Hour,
		Status:     203,
	}))

	clock.advance(30 * time.Second)
	require.NoError(t, c.Set(ctx, "k", payload{Name: "new"}, SetOptions{TTL: 2 * time.Minute}))

	entry, err := store.Load(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, clock.t.Unix(), entry.FetchedAt)
	assert.Equal(t, 120, entry.TTLSeconds)
	assert.Nil(t, entry.StaleAfterSeconds, "staleAfter should be cleared by the replacing write")
	assert.Equal(t, DefaultStatus, entry.Status)
	assert.Equal(t, 1, store.Len())

	hit, err := Get[payload](ctx, c, "k")
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.Equal(t, "new", hit.Data.Name)
}

func TestCache_CorruptPayloadIsMiss(t *testing.T) {
	c, store, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Entry{
		Key:        "broken",
		Payload:    []byte("{not json"),
		Status:     200,
		FetchedAt:  clock.t.Unix(),
		TTLSeconds: 60,
	}))

	hit, err := Get[payload](ctx, c, "broken")
	require.NoError(t, err, "corrupt payload should not surface an error")
	assert.Nil(t, hit)
}

func TestCache_PruneUsesTTLOnly(t *testing.T) {
	c, store, clock := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "short", payload{}, SetOptions{TTL: 10 * time.Second, StaleAfter: time.Hour}))
	require.NoError(t, c.Set(ctx, "long", payload{}, SetOptions{TTL: time.Hour}))

	clock.advance(10 * time.Second)
	removed, err := c.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 1, store.Len())

	hit, err := Get[payload](ctx, c, "short")
	require.NoError(t, err)
	assert.Nil(t, hit, "pruned entry is gone even though its stale window was open")

	hit, err = Get[payload](ctx, c, "long")
	require.NoError(t, err)
	assert.NotNil(t, hit)
}

func TestCache_SetRejectsNonPositiveTTL(t *testing.T) {
	c, _, _ := newTestCache(t)

	err := c.Set(context.Background(), "k", payload{}, SetOptions{})
	assert.Error(t, err)
}

func TestCache_SetRejectsInvalidWindows(t *testing.T) {
	tests := []struct {
		name string
		opts SetOptions
	}{
		{"sub-second ttl", SetOptions{TTL: 500 * time.Millisecond}},
		{"stale window shorter than ttl", SetOptions{TTL: time.Hour, StaleAfter: time.Minute}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, store, _ := newTestCache(t)
			ctx := context.Background()

			assert.Error(t, c.Set(ctx, "k", payload{}, tt.opts))

			entry, err := store.Load(ctx, "k")
			require.NoError(t, err)
			assert.Nil(t, entry, "Rejected entry must not be written")
		})
	}
}

func TestCache_SetAcceptsStaleWindowEqualToTTL(t *testing.T) {
	c, _, _ := newTestCache(t)

	err := c.Set(context.Background(), "k", payload{}, SetOptions{TTL: time.Minute, StaleAfter: time.Minute})
	assert.NoError(t, err)
}

type corruptStore struct {
	MemoryStore
}

func (*corruptStore) Load(context.Context, string) (*Entry, error) {
	return nil, fmt.Errorf("%w: invalid character 'x'", ErrCorruptEntry)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	c := New(&corruptStore{})

	hit, err := Get[payload](context.Background(), c, "k")
	require.NoError(t, err)
	assert.Nil(t, hit)
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (*Entry, error) {
	return nil, errors.New("connection refused")
}

func (failingStore) Save(context.Context, Entry) error {
	return errors.New("connection refused")
}

func (failingStore) DeleteExpired(context.Context, int64) (int64, error) {
	return 0, errors.New("connection refused")
}

func TestCache_StoreErrorsPropagate(t *testing.T) {
	c := New(failingStore{})
	ctx := context.Background()

	_, err := Get[payload](ctx, c, "k")
	assert.Error(t, err)

	err = c.Set(ctx, "k", payload{}, SetOptions{TTL: time.Minute})
	assert.Error(t, err)

	_, err = c.Prune(ctx)
	assert.Error(t, err)
}

func TestEntry_Window(t *testing.T) {
	stale := 90
	tests := []struct {
		name      string
		entry     Entry
		now       int64
		servable  bool
		isStale   bool
		isExpired bool
	}{
		{"fresh", Entry{FetchedAt: 100, TTLSeconds: 60}, 120, true, false, false},
		{"at ttl without stale window", Entry{FetchedAt: 100, TTLSeconds: 60}, 160, false, true, true},
		{"inside stale window", Entry{FetchedAt: 100, TTLSeconds: 60, StaleAfterSeconds: &stale}, 170, true, true, true},
		{"past stale window", Entry{FetchedAt: 100, TTLSeconds: 60, StaleAfterSeconds: &stale}, 190, false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.servable, tt.entry.Servable(tt.now))
			assert.Equal(t, tt.isStale, tt.entry.Stale(tt.now))
			assert.Equal(t, tt.isExpired, tt.entry.Expired(tt.now))
		})
	}
}
