package ingest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nbastats/ingestion/internal/cache"
	"nbastats/ingestion/internal/client"
	"nbastats/ingestion/internal/models"
)

const gameLogBody = `{"resultSets":[{"name":"PlayerGameLog",
  "headers":["SEASON_ID","PLAYER_ID","GAME_ID","GAME_DATE","MATCHUP","WL","PTS"],
  "rowSet":[["22025",2544,"0022500002","NOV 03, 2025","LAL @ BOS","L",28],
            ["22025",2544,"0022500001","NOV 01, 2025","LAL vs. BOS","W",31]]}]}`

const playerIndexBody = `{"resultSets":[{"name":"PlayerIndex",
  "headers":["PERSON_ID","PLAYER_LAST_NAME","PLAYER_FIRST_NAME","PLAYER_SLUG"],
  "rowSet":[[2544,"James","LeBron","lebron-james"],[201939,"Curry","Stephen","stephen-curry"]]}]}`

type fakeUpstream struct {
	mu     sync.Mutex
	calls  int32
	paths  []string
	bodies map[string]string
	err    error
	gate   chan struct{}
}

func (f *fakeUpstream) Get(ctx context.Context, ep client.Endpoint) ([]byte, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.gate != nil {
		<-f.gate
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, ep.Path+"?"+ep.Params.Encode())
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.bodies[ep.Path]
	if !ok {
		return nil, &client.StatusError{Endpoint: ep.Path, StatusCode: 404}
	}
	return []byte(body), nil
}

func (f *fakeUpstream) callCount() int {
	return int(atomic.LoadInt32(&f.calls))
}

type fakePlayerStore struct {
	batches [][]models.PlayerIndexRow
	err     error
}

func (f *fakePlayerStore) UpsertBatch(_ context.Context, rows []models.PlayerIndexRow) ([]int, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, rows)
	ids := make([]int, len(rows))
	for i, r := range rows {
		ids[i] = r.PersonID
	}
	return ids, nil
}

type fakeGameLogStore struct {
	batches [][]models.PlayerGameLogRow
}

func (f *fakeGameLogStore) UpsertBatch(_ context.Context, rows []models.PlayerGameLogRow) ([]models.GameLogKey, error) {
	f.batches = append(f.batches, rows)
	keys := make([]models.GameLogKey, len(rows))
	for i := range rows {
		keys[i] = rows[i].Key()
	}
	return keys, nil
}

type harness struct {
	svc      *Service
	upstream *fakeUpstream
	players  *fakePlayerStore
	logs     *fakeGameLogStore
	store    *cache.MemoryStore
	now      *time.Time
}

func newHarness(t *testing.T, singleFlight bool) *harness {
	t.Helper()

	now := time.Unix(1_700_000_000, 0)
	h := &harness{
		upstream: &fakeUpstream{bodies: map[string]string{
			"playergamelog": gameLogBody,
			"playerindex":   playerIndexBody,
		}},
		players: &fakePlayerStore{},
		logs:    &fakeGameLogStore{},
		store:   cache.NewMemoryStore(),
		now:     &now,
	}
	c := cache.New(h.store, cache.WithClock(func() time.Time { return *h.now }))
	h.svc = NewService(h.upstream, c, h.players, h.logs, Config{
		Season:            "2025-26",
		SeasonType:        "Regular Season",
		PlayerIndexTTL:    6 * time.Hour,
		GameLogTTL:        15 * time.Minute,
		GameLogStaleAfter: time.Hour,
		SingleFlight:      singleFlight,
	})
	return h
}

func (h *harness) advance(d time.Duration) {
	*h.now = h.now.Add(d)
}

func TestFetchPlayerGameLogs_CacheMissThenHit(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	params := GameLogParams{PlayerID: 2544}

	first, err := h.svc.FetchPlayerGameLogs(ctx, params, Options{})
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	require.Len(t, first.Records, 2)
	assert.Equal(t, "0022500002", first.Records[0].GameID, "Upstream order should be preserved")
	assert.Equal(t, 1, h.upstream.callCount())
	assert.Contains(t, h.upstream.paths[0], "PlayerID=2544")
	assert.Contains(t, h.upstream.paths[0], "Season=2025-26")

	second, err := h.svc.FetchPlayerGameLogs(ctx, params, Options{})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Records, second.Records)
	assert.Equal(t, 1, h.upstream.callCount(), "Fresh hit must not call upstream")
	assert.Empty(t, h.logs.batches, "Nothing should be persisted without PersistToDB")
}

func TestFetchPlayerGameLogs_CacheKeyIncludesSeasonType(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.svc.FetchPlayerGameLogs(ctx, GameLogParams{PlayerID: 2544}, Options{})
	require.NoError(t, err)
	_, err = h.svc.FetchPlayerGameLogs(ctx, GameLogParams{PlayerID: 2544, SeasonType: "Playoffs"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, 2, h.upstream.callCount())
	assert.Equal(t, 2, h.store.Len())
}

func TestFetchPlayerIndex_FreshHitStillPersists(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.svc.FetchPlayerIndex(ctx, "", Options{})
	require.NoError(t, err)
	require.Equal(t, 1, h.upstream.callCount())

	result, err := h.svc.FetchPlayerIndex(ctx, "", Options{PersistToDB: true})
	require.NoError(t, err)
	assert.True(t, result.FromCache)
	assert.Equal(t, 2, result.Persisted)
	assert.Equal(t, 1, h.upstream.callCount())
	require.Len(t, h.players.batches, 1)
	assert.Equal(t, 2544, h.players.batches[0][0].PersonID)
}

func TestFetchPlayerGameLogs_StaleEntryIsRefreshed(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	params := GameLogParams{PlayerID: 2544}

	_, err := h.svc.FetchPlayerGameLogs(ctx, params, Options{})
	require.NoError(t, err)

	h.advance(20 * time.Minute)
	result, err := h.svc.FetchPlayerGameLogs(ctx, params, Options{PersistToDB: true})
	require.NoError(t, err)
	assert.False(t, result.FromCache, "Stale entry should be refreshed")
	assert.Equal(t, 2, h.upstream.callCount())
	assert.Equal(t, h.now.Unix(), result.FetchedAt)
	require.Len(t, h.logs.batches, 1)
}

func TestFetchPlayerGameLogs_UpstreamErrorHasNoFallback(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	params := GameLogParams{PlayerID: 2544}

	_, err := h.svc.FetchPlayerGameLogs(ctx, params, Options{})
	require.NoError(t, err)

	h.advance(20 * time.Minute)
	h.upstream.err = &client.StatusError{Endpoint: "playergamelog", StatusCode: 503}

	_, err = h.svc.FetchPlayerGameLogs(ctx, params, Options{PersistToDB: true})
	require.Error(t, err, "Stale copy must not be served when refresh fails")
	assert.True(t, client.IsStatus(err, 503))
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Empty(t, h.logs.batches)
}

func TestFetchPlayerGameLogs_ErrorDoesNotWriteCache(t *testing.T) {
	h := newHarness(t, false)
	h.upstream.err = errors.New("connection reset")

	_, err := h.svc.FetchPlayerGameLogs(context.Background(), GameLogParams{PlayerID: 7}, Options{})
	require.Error(t, err)
	assert.Equal(t, 0, h.store.Len())
}

func TestFetchPlayerGameLogs_MalformedBodyIsError(t *testing.T) {
	h := newHarness(t, false)
	h.upstream.bodies["playergamelog"] = `<html>Access Denied</html>`

	_, err := h.svc.FetchPlayerGameLogs(context.Background(), GameLogParams{PlayerID: 7}, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, 0, h.store.Len())
}

func TestFetchPlayerGameLogs_CorruptCacheRefetches(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	params := GameLogParams{PlayerID: 2544, Season: "2025-26", SeasonType: "Regular Season"}

	require.NoError(t, h.store.Save(ctx, cache.Entry{
		Key:        GameLogKey(params),
		Payload:    []byte(`{"truncated":`),
		Status:     200,
		FetchedAt:  h.now.Unix(),
		TTLSeconds: 900,
	}))

	result, err := h.svc.FetchPlayerGameLogs(ctx, params, Options{})
	require.NoError(t, err)
	assert.False(t, result.FromCache)
	assert.Len(t, result.Records, 2)
	assert.Equal(t, 1, h.upstream.callCount())
}

func TestFetchPlayerGameLogs_RejectsInvalidPlayer(t *testing.T) {
	h := newHarness(t, false)

	_, err := h.svc.FetchPlayerGameLogs(context.Background(), GameLogParams{PlayerID: 0}, Options{})
	assert.ErrorIs(t, err, ErrInvalidPlayerID)
	assert.Equal(t, 0, h.upstream.callCount())
}

func TestFetchPlayerIndex_PersistFailurePropagates(t *testing.T) {
	h := newHarness(t, false)
	h.players.err = errors.New("deadlock detected")

	_, err := h.svc.FetchPlayerIndex(context.Background(), "2025-26", Options{PersistToDB: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock detected")
}

func TestFetch_SingleFlightSharesRefresh(t *testing.T) {
	h := newHarness(t, true)
	h.upstream.gate = make(chan struct{})

	const callers = 5
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.FetchPlayerGameLogs(context.Background(), GameLogParams{PlayerID: 2544}, Options{})
			errs <- err
		}()
	}

	// Let the first caller reach upstream, then give the rest time to join.
	require.Eventually(t, func() bool { return h.upstream.callCount() >= 1 }, time.Second, time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(h.upstream.gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, h.upstream.callCount(), callers)
	assert.Equal(t, 1, h.store.Len())
}

func TestFetch_SharedRefreshOutlivesFirstCaller(t *testing.T) {
	h := newHarness(t, true)
	h.upstream.gate = make(chan struct{})
	params := GameLogParams{PlayerID: 2544}

	firstCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstDone := make(chan error, 1)
	go func() {
		_, err := h.svc.FetchPlayerGameLogs(firstCtx, params, Options{})
		firstDone <- err
	}()
	require.Eventually(t, func() bool { return h.upstream.callCount() >= 1 }, time.Second, time.Millisecond)

	secondDone := make(chan *Result[models.PlayerGameLogRow], 1)
	secondErr := make(chan error, 1)
	go func() {
		res, err := h.svc.FetchPlayerGameLogs(context.Background(), params, Options{})
		secondDone <- res
		secondErr <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	close(h.upstream.gate)

	<-firstDone
	require.NoError(t, <-secondErr, "Cancelling the first caller must not fail joined callers")
	res := <-secondDone
	require.NotNil(t, res)
	assert.Len(t, res.Records, 2)
	assert.Equal(t, 1, h.store.Len())
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "playerindex:2025-26:v2", PlayerIndexKey("2025-26"))
	assert.Equal(t, "playergamelog:2544:2025-26:Playoffs:v2",
		GameLogKey(GameLogParams{PlayerID: 2544, Season: "2025-26", SeasonType: "Playoffs"}))
	assert.NotEqual(t, GameLogKey(GameLogParams{PlayerID: 1}), GameLogKey(GameLogParams{PlayerID: 2}))
}
