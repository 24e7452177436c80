package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nbastats/ingestion/internal/cache"
	"nbastats/ingestion/internal/client"
	"nbastats/ingestion/internal/models"
	"nbastats/ingestion/internal/normalize"
)

// ErrInvalidPlayerID is returned for non-positive player ids
var ErrInvalidPlayerID = errors.New("player id must be positive")

// PlayerStore persists player index rows
type PlayerStore interface {
	UpsertBatch(ctx context.Context, rows []models.PlayerIndexRow) ([]int, error)
}

// GameLogStore persists game log rows
type GameLogStore interface {
	UpsertBatch(ctx context.Context, rows []models.PlayerGameLogRow) ([]models.GameLogKey, error)
}

// Config holds season defaults and cache lifetimes
type Config struct {
	Season            string
	SeasonType        string
	PlayerIndexTTL    time.Duration
	GameLogTTL        time.Duration
	GameLogStaleAfter time.Duration
	SingleFlight      bool
}

// GameLogParams selects one player's game logs
type GameLogParams struct {
	PlayerID   int
	Season     string
	SeasonType string
}

// PlayerIndexKey is the cache key for a season's player index
func PlayerIndexKey(season string) string {
	return fmt.Sprintf("playerindex:%s:v2", season)
}

// GameLogKey is the cache key for one player's game logs
func GameLogKey(p GameLogParams) string {
	return fmt.Sprintf("playergamelog:%d:%s:%s:v2", p.PlayerID, p.Season, p.SeasonType)
}

// Service exposes the two upstream resources
type Service struct {
	cfg         Config
	playerIndex *Fetcher[string, models.PlayerIndexRow]
	gameLogs    *Fetcher[GameLogParams, models.PlayerGameLogRow]
}

// NewService wires the player index and game log fetchers
func NewService(upstream Upstream, c *cache.Cache, players PlayerStore, logs GameLogStore, cfg Config) *Service {
	playerIndex := Source[string, models.PlayerIndexRow]{
		Name:      "player_index",
		ResultSet: normalize.PlayerIndexSet,
		Key:       PlayerIndexKey,
		Endpoint:  client.PlayerIndexEndpoint,
		TTL:       cfg.PlayerIndexTTL,
	}
	if players != nil {
		playerIndex.Persist = func(ctx context.Context, rows []models.PlayerIndexRow) (int, error) {
			ids, err := players.UpsertBatch(ctx, rows)
			return len(ids), err
		}
	}

	gameLogs := Source[GameLogParams, models.PlayerGameLogRow]{
		Name:      "player_game_log",
		ResultSet: normalize.PlayerGameLogSet,
		Key:       GameLogKey,
		Endpoint: func(p GameLogParams) client.Endpoint {
			return client.PlayerGameLogEndpoint(p.PlayerID, p.Season, p.SeasonType)
		},
		TTL:        cfg.GameLogTTL,
		StaleAfter: cfg.GameLogStaleAfter,
	}
	if logs != nil {
		gameLogs.Persist = func(ctx context.Context, rows []models.PlayerGameLogRow) (int, error) {
			keys, err := logs.UpsertBatch(ctx, rows)
			return len(keys), err
		}
	}

	return &Service{
		cfg:         cfg,
		playerIndex: NewFetcher(playerIndex, upstream, c, cfg.SingleFlight),
		gameLogs:    NewFetcher(gameLogs, upstream, c, cfg.SingleFlight),
	}
}

// FetchPlayerIndex returns every player for season. An empty season uses
// the configured default.
func (s *Service) FetchPlayerIndex(ctx context.Context, season string, opts Options) (*Result[models.PlayerIndexRow], error) {
	if season == "" {
		season = s.cfg.Season
	}
	return s.playerIndex.Fetch(ctx, season, opts)
}

// FetchPlayerGameLogs returns a player's game logs. Empty season fields use
// the configured defaults.
func (s *Service) FetchPlayerGameLogs(ctx context.Context, params GameLogParams, opts Options) (*Result[models.PlayerGameLogRow], error) {
	if params.PlayerID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPlayerID, params.PlayerID)
	}
	if params.Season == "" {
		params.Season = s.cfg.Season
	}
	if params.SeasonType == "" {
		params.SeasonType = s.cfg.SeasonType
	}
	return s.gameLogs.Fetch(ctx, params, opts)
}
