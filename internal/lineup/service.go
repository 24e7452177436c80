// Package lineup manages user lineups and summarizes their members' stats.
package lineup

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/ingest"
	"nbastats/ingestion/internal/models"
	"nbastats/ingestion/internal/stats"
)

// ErrInvalidID is returned for non-positive lineup, player or membership ids
var ErrInvalidID = errors.New("id must be positive")

// Store is the lineup persistence the service needs
type Store interface {
	List(ctx context.Context) ([]*models.Lineup, error)
	Get(ctx context.Context, id int64) (*models.Lineup, error)
	Create(ctx context.Context, name string) (*models.Lineup, error)
	AddPlayer(ctx context.Context, lineupID int64, playerID int) error
	RemovePlayer(ctx context.Context, lineupID int64, playerID int) error
	UpdatePositions(ctx context.Context, lineupID, lineupPlayerID int64, positions []string) error
	ListWithStats(ctx context.Context, lineupID int64) ([]*models.LineupEntry, error)
}

// Ingester loads upstream data for a player before it joins a lineup
type Ingester interface {
	FetchPlayerIndex(ctx context.Context, season string, opts ingest.Options) (*ingest.Result[models.PlayerIndexRow], error)
	FetchPlayerGameLogs(ctx context.Context, params ingest.GameLogParams, opts ingest.Options) (*ingest.Result[models.PlayerGameLogRow], error)
}

// Member is a lineup entry as presented to callers
type Member struct {
	LineupPlayerID  int64             `json:"lineupPlayerId"`
	PlayerID        int               `json:"playerId"`
	Name            string            `json:"name"`
	Team            string            `json:"team,omitempty"`
	ListedPosition  string            `json:"listedPosition,omitempty"`
	CustomPositions []string          `json:"customPositions"`
	Positions       []string          `json:"positions"`
	Stats           stats.MemberStats `json:"stats"`
}

// Detail is a lineup with its members and their combined stats
type Detail struct {
	Lineup  *models.Lineup      `json:"lineup"`
	Members []Member            `json:"members"`
	Summary stats.LineupSummary `json:"summary"`
}

// Service coordinates lineup storage and ingestion
type Service struct {
	store    Store
	ingester Ingester
}

// NewService creates a lineup service
func NewService(store Store, ingester Ingester) *Service {
	return &Service{store: store, ingester: ingester}
}

// Create makes a lineup, returning the existing one when the name is taken
func (s *Service) Create(ctx context.Context, name string) (*models.Lineup, error) {
	return s.store.Create(ctx, name)
}

// List returns every lineup
func (s *Service) List(ctx context.Context) ([]*models.Lineup, error) {
	return s.store.List(ctx)
}

// AddPlayer ingests the player's index entry and game logs, then adds them
// to the lineup. Adding an existing member is a no-op.
func (s *Service) AddPlayer(ctx context.Context, lineupID int64, playerID int) error {
	if lineupID <= 0 || playerID <= 0 {
		return fmt.Errorf("%w: lineup=%d player=%d", ErrInvalidID, lineupID, playerID)
	}
	if _, err := s.store.Get(ctx, lineupID); err != nil {
		return err
	}

	if _, err := s.ingester.FetchPlayerIndex(ctx, "", ingest.Options{PersistToDB: true}); err != nil {
		return fmt.Errorf("failed to load player index: %w", err)
	}
	logs, err := s.ingester.FetchPlayerGameLogs(ctx, ingest.GameLogParams{PlayerID: playerID}, ingest.Options{PersistToDB: true})
	if err != nil {
		return fmt.Errorf("failed to load game logs for player %d: %w", playerID, err)
	}

	if err := s.store.AddPlayer(ctx, lineupID, playerID); err != nil {
		return err
	}

	log.Info().
		Int64("lineup_id", lineupID).
		Int("player_id", playerID).
		Int("game_logs", len(logs.Records)).
		Msg("Player added to lineup")
	return nil
}

// RemovePlayer removes a player from a lineup
func (s *Service) RemovePlayer(ctx context.Context, lineupID int64, playerID int) error {
	if lineupID <= 0 || playerID <= 0 {
		return fmt.Errorf("%w: lineup=%d player=%d", ErrInvalidID, lineupID, playerID)
	}
	return s.store.RemovePlayer(ctx, lineupID, playerID)
}

// UpdatePositions sets a member's custom positions. Values outside the known
// positions are dropped; an empty result clears the override.
func (s *Service) UpdatePositions(ctx context.Context, lineupID, lineupPlayerID int64, positions []string) ([]string, error) {
	if lineupID <= 0 || lineupPlayerID <= 0 {
		return nil, fmt.Errorf("%w: lineup=%d member=%d", ErrInvalidID, lineupID, lineupPlayerID)
	}

	normalized := NormalizePositions(positions)
	var stored []string
	if len(normalized) > 0 {
		stored = normalized
	}

	if err := s.store.UpdatePositions(ctx, lineupID, lineupPlayerID, stored); err != nil {
		return nil, err
	}
	return normalized, nil
}

// Detail returns a lineup's members with resolved positions and a summary
func (s *Service) Detail(ctx context.Context, lineupID int64) (*Detail, error) {
	if lineupID <= 0 {
		return nil, fmt.Errorf("%w: lineup=%d", ErrInvalidID, lineupID)
	}

	l, err := s.store.Get(ctx, lineupID)
	if err != nil {
		return nil, err
	}

	entries, err := s.store.ListWithStats(ctx, lineupID)
	if err != nil {
		return nil, err
	}

	detail := &Detail{Lineup: l, Members: make([]Member, 0, len(entries))}
	memberStats := make([]stats.MemberStats, 0, len(entries))
	for _, e := range entries {
		m := toMember(e)
		detail.Members = append(detail.Members, m)
		memberStats = append(memberStats, m.Stats)
	}
	detail.Summary = stats.SummarizeLineup(memberStats)

	return detail, nil
}

// Compare summarizes every lineup
func (s *Service) Compare(ctx context.Context) ([]*Detail, error) {
	lineups, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]*Detail, 0, len(lineups))
	for _, l := range lineups {
		d, err := s.Detail(ctx, l.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to summarize lineup %d: %w", l.ID, err)
		}
		details = append(details, d)
	}
	return details, nil
}

func toMember(e *models.LineupEntry) Member {
	custom := e.LineupPlayer.CustomPositions
	if custom == nil {
		custom = []string{}
	}
	return Member{
		LineupPlayerID:  e.LineupPlayer.ID,
		PlayerID:        e.LineupPlayer.PlayerID,
		Name:            e.Player.FullName(),
		Team:            e.Player.TeamAbbrev.String,
		ListedPosition:  e.Player.Position.String,
		CustomPositions: custom,
		Positions:       ResolvePositions(e.LineupPlayer.CustomPositions, e.Player.Position.String),
		Stats:           stats.MemberFromAverages(e.Averages),
	}
}
