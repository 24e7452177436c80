package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/models"
)

// LineupRepository handles lineup and membership database operations
type LineupRepository struct {
	db *Database
}

// List returns every lineup, oldest first
func (r *LineupRepository) List(ctx context.Context) ([]*models.Lineup, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT id, name, created_at FROM lineups ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list lineups: %w", err)
	}
	defer rows.Close()

	var lineups []*models.Lineup
	for rows.Next() {
		var l models.Lineup
		if err := rows.Scan(&l.ID, &l.Name, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan lineup: %w", err)
		}
		lineups = append(lineups, &l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lineups: %w", err)
	}

	return lineups, nil
}

// Get retrieves a lineup by id
func (r *LineupRepository) Get(ctx context.Context, id int64) (*models.Lineup, error) {
	var l models.Lineup
	err := r.db.Pool.QueryRow(ctx,
		`SELECT id, name, created_at FROM lineups WHERE id = $1`, id,
	).Scan(&l.ID, &l.Name, &l.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("lineup not found: id=%d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lineup: %w", err)
	}

	return &l, nil
}

// Create returns the lineup with the trimmed name, creating it when it does
// not exist yet. A blank name becomes models.DefaultLineupName.
func (r *LineupRepository) Create(ctx context.Context, name string) (*models.Lineup, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = models.DefaultLineupName
	}

	var l models.Lineup
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO lineups (name) VALUES ($1)
		ON CONFLICT (name) DO NOTHING
		RETURNING id, name, created_at
	`, name).Scan(&l.ID, &l.Name, &l.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		err = r.db.Pool.QueryRow(ctx,
			`SELECT id, name, created_at FROM lineups WHERE name = $1`, name,
		).Scan(&l.ID, &l.Name, &l.CreatedAt)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create lineup: %w", err)
	}

	log.Debug().Int64("id", l.ID).Str("name", l.Name).Msg("Lineup ready")
	return &l, nil
}

// AddPlayer adds a player to a lineup. Adding an existing member is a no-op.
func (r *LineupRepository) AddPlayer(ctx context.Context, lineupID int64, playerID int) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO lineup_players (lineup_id, player_id) VALUES ($1, $2)
		ON CONFLICT (lineup_id, player_id) DO NOTHING
	`, lineupID, playerID)
	if err != nil {
		return fmt.Errorf("failed to add player %d to lineup %d: %w", playerID, lineupID, err)
	}
	return nil
}

// RemovePlayer removes a player from a lineup
func (r *LineupRepository) RemovePlayer(ctx context.Context, lineupID int64, playerID int) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM lineup_players WHERE lineup_id = $1 AND player_id = $2`, lineupID, playerID)
	if err != nil {
		return fmt.Errorf("failed to remove player %d from lineup %d: %w", playerID, lineupID, err)
	}
	return nil
}

// UpdatePositions replaces a member's custom positions. nil clears them.
func (r *LineupRepository) UpdatePositions(ctx context.Context, lineupID, lineupPlayerID int64, positions []string) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE lineup_players SET custom_positions = $1 WHERE id = $2 AND lineup_id = $3`,
		positions, lineupPlayerID, lineupID)
	if err != nil {
		return fmt.Errorf("failed to update positions: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lineup player not found: id=%d lineup=%d: %w", lineupPlayerID, lineupID, ErrNotFound)
	}
	return nil
}

// ListWithStats returns each member of a lineup joined with its player and
// the per-game averages of that player's stored game logs.
func (r *LineupRepository) ListWithStats(ctx context.Context, lineupID int64) ([]*models.LineupEntry, error) {
	query := `
		SELECT lp.id, lp.lineup_id, lp.player_id, lp.custom_positions, lp.created_at,
		       p.id, p.first_name, p.last_name, p.slug, p.team_id, p.team_slug, p.team_city, p.team_name,
		       p.team_abbreviation, p.jersey_number, p.position, p.height, p.weight, p.college, p.country,
		       p.roster_status, p.from_year, p.to_year, p.points, p.rebounds, p.assists, p.stats_timeframe,
		       p.created_at, p.updated_at,
		       COUNT(g.id),
		       AVG(g.fg_pct)::float8,
		       AVG(g.ft_pct)::float8,
		       AVG(g.fg3m)::float8,
		       AVG(g.points)::float8,
		       AVG(g.rebounds)::float8,
		       AVG(g.assists)::float8,
		       AVG(g.steals)::float8,
		       AVG(g.blocks)::float8,
		       AVG(g.turnovers)::float8
		FROM lineup_players lp
		JOIN players p ON p.id = lp.player_id
		LEFT JOIN player_game_logs g ON g.player_id = p.id
		WHERE lp.lineup_id = $1
		GROUP BY lp.id, p.id
		ORDER BY lp.created_at, lp.id
	`

	rows, err := r.db.Pool.Query(ctx, query, lineupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list lineup stats: %w", err)
	}
	defer rows.Close()

	var entries []*models.LineupEntry
	for rows.Next() {
		var (
			e  models.LineupEntry
			lp = &e.LineupPlayer
			p  = &e.Player
			a  = &e.Averages
		)
		err := rows.Scan(
			&lp.ID, &lp.LineupID, &lp.PlayerID, &lp.CustomPositions, &lp.CreatedAt,
			&p.ID, &p.FirstName, &p.LastName, &p.Slug, &p.TeamID, &p.TeamSlug, &p.TeamCity, &p.TeamName,
			&p.TeamAbbrev, &p.JerseyNumber, &p.Position, &p.Height, &p.Weight, &p.College, &p.Country,
			&p.RosterStatus, &p.FromYear, &p.ToYear, &p.Points, &p.Rebounds, &p.Assists, &p.StatsTimeframe,
			&p.CreatedAt, &p.UpdatedAt,
			&a.Games, &a.FGPct, &a.FTPct, &a.ThreePtMade, &a.Points, &a.Rebounds,
			&a.Assists, &a.Steals, &a.Blocks, &a.Turnovers,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lineup entry: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lineup entries: %w", err)
	}

	return entries, nil
}
