package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/metrics"
	"nbastats/ingestion/internal/models"
)

// DefaultPageSize is used when a search does not specify one
const DefaultPageSize = 25

const playerColumns = `
	id, first_name, last_name, slug, team_id, team_slug, team_city, team_name,
	team_abbreviation, jersey_number, position, height, weight, college, country,
	roster_status, from_year, to_year, points, rebounds, assists, stats_timeframe,
	created_at, updated_at
`

// PlayerRepository handles player database operations
type PlayerRepository struct {
	db *Database
}

// UpsertBatch writes every row in one transaction. An existing player is
// fully replaced by the incoming row, including columns that are now null.
// Returns the player ids in input order. Empty input does nothing.
func (r *PlayerRepository) UpsertBatch(ctx context.Context, rows []models.PlayerIndexRow) (ids []int, err error) {
	if len(rows) == 0 {
		return []int{}, nil
	}
	defer observe("upsert", "players")(&err)

	query := `
		INSERT INTO players (
			id, first_name, last_name, slug, team_id, team_slug, team_city, team_name,
			team_abbreviation, jersey_number, position, height, weight, college, country,
			roster_status, from_year, to_year, points, rebounds, assists, stats_timeframe
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			slug = EXCLUDED.slug,
			team_id = EXCLUDED.team_id,
			team_slug = EXCLUDED.team_slug,
			team_city = EXCLUDED.team_city,
			team_name = EXCLUDED.team_name,
			team_abbreviation = EXCLUDED.team_abbreviation,
			jersey_number = EXCLUDED.jersey_number,
			position = EXCLUDED.position,
			height = EXCLUDED.height,
			weight = EXCLUDED.weight,
			college = EXCLUDED.college,
			country = EXCLUDED.country,
			roster_status = EXCLUDED.roster_status,
			from_year = EXCLUDED.from_year,
			to_year = EXCLUDED.to_year,
			points = EXCLUDED.points,
			rebounds = EXCLUDED.rebounds,
			assists = EXCLUDED.assists,
			stats_timeframe = EXCLUDED.stats_timeframe,
			updated_at = NOW()
	`

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin player upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	ids = make([]int, 0, len(rows))
	for i := range rows {
		p := rows[i].ToPlayer()
		batch.Queue(query,
			p.ID, p.FirstName, p.LastName, p.Slug, p.TeamID, p.TeamSlug, p.TeamCity, p.TeamName,
			p.TeamAbbrev, p.JerseyNumber, p.Position, p.Height, p.Weight, p.College, p.Country,
			p.RosterStatus, p.FromYear, p.ToYear, p.Points, p.Rebounds, p.Assists, p.StatsTimeframe,
		)
		ids = append(ids, p.ID)
	}

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("failed to upsert players: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit player upsert: %w", err)
	}

	metrics.RecordUpsert("players", len(ids))
	log.Debug().Int("count", len(ids)).Msg("Players upserted")

	return ids, nil
}

// GetByID retrieves a player by PERSON_ID
func (r *PlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	player, err := scanPlayer(r.db.Pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player not found: id=%d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return player, nil
}

// Search pages through players matching every whitespace-separated term
// against first name, last name or slug. The requested page is clamped to
// the available range.
func (r *PlayerRepository) Search(ctx context.Context, query string, page, pageSize int) (*models.PlayerPage, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	where, args := searchFilter(query)

	var total int
	countQuery := `SELECT COUNT(*) FROM players` + where
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count players: %w", err)
	}

	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	listQuery := fmt.Sprintf(`
		SELECT %s FROM players%s
		ORDER BY last_name, first_name, id
		LIMIT $%d OFFSET $%d
	`, playerColumns, where, len(args)+1, len(args)+2)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search players: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0, pageSize)
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return &models.PlayerPage{
		Players:    players,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// Count returns the number of stored players
func (r *PlayerRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM players`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count players: %w", err)
	}
	return n, nil
}

func searchFilter(query string) (string, []any) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(terms))
	args := make([]any, 0, len(terms))
	for i, term := range terms {
		n := i + 1
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(first_name) LIKE $%d OR LOWER(last_name) LIKE $%d OR LOWER(slug) LIKE $%d)", n, n, n))
		args = append(args, "%"+escapeLike(term)+"%")
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Slug, &p.TeamID, &p.TeamSlug, &p.TeamCity, &p.TeamName,
		&p.TeamAbbrev, &p.JerseyNumber, &p.Position, &p.Height, &p.Weight, &p.College, &p.Country,
		&p.RosterStatus, &p.FromYear, &p.ToYear, &p.Points, &p.Rebounds, &p.Assists, &p.StatsTimeframe,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
