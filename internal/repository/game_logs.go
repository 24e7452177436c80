package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/metrics"
	"nbastats/ingestion/internal/models"
)

// DefaultGameLogLimit bounds ListByPlayer when no limit is given
const DefaultGameLogLimit = 10

// SummaryGameLogLimit is how many stored games a player summary covers
const SummaryGameLogLimit = 400

// GameLogRepository handles player game log database operations
type GameLogRepository struct {
	db *Database
}

// UpsertBatch writes every row in one transaction keyed on (player_id, game_id).
// Existing rows are fully replaced. Returns the keys in input order.
func (r *GameLogRepository) UpsertBatch(ctx context.Context, rows []models.PlayerGameLogRow) (keys []models.GameLogKey, err error) {
	if len(rows) == 0 {
		return []models.GameLogKey{}, nil
	}
	defer observe("upsert", "player_game_logs")(&err)

	query := `
		INSERT INTO player_game_logs (
			player_id, season_id, game_id, game_date, matchup, result, minutes,
			fgm, fga, fg_pct, fg3m, fg3a, three_pt_pct, ftm, fta, ft_pct,
			oreb, dreb, rebounds, assists, steals, blocks, turnovers,
			personal_fouls, points, plus_minus, video_available
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)
		ON CONFLICT (player_id, game_id) DO UPDATE SET
			season_id = EXCLUDED.season_id,
			game_date = EXCLUDED.game_date,
			matchup = EXCLUDED.matchup,
			result = EXCLUDED.result,
			minutes = EXCLUDED.minutes,
			fgm = EXCLUDED.fgm,
			fga = EXCLUDED.fga,
			fg_pct = EXCLUDED.fg_pct,
			fg3m = EXCLUDED.fg3m,
			fg3a = EXCLUDED.fg3a,
			three_pt_pct = EXCLUDED.three_pt_pct,
			ftm = EXCLUDED.ftm,
			fta = EXCLUDED.fta,
			ft_pct = EXCLUDED.ft_pct,
			oreb = EXCLUDED.oreb,
			dreb = EXCLUDED.dreb,
			rebounds = EXCLUDED.rebounds,
			assists = EXCLUDED.assists,
			steals = EXCLUDED.steals,
			blocks = EXCLUDED.blocks,
			turnovers = EXCLUDED.turnovers,
			personal_fouls = EXCLUDED.personal_fouls,
			points = EXCLUDED.points,
			plus_minus = EXCLUDED.plus_minus,
			video_available = EXCLUDED.video_available,
			updated_at = NOW()
	`

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin game log upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	keys = make([]models.GameLogKey, 0, len(rows))
	for i := range rows {
		g := rows[i].ToGameLog()
		batch.Queue(query,
			g.PlayerID, g.SeasonID, g.GameID, g.GameDate, g.Matchup, g.Result, g.Minutes,
			g.FGM, g.FGA, g.FGPct, g.FG3M, g.FG3A, g.ThreePtPct, g.FTM, g.FTA, g.FTPct,
			g.OffRebounds, g.DefRebounds, g.Rebounds, g.Assists, g.Steals, g.Blocks, g.Turnovers,
			g.PersonalFouls, g.Points, g.PlusMinus, g.VideoAvailable,
		)
		keys = append(keys, rows[i].Key())
	}

	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return nil, fmt.Errorf("failed to upsert game logs: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit game log upsert: %w", err)
	}

	metrics.RecordUpsert("player_game_logs", len(keys))
	log.Debug().Int("count", len(keys)).Msg("Game logs upserted")

	return keys, nil
}

// ListByPlayer returns a player's most recent games first. Game ids grow
// through a season, so they order more reliably than the display date.
func (r *GameLogRepository) ListByPlayer(ctx context.Context, playerID, limit int) ([]*models.GameLog, error) {
	if limit <= 0 {
		limit = DefaultGameLogLimit
	}

	query := `
		SELECT id, player_id, season_id, game_id, game_date, matchup, result, minutes,
		       fgm, fga, fg_pct, fg3m, fg3a, three_pt_pct, ftm, fta, ft_pct,
		       oreb, dreb, rebounds, assists, steals, blocks, turnovers,
		       personal_fouls, points, plus_minus, video_available, created_at, updated_at
		FROM player_game_logs
		WHERE player_id = $1
		ORDER BY season_id DESC, game_id DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list game logs: %w", err)
	}
	defer rows.Close()

	var logs []*models.GameLog
	for rows.Next() {
		var g models.GameLog
		err := rows.Scan(
			&g.ID, &g.PlayerID, &g.SeasonID, &g.GameID, &g.GameDate, &g.Matchup, &g.Result, &g.Minutes,
			&g.FGM, &g.FGA, &g.FGPct, &g.FG3M, &g.FG3A, &g.ThreePtPct, &g.FTM, &g.FTA, &g.FTPct,
			&g.OffRebounds, &g.DefRebounds, &g.Rebounds, &g.Assists, &g.Steals, &g.Blocks, &g.Turnovers,
			&g.PersonalFouls, &g.Points, &g.PlusMinus, &g.VideoAvailable, &g.CreatedAt, &g.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game log: %w", err)
		}
		logs = append(logs, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game logs: %w", err)
	}

	return logs, nil
}
