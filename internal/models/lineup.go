package models

import (
	"database/sql"
	"time"
)

// DefaultLineupName is used when a lineup is created with a blank name
const DefaultLineupName = "My lineup"

// Lineup is a named, user-curated set of players
type Lineup struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// LineupPlayer is a membership row. (LineupID, PlayerID) is unique.
type LineupPlayer struct {
	ID              int64     `db:"id" json:"id"`
	LineupID        int64     `db:"lineup_id" json:"lineupId"`
	PlayerID        int       `db:"player_id" json:"playerId"`
	CustomPositions []string  `db:"custom_positions" json:"customPositions"` // nil means unset
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
}

// MemberAverages is the per-game average of a lineup member's stored game logs.
// Averages are null when the player has no logged value for the column.
type MemberAverages struct {
	Games       int64
	FGPct       sql.NullFloat64
	FTPct       sql.NullFloat64
	ThreePtMade sql.NullFloat64
	Points      sql.NullFloat64
	Rebounds    sql.NullFloat64
	Assists     sql.NullFloat64
	Steals      sql.NullFloat64
	Blocks      sql.NullFloat64
	Turnovers   sql.NullFloat64
}

// LineupEntry joins a membership row with its player and their averages
type LineupEntry struct {
	LineupPlayer LineupPlayer
	Player       Player
	Averages     MemberAverages
}
