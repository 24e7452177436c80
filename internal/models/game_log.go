package models

import (
	"database/sql"
	"time"
)

// GameLog is one player's line for one game
type GameLog struct {
	ID             int64           `db:"id"`
	PlayerID       int             `db:"player_id"`
	SeasonID       string          `db:"season_id"`
	GameID         string          `db:"game_id"`
	GameDate       string          `db:"game_date"`
	Matchup        string          `db:"matchup"`
	Result         sql.NullString  `db:"result"` // W or L
	Minutes        sql.NullInt32   `db:"minutes"`
	FGM            sql.NullInt32   `db:"fgm"`
	FGA            sql.NullInt32   `db:"fga"`
	FGPct          sql.NullFloat64 `db:"fg_pct"`
	FG3M           sql.NullInt32   `db:"fg3m"`
	FG3A           sql.NullInt32   `db:"fg3a"`
	ThreePtPct     sql.NullFloat64 `db:"three_pt_pct"`
	FTM            sql.NullInt32   `db:"ftm"`
	FTA            sql.NullInt32   `db:"fta"`
	FTPct          sql.NullFloat64 `db:"ft_pct"`
	OffRebounds    sql.NullInt32   `db:"oreb"`
	DefRebounds    sql.NullInt32   `db:"dreb"`
	Rebounds       sql.NullInt32   `db:"rebounds"`
	Assists        sql.NullInt32   `db:"assists"`
	Steals         sql.NullInt32   `db:"steals"`
	Blocks         sql.NullInt32   `db:"blocks"`
	Turnovers      sql.NullInt32   `db:"turnovers"`
	PersonalFouls  sql.NullInt32   `db:"personal_fouls"`
	Points         sql.NullInt32   `db:"points"`
	PlusMinus      sql.NullInt32   `db:"plus_minus"`
	VideoAvailable sql.NullInt32   `db:"video_available"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// GameLogKey identifies a game log row
type GameLogKey struct {
	PlayerID int    `json:"playerId"`
	GameID   string `json:"gameId"`
}

// PlayerGameLogRow is one validated row of the PlayerGameLog result set
type PlayerGameLogRow struct {
	SeasonID       string   `json:"SEASON_ID" validate:"required"`
	PlayerID       int      `json:"PLAYER_ID" validate:"required,gt=0"`
	GameID         string   `json:"GAME_ID" validate:"required"`
	GameDate       string   `json:"GAME_DATE"`
	Matchup        string   `json:"MATCHUP"`
	WL             *string  `json:"WL" validate:"omitempty,oneof=W L"`
	Minutes        *int     `json:"MIN"`
	FGM            *int     `json:"FGM"`
	FGA            *int     `json:"FGA"`
	FGPct          *float64 `json:"FG_PCT" validate:"omitempty,gte=0,lte=1"`
	FG3M           *int     `json:"FG3M"`
	FG3A           *int     `json:"FG3A"`
	FG3Pct         *float64 `json:"FG3_PCT" validate:"omitempty,gte=0,lte=1"`
	FTM            *int     `json:"FTM"`
	FTA            *int     `json:"FTA"`
	FTPct          *float64 `json:"FT_PCT" validate:"omitempty,gte=0,lte=1"`
	OREB           *int     `json:"OREB"`
	DREB           *int     `json:"DREB"`
	REB            *int     `json:"REB"`
	AST            *int     `json:"AST"`
	STL            *int     `json:"STL"`
	BLK            *int     `json:"BLK"`
	TOV            *int     `json:"TOV"`
	PF             *int     `json:"PF"`
	PTS            *int     `json:"PTS"`
	PlusMinus      *int     `json:"PLUS_MINUS"`
	VideoAvailable *int     `json:"VIDEO_AVAILABLE"`
}

// Key returns the natural key of the row
func (r *PlayerGameLogRow) Key() GameLogKey {
	return GameLogKey{PlayerID: r.PlayerID, GameID: r.GameID}
}

// ToGameLog converts a PlayerGameLogRow (from API) to GameLog model
func (r *PlayerGameLogRow) ToGameLog() *GameLog {
	return &GameLog{
		PlayerID:       r.PlayerID,
		SeasonID:       r.SeasonID,
		GameID:         r.GameID,
		GameDate:       r.GameDate,
		Matchup:        r.Matchup,
		Result:         NullString(r.WL),
		Minutes:        NullInt32(r.Minutes),
		FGM:            NullInt32(r.FGM),
		FGA:            NullInt32(r.FGA),
		FGPct:          NullFloat64(r.FGPct),
		FG3M:           NullInt32(r.FG3M),
		FG3A:           NullInt32(r.FG3A),
		ThreePtPct:     NullFloat64(r.FG3Pct),
		FTM:            NullInt32(r.FTM),
		FTA:            NullInt32(r.FTA),
		FTPct:          NullFloat64(r.FTPct),
		OffRebounds:    NullInt32(r.OREB),
		DefRebounds:    NullInt32(r.DREB),
		Rebounds:       NullInt32(r.REB),
		Assists:        NullInt32(r.AST),
		Steals:         NullInt32(r.STL),
		Blocks:         NullInt32(r.BLK),
		Turnovers:      NullInt32(r.TOV),
		PersonalFouls:  NullInt32(r.PF),
		Points:         NullInt32(r.PTS),
		PlusMinus:      NullInt32(r.PlusMinus),
		VideoAvailable: NullInt32(r.VideoAvailable),
	}
}
