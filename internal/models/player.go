package models

import (
	"database/sql"
	"time"
)

// Player represents an NBA player from the player index
type Player struct {
	ID             int             `db:"id"` // PERSON_ID upstream
	FirstName      string          `db:"first_name"`
	LastName       string          `db:"last_name"`
	Slug           string          `db:"slug"`
	TeamID         sql.NullInt32   `db:"team_id"`
	TeamSlug       sql.NullString  `db:"team_slug"`
	TeamCity       sql.NullString  `db:"team_city"`
	TeamName       sql.NullString  `db:"team_name"`
	TeamAbbrev     sql.NullString  `db:"team_abbreviation"`
	JerseyNumber   sql.NullString  `db:"jersey_number"`
	Position       sql.NullString  `db:"position"`
	Height         sql.NullString  `db:"height"`
	Weight         sql.NullString  `db:"weight"`
	College        sql.NullString  `db:"college"`
	Country        sql.NullString  `db:"country"`
	RosterStatus   sql.NullString  `db:"roster_status"`
	FromYear       sql.NullString  `db:"from_year"`
	ToYear         sql.NullString  `db:"to_year"`
	Points         sql.NullFloat64 `db:"points"`
	Rebounds       sql.NullFloat64 `db:"rebounds"`
	Assists        sql.NullFloat64 `db:"assists"`
	StatsTimeframe sql.NullString  `db:"stats_timeframe"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

// FullName returns "First Last"
func (p *Player) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	return p.FirstName + " " + p.LastName
}

// PlayerIndexRow is one validated row of the PlayerIndex result set.
// Field names match the upstream headers after uppercasing. Only the person
// id is required; name and slug may be empty.
type PlayerIndexRow struct {
	PersonID       int      `json:"PERSON_ID" validate:"required,gt=0"`
	LastName       string   `json:"PLAYER_LAST_NAME"`
	FirstName      string   `json:"PLAYER_FIRST_NAME"`
	Slug           string   `json:"PLAYER_SLUG"`
	TeamID         *int     `json:"TEAM_ID"`
	TeamSlug       *string  `json:"TEAM_SLUG"`
	TeamCity       *string  `json:"TEAM_CITY"`
	TeamName       *string  `json:"TEAM_NAME"`
	TeamAbbrev     *string  `json:"TEAM_ABBREVIATION"`
	JerseyNumber   *string  `json:"JERSEY_NUMBER"`
	Position       *string  `json:"POSITION"`
	Height         *string  `json:"HEIGHT"`
	Weight         *string  `json:"WEIGHT"`
	College        *string  `json:"COLLEGE"`
	Country        *string  `json:"COUNTRY"`
	RosterStatus   *string  `json:"ROSTER_STATUS"`
	FromYear       *string  `json:"FROM_YEAR"`
	ToYear         *string  `json:"TO_YEAR"`
	Points         *float64 `json:"PTS"`
	Rebounds       *float64 `json:"REB"`
	Assists        *float64 `json:"AST"`
	StatsTimeframe *string  `json:"STATS_TIMEFRAME"`
}

// ToPlayer converts a PlayerIndexRow (from API) to Player model
func (r *PlayerIndexRow) ToPlayer() *Player {
	return &Player{
		ID:             r.PersonID,
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Slug:           r.Slug,
		TeamID:         NullInt32(r.TeamID),
		TeamSlug:       NullString(r.TeamSlug),
		TeamCity:       NullString(r.TeamCity),
		TeamName:       NullString(r.TeamName),
		TeamAbbrev:     NullString(r.TeamAbbrev),
		JerseyNumber:   NullString(r.JerseyNumber),
		Position:       NullString(r.Position),
		Height:         NullString(r.Height),
		Weight:         NullString(r.Weight),
		College:        NullString(r.College),
		Country:        NullString(r.Country),
		RosterStatus:   NullString(r.RosterStatus),
		FromYear:       NullString(r.FromYear),
		ToYear:         NullString(r.ToYear),
		Points:         NullFloat64(r.Points),
		Rebounds:       NullFloat64(r.Rebounds),
		Assists:        NullFloat64(r.Assists),
		StatsTimeframe: NullString(r.StatsTimeframe),
	}
}

// PlayerPage is one page of a player search
type PlayerPage struct {
	Players    []*Player
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}
