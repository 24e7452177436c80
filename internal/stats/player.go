// Package stats aggregates stored game logs into player and lineup summaries.
//
// A stat with no contributing observation is nil, not zero.
package stats

import (
	"database/sql"

	"nbastats/ingestion/internal/models"
)

// CountingStats holds one value per counting stat
type CountingStats struct {
	Minutes       *float64 `json:"minutes"`
	Points        *float64 `json:"points"`
	Rebounds      *float64 `json:"rebounds"`
	OffRebounds   *float64 `json:"offRebounds"`
	DefRebounds   *float64 `json:"defRebounds"`
	Assists       *float64 `json:"assists"`
	Steals        *float64 `json:"steals"`
	Blocks        *float64 `json:"blocks"`
	Turnovers     *float64 `json:"turnovers"`
	PersonalFouls *float64 `json:"personalFouls"`
	FGM           *float64 `json:"fgm"`
	FGA           *float64 `json:"fga"`
	FG3M          *float64 `json:"fg3m"`
	FG3A          *float64 `json:"fg3a"`
	FTM           *float64 `json:"ftm"`
	FTA           *float64 `json:"fta"`
	PlusMinus     *float64 `json:"plusMinus"`
}

// PlayerSummary aggregates a set of game logs
type PlayerSummary struct {
	Games      int           `json:"games"`
	Wins       int           `json:"wins"`
	Losses     int           `json:"losses"`
	Totals     CountingStats `json:"totals"`
	PerGame    CountingStats `json:"perGame"`
	FGPct      *float64      `json:"fgPct"`
	FTPct      *float64      `json:"ftPct"`
	ThreePtPct *float64      `json:"threePtPct"`
}

type countingField struct {
	get func(*models.GameLog) sql.NullInt32
	out func(*CountingStats) **float64
}

var countingFields = []countingField{
	{func(g *models.GameLog) sql.NullInt32 { return g.Minutes }, func(c *CountingStats) **float64 { return &c.Minutes }},
	{func(g *models.GameLog) sql.NullInt32 { return g.Points }, func(c *CountingStats) **float64 { return &c.Points }},
	{func(g *models.GameLog) sql.NullInt32 { return g.Rebounds }, func(c *CountingStats) **float64 { return &c.Rebounds }},
	{func(g *models.GameLog) sql.NullInt32 { return g.OffRebounds }, func(c *CountingStats) **float64 { return &c.OffRebounds }},
	{func(g *models.GameLog) sql.NullInt32 { return g.DefRebounds }, func(c *CountingStats) **float64 { return &c.DefRebounds }},
	{func(g *models.GameLog) sql.NullInt32 { return g.Assists }, func(c *CountingStats) **float64 { return &c.Assists }},
	{func(g *models.GameLog) sql.NullInt32 { return g.Steals }, func(c *CountingStats) **float64 { return &c.Steals }},
	{func(g *models.GameLog) sql.NullInt32 { return g.Blocks }, func(c *CountingStats) **float64 { return &c.Blocks }},
	{func(g *models.GameLog) sql.NullInt32 { return g.Turnovers }, func(c *CountingStats) **float64 { return &c.Turnovers }},
	{func(g *models.GameLog) sql.NullInt32 { return g.PersonalFouls }, func(c *CountingStats) **float64 { return &c.PersonalFouls }},
	{func(g *models.GameLog) sql.NullInt32 { return g.FGM }, func(c *CountingStats) **float64 { return &c.FGM }},
	{func(g *models.GameLog) sql.NullInt32 { return g.FGA }, func(c *CountingStats) **float64 { return &c.FGA }},
	{func(g *models.GameLog) sql.NullInt32 { return g.FG3M }, func(c *CountingStats) **float64 { return &c.FG3M }},
	{func(g *models.GameLog) sql.NullInt32 { return g.FG3A }, func(c *CountingStats) **float64 { return &c.FG3A }},
	{func(g *models.GameLog) sql.NullInt32 { return g.FTM }, func(c *CountingStats) **float64 { return &c.FTM }},
	{func(g *models.GameLog) sql.NullInt32 { return g.FTA }, func(c *CountingStats) **float64 { return &c.FTA }},
	{func(g *models.GameLog) sql.NullInt32 { return g.PlusMinus }, func(c *CountingStats) **float64 { return &c.PlusMinus }},
}

// SummarizePlayer totals counting stats over logs and divides by the game
// count for per-game values. Shooting percentages are the plain mean of the
// per-game percentages that were reported.
func SummarizePlayer(logs []*models.GameLog) PlayerSummary {
	summary := PlayerSummary{Games: len(logs)}

	for _, g := range logs {
		if !g.Result.Valid {
			continue
		}
		switch g.Result.String {
		case "W":
			summary.Wins++
		case "L":
			summary.Losses++
		}
	}

	for _, field := range countingFields {
		var sum float64
		seen := false
		for _, g := range logs {
			if v := field.get(g); v.Valid {
				sum += float64(v.Int32)
				seen = true
			}
		}
		if !seen {
			continue
		}
		*field.out(&summary.Totals) = ptr(sum)
		*field.out(&summary.PerGame) = ptr(sum / float64(summary.Games))
	}

	summary.FGPct = meanFloat(logs, func(g *models.GameLog) sql.NullFloat64 { return g.FGPct })
	summary.FTPct = meanFloat(logs, func(g *models.GameLog) sql.NullFloat64 { return g.FTPct })
	summary.ThreePtPct = meanFloat(logs, func(g *models.GameLog) sql.NullFloat64 { return g.ThreePtPct })

	return summary
}

func meanFloat(logs []*models.GameLog, get func(*models.GameLog) sql.NullFloat64) *float64 {
	var sum float64
	var n int
	for _, g := range logs {
		if v := get(g); v.Valid {
			sum += v.Float64
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return ptr(sum / float64(n))
}

func ptr(v float64) *float64 {
	return &v
}
