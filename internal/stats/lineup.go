package stats

import (
	"database/sql"

	"nbastats/ingestion/internal/models"
)

// StatLine is the set of stats shown for a lineup
type StatLine struct {
	FGPct       *float64 `json:"fgPct"`
	FTPct       *float64 `json:"ftPct"`
	ThreePtMade *float64 `json:"threePtMade"`
	Points      *float64 `json:"points"`
	Rebounds    *float64 `json:"rebounds"`
	Assists     *float64 `json:"assists"`
	Steals      *float64 `json:"steals"`
	Blocks      *float64 `json:"blocks"`
	Turnovers   *float64 `json:"turnovers"`
}

// MemberStats is one lineup member's per-game line
type MemberStats struct {
	Games int `json:"games"`
	StatLine
}

// LineupSummary combines member lines. Totals sum each member's per-game
// value, Averages divide those totals by the member count. Percentages are
// the mean across members that report one and appear in both.
type LineupSummary struct {
	Members  int      `json:"members"`
	Totals   StatLine `json:"totals"`
	Averages StatLine `json:"averages"`
}

var summedFields = []func(*StatLine) **float64{
	func(s *StatLine) **float64 { return &s.ThreePtMade },
	func(s *StatLine) **float64 { return &s.Points },
	func(s *StatLine) **float64 { return &s.Rebounds },
	func(s *StatLine) **float64 { return &s.Assists },
	func(s *StatLine) **float64 { return &s.Steals },
	func(s *StatLine) **float64 { return &s.Blocks },
	func(s *StatLine) **float64 { return &s.Turnovers },
}

var averagedFields = []func(*StatLine) **float64{
	func(s *StatLine) **float64 { return &s.FGPct },
	func(s *StatLine) **float64 { return &s.FTPct },
}

// SummarizeLineup aggregates member lines. A summed stat is nil only when no
// member reports it; otherwise missing member values count as zero.
func SummarizeLineup(members []MemberStats) LineupSummary {
	summary := LineupSummary{Members: len(members)}

	for _, field := range summedFields {
		var sum float64
		seen := false
		for i := range members {
			if v := *field(&members[i].StatLine); v != nil {
				sum += *v
				seen = true
			}
		}
		if !seen {
			continue
		}
		*field(&summary.Totals) = ptr(sum)
		*field(&summary.Averages) = ptr(sum / float64(len(members)))
	}

	for _, field := range averagedFields {
		var sum float64
		var n int
		for i := range members {
			if v := *field(&members[i].StatLine); v != nil {
				sum += *v
				n++
			}
		}
		if n == 0 {
			continue
		}
		*field(&summary.Totals) = ptr(sum / float64(n))
		*field(&summary.Averages) = ptr(sum / float64(n))
	}

	return summary
}

// MemberFromAverages converts per-game averages computed by the database
func MemberFromAverages(a models.MemberAverages) MemberStats {
	return MemberStats{
		Games: int(a.Games),
		StatLine: StatLine{
			FGPct:       nullable(a.FGPct),
			FTPct:       nullable(a.FTPct),
			ThreePtMade: nullable(a.ThreePtMade),
			Points:      nullable(a.Points),
			Rebounds:    nullable(a.Rebounds),
			Assists:     nullable(a.Assists),
			Steals:      nullable(a.Steals),
			Blocks:      nullable(a.Blocks),
			Turnovers:   nullable(a.Turnovers),
		},
	}
}

// MemberFromSummary converts a player summary into a lineup member line
func MemberFromSummary(s PlayerSummary) MemberStats {
	return MemberStats{
		Games: s.Games,
		StatLine: StatLine{
			FGPct:       s.FGPct,
			FTPct:       s.FTPct,
			ThreePtMade: s.PerGame.FG3M,
			Points:      s.PerGame.Points,
			Rebounds:    s.PerGame.Rebounds,
			Assists:     s.PerGame.Assists,
			Steals:      s.PerGame.Steals,
			Blocks:      s.PerGame.Blocks,
			Turnovers:   s.PerGame.Turnovers,
		},
	}
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return ptr(v.Float64)
}
