package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"nbastats/ingestion/internal/ingest"
	"nbastats/ingestion/internal/lineup"
	"nbastats/ingestion/internal/models"
	"nbastats/ingestion/internal/repository"
	"nbastats/ingestion/internal/stats"
)

type playerHandler struct {
	players  PlayerReader
	gameLogs GameLogReader
	ingester lineup.Ingester
}

type playerResponse struct {
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Slug      string   `json:"slug"`
	Team      string   `json:"team,omitempty"`
	TeamID    *int32   `json:"teamId,omitempty"`
	Jersey    string   `json:"jersey,omitempty"`
	Position  string   `json:"position,omitempty"`
	Positions []string `json:"positions"`
	Height    string   `json:"height,omitempty"`
	Weight    string   `json:"weight,omitempty"`
	College   string   `json:"college,omitempty"`
	Country   string   `json:"country,omitempty"`
	Points    *float64 `json:"points"`
	Rebounds  *float64 `json:"rebounds"`
	Assists   *float64 `json:"assists"`
}

type gameLogResponse struct {
	GameID    string   `json:"gameId"`
	GameDate  string   `json:"gameDate"`
	Matchup   string   `json:"matchup"`
	Result    string   `json:"result,omitempty"`
	Minutes   *int32   `json:"minutes"`
	Points    *int32   `json:"points"`
	Rebounds  *int32   `json:"rebounds"`
	Assists   *int32   `json:"assists"`
	Steals    *int32   `json:"steals"`
	Blocks    *int32   `json:"blocks"`
	Turnovers *int32   `json:"turnovers"`
	FGPct     *float64 `json:"fgPct"`
	FTPct     *float64 `json:"ftPct"`
	FG3M      *int32   `json:"fg3m"`
}

type playerDetailResponse struct {
	Player      playerResponse      `json:"player"`
	Summary     stats.PlayerSummary `json:"summary"`
	RecentGames []gameLogResponse   `json:"recentGames"`
	FromCache   bool                `json:"fromCache"`
	FetchedAt   int64               `json:"fetchedAt"`
}

// GET /api/players?q=&page=&page_size=
func (h *playerHandler) Search(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(repository.DefaultPageSize)))

	result, err := h.players.Search(c.Request.Context(), c.Query("q"), page, pageSize)
	if err != nil {
		failure(c, err)
		return
	}

	players := make([]playerResponse, 0, len(result.Players))
	for _, p := range result.Players {
		players = append(players, toPlayerResponse(p))
	}

	successWithMeta(c, http.StatusOK, players, &Meta{
		Page:       result.Page,
		PerPage:    result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}

// GET /api/players/:id
func (h *playerHandler) Get(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		failure(c, badRequest("player id must be a positive integer"))
		return
	}
	ctx := c.Request.Context()

	if _, err := h.ingester.FetchPlayerIndex(ctx, "", ingest.Options{PersistToDB: true}); err != nil {
		failure(c, err)
		return
	}

	player, err := h.players.GetByID(ctx, id)
	if err != nil {
		failure(c, err)
		return
	}

	fetched, err := h.ingester.FetchPlayerGameLogs(ctx, ingest.GameLogParams{PlayerID: id}, ingest.Options{PersistToDB: true})
	if err != nil {
		failure(c, err)
		return
	}

	stored, err := h.gameLogs.ListByPlayer(ctx, id, repository.SummaryGameLogLimit)
	if err != nil {
		failure(c, err)
		return
	}

	recent := stored
	if len(recent) > repository.DefaultGameLogLimit {
		recent = recent[:repository.DefaultGameLogLimit]
	}
	recentGames := make([]gameLogResponse, 0, len(recent))
	for _, g := range recent {
		recentGames = append(recentGames, toGameLogResponse(g))
	}

	success(c, http.StatusOK, playerDetailResponse{
		Player:      toPlayerResponse(player),
		Summary:     stats.SummarizePlayer(stored),
		RecentGames: recentGames,
		FromCache:   fetched.FromCache,
		FetchedAt:   fetched.FetchedAt,
	})
}

func toPlayerResponse(p *models.Player) playerResponse {
	resp := playerResponse{
		ID:        p.ID,
		Name:      p.FullName(),
		Slug:      p.Slug,
		Team:      p.TeamAbbrev.String,
		Jersey:    p.JerseyNumber.String,
		Position:  p.Position.String,
		Positions: lineup.InferPositions(p.Position.String),
		Height:    p.Height.String,
		Weight:    p.Weight.String,
		College:   p.College.String,
		Country:   p.Country.String,
	}
	if p.TeamID.Valid {
		resp.TeamID = &p.TeamID.Int32
	}
	if p.Points.Valid {
		resp.Points = &p.Points.Float64
	}
	if p.Rebounds.Valid {
		resp.Rebounds = &p.Rebounds.Float64
	}
	if p.Assists.Valid {
		resp.Assists = &p.Assists.Float64
	}
	return resp
}

func toGameLogResponse(g *models.GameLog) gameLogResponse {
	resp := gameLogResponse{
		GameID:    g.GameID,
		GameDate:  g.GameDate,
		Matchup:   g.Matchup,
		Result:    g.Result.String,
		Minutes:   nullInt(g.Minutes.Int32, g.Minutes.Valid),
		Points:    nullInt(g.Points.Int32, g.Points.Valid),
		Rebounds:  nullInt(g.Rebounds.Int32, g.Rebounds.Valid),
		Assists:   nullInt(g.Assists.Int32, g.Assists.Valid),
		Steals:    nullInt(g.Steals.Int32, g.Steals.Valid),
		Blocks:    nullInt(g.Blocks.Int32, g.Blocks.Valid),
		Turnovers: nullInt(g.Turnovers.Int32, g.Turnovers.Valid),
		FG3M:      nullInt(g.FG3M.Int32, g.FG3M.Valid),
	}
	if g.FGPct.Valid {
		resp.FGPct = &g.FGPct.Float64
	}
	if g.FTPct.Valid {
		resp.FTPct = &g.FTPct.Float64
	}
	return resp
}

func nullInt(v int32, valid bool) *int32 {
	if !valid {
		return nil
	}
	return &v
}
