// Package api serves players and lineups over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nbastats/ingestion/internal/lineup"
	"nbastats/ingestion/internal/models"
)

// PlayerReader reads stored players
type PlayerReader interface {
	Search(ctx context.Context, query string, page, pageSize int) (*models.PlayerPage, error)
	GetByID(ctx context.Context, id int) (*models.Player, error)
}

// GameLogReader reads stored game logs
type GameLogReader interface {
	ListByPlayer(ctx context.Context, playerID, limit int) ([]*models.GameLog, error)
}

// LineupService is the lineup workflow behind the lineup routes
type LineupService interface {
	Create(ctx context.Context, name string) (*models.Lineup, error)
	AddPlayer(ctx context.Context, lineupID int64, playerID int) error
	RemovePlayer(ctx context.Context, lineupID int64, playerID int) error
	UpdatePositions(ctx context.Context, lineupID, lineupPlayerID int64, positions []string) ([]string, error)
	Detail(ctx context.Context, lineupID int64) (*lineup.Detail, error)
	Compare(ctx context.Context) ([]*lineup.Detail, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps are the collaborators the router serves from
type Deps struct {
	Players       PlayerReader
	GameLogs      GameLogReader
	Ingester      lineup.Ingester
	Lineups       LineupService
	Health        HealthChecker
	EnableMetrics bool
}

// NewRouter builds the gin engine with middleware and every route registered
func NewRouter(deps Deps) *gin.Engine {
	r := gin.New()

	r.Use(RequestID())
	r.Use(Recovery())
	r.Use(Logger())

	r.GET("/health", healthHandler(deps.Health))
	if deps.EnableMetrics {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	players := &playerHandler{
		players:  deps.Players,
		gameLogs: deps.GameLogs,
		ingester: deps.Ingester,
	}
	lineups := &lineupHandler{svc: deps.Lineups}

	api := r.Group("/api")
	{
		api.GET("/players", players.Search)
		api.GET("/players/:id", players.Get)

		api.GET("/lineups", lineups.List)
		api.POST("/lineups", lineups.Create)
		api.GET("/lineups/:id", lineups.Get)
		api.POST("/lineups/:id/players", lineups.AddPlayer)
		api.DELETE("/lineups/:id/players/:playerId", lineups.RemovePlayer)
		api.PUT("/lineups/:id/players/:lineupPlayerId/positions", lineups.UpdatePositions)
	}

	r.NoRoute(func(c *gin.Context) {
		failure(c, ErrNotFound)
	})

	return r
}

func healthHandler(checker HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		report := gin.H{"status": "healthy", "checked_at": time.Now().UTC()}

		if checker != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := checker.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				report["status"] = "unhealthy"
				report["error"] = err.Error()
			}
		}

		c.JSON(status, Response{Success: status == http.StatusOK, Data: report})
	}
}
