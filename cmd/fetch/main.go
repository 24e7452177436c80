// Command fetch pulls one player's data through the response cache and prints
// a season summary. With -persist the normalized rows are also upserted.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/cache"
	"nbastats/ingestion/internal/client"
	"nbastats/ingestion/internal/config"
	"nbastats/ingestion/internal/ingest"
	"nbastats/ingestion/internal/models"
	"nbastats/ingestion/internal/repository"
	"nbastats/ingestion/internal/stats"
)

func main() {
	playerID := flag.Int("player", 0, "upstream PERSON_ID to fetch")
	season := flag.String("season", "", "season such as 2025-26 (defaults to NBA_SEASON)")
	seasonType := flag.String("season-type", "", "Regular Season, Playoffs, ... (defaults to NBA_SEASON_TYPE)")
	persist := flag.Bool("persist", false, "upsert normalized rows into the database")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if *playerID <= 0 {
		flag.Usage()
		os.Exit(2)
	}

	ctx := context.Background()
	cfg := config.MustLoad()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	svc := ingest.NewService(
		client.NewClient(cfg.SportsAPIBaseURL, cfg.SportsAPITimeout, cfg.SportsAPIMaxConcurrency),
		cache.New(db.WebCache),
		db.Players,
		db.GameLogs,
		ingest.Config{
			Season:            cfg.Season,
			SeasonType:        cfg.SeasonType,
			PlayerIndexTTL:    cfg.CacheTTLPlayerIdx,
			GameLogTTL:        cfg.CacheTTLGameLogs,
			GameLogStaleAfter: cfg.CacheStaleGameLogs,
		},
	)
	opts := ingest.Options{PersistToDB: *persist}

	index, err := svc.FetchPlayerIndex(ctx, *season, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch player index")
	}

	var player *models.PlayerIndexRow
	for i := range index.Records {
		if index.Records[i].PersonID == *playerID {
			player = &index.Records[i]
			break
		}
	}
	if player == nil {
		log.Fatal().Int("player_id", *playerID).Msg("Player is not in the season's player index")
	}

	logs, err := svc.FetchPlayerGameLogs(ctx, ingest.GameLogParams{
		PlayerID:   *playerID,
		Season:     *season,
		SeasonType: *seasonType,
	}, opts)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch game logs")
	}

	games := make([]*models.GameLog, 0, len(logs.Records))
	for i := range logs.Records {
		games = append(games, logs.Records[i].ToGameLog())
	}

	log.Info().
		Int("player_id", *playerID).
		Int("games", len(games)).
		Bool("index_from_cache", index.FromCache).
		Bool("logs_from_cache", logs.FromCache).
		Int("persisted", index.Persisted+logs.Persisted).
		Msg("Fetch complete")

	out := json.NewEncoder(os.Stdout)
	out.SetIndent("", "  ")
	if err := out.Encode(map[string]interface{}{
		"player":  player.ToPlayer().FullName(),
		"summary": stats.SummarizePlayer(games),
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to write summary")
	}
}
