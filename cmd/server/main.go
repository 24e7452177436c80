package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/api"
	"nbastats/ingestion/internal/cache"
	"nbastats/ingestion/internal/client"
	"nbastats/ingestion/internal/config"
	"nbastats/ingestion/internal/ingest"
	"nbastats/ingestion/internal/lineup"
	"nbastats/ingestion/internal/repository"
	"nbastats/ingestion/internal/scheduler"
)

func main() {
	setupLogger()

	log.Info().Msg("Starting NBA stats ingestion server")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("cache_backend", cfg.CacheBackend).
		Str("season", cfg.Season).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

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
	log.Info().Msg("Database connection established")

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	store, closeStore, err := openCacheStore(cfg, db)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open response cache")
	}
	defer closeStore()
	responseCache := cache.New(store)

	statsClient := client.NewClient(cfg.SportsAPIBaseURL, cfg.SportsAPITimeout, cfg.SportsAPIMaxConcurrency)
	log.Info().Str("base_url", cfg.SportsAPIBaseURL).Msg("Stats API client initialized")

	ingester := ingest.NewService(statsClient, responseCache, db.Players, db.GameLogs, ingest.Config{
		Season:            cfg.Season,
		SeasonType:        cfg.SeasonType,
		PlayerIndexTTL:    cfg.CacheTTLPlayerIdx,
		GameLogTTL:        cfg.CacheTTLGameLogs,
		GameLogStaleAfter: cfg.CacheStaleGameLogs,
		SingleFlight:      cfg.IngestSingleFlight,
	})
	lineups := lineup.NewService(db.Lineups, ingester)

	sched := scheduler.NewScheduler(cfg, responseCache, db)
	if err := sched.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}
	defer sched.Stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Players:       db.Players,
		GameLogs:      db.GameLogs,
		Ingester:      ingester,
		Lineups:       lineups,
		Health:        db,
		EnableMetrics: cfg.EnableMetrics,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server failed")
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	log.Info().Msg("Received shutdown signal, gracefully shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}

// openCacheStore selects the response cache backend
func openCacheStore(cfg *config.Config, db *repository.Database) (cache.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.CacheBackendRedis:
		rc, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("addr", cfg.RedisAddr()).Msg("Redis response cache connected")
		return rc, func() { _ = rc.Close() }, nil
	case config.CacheBackendMemory:
		log.Warn().Msg("Using in-process response cache; entries are lost on restart")
		return cache.NewMemoryStore(), func() {}, nil
	default:
		return db.WebCache, func() {}, nil
	}
}

func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}
