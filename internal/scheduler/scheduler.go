package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"nbastats/ingestion/internal/config"
	"nbastats/ingestion/internal/metrics"
)

// Pruner removes expired cache entries
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// PoolReporter publishes connection pool statistics
type PoolReporter interface {
	RefreshPoolMetrics()
}

// Scheduler runs the background maintenance jobs:
// - cache prune sweep on CACHE_PRUNE_CRON
// - pool metrics refresh every DB_POOL_STATS_INTERVAL
//
// It never refreshes data; upstream fetches happen only on request.
type Scheduler struct {
	cfg      *config.Config
	pruner   Pruner
	pool     PoolReporter
	cron     *cron.Cron
	ticker   *time.Ticker
	stopChan chan struct{}
	stopOnce sync.Once
	pruneMu  sync.Mutex
}

// NewScheduler creates a new scheduler instance. pool may be nil.
func NewScheduler(cfg *config.Config, pruner Pruner, pool PoolReporter) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		pruner:   pruner,
		pool:     pool,
		cron:     cron.New(),
		stopChan: make(chan struct{}),
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.CachePruneCron, func() {
		if _, err := s.RunPrune(ctx); err != nil {
			log.Error().Err(err).Msg("Cache prune failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule cache prune: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.CachePruneCron).
		Msg("Cache prune scheduled")

	if s.pool != nil && s.cfg.PoolStatsInterval > 0 {
		s.ticker = time.NewTicker(s.cfg.PoolStatsInterval)
		go s.reportPoolStats(ctx)
	}

	return nil
}

// Stop stops the scheduler and waits for running cron jobs to finish
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		log.Info().Msg("Stopping scheduler...")

		<-s.cron.Stop().Done()

		if s.ticker != nil {
			s.ticker.Stop()
		}

		close(s.stopChan)
		log.Info().Msg("Scheduler stopped")
	})
}

// RunPrune performs one prune sweep. Overlapping sweeps are serialized.
func (s *Scheduler) RunPrune(ctx context.Context) (int64, error) {
	s.pruneMu.Lock()
	defer s.pruneMu.Unlock()

	start := time.Now()
	removed, err := s.pruner.Prune(ctx)
	if err != nil {
		metrics.RecordJobRun("cache_prune", "error")
		metrics.RecordError("scheduler", "cache_prune")
		return 0, err
	}

	metrics.RecordJobRun("cache_prune", "success")

	log.Info().
		Int64("removed", removed).
		Dur("duration", time.Since(start)).
		Msg("Cache prune completed")

	return removed, nil
}

func (s *Scheduler) reportPoolStats(ctx context.Context) {
	s.pool.RefreshPoolMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-s.ticker.C:
			s.pool.RefreshPoolMetrics()
		}
	}
}
