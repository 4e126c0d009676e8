// Package scheduler runs background maintenance for the cache and the
// snapshot store. Analysis itself stays request-driven; these jobs only
// reclaim space.
package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/kpetrou/signalfolio/internal/cache"
	"github.com/kpetrou/signalfolio/internal/modules/analysis"
)

const (
	// Expired cache entries are swept every 5 minutes; they are also
	// evicted lazily on read, so the sweep only bounds memory between
	// reads.
	pruneCacheSpec = "*/5 * * * *"

	// Snapshots untouched for this long are dropped nightly.
	pruneSnapshotsSpec = "30 2 * * *"
	snapshotMaxAge     = 30 * 24 * time.Hour
)

// Scheduler manages the maintenance cron jobs
type Scheduler struct {
	cron      *cron.Cron
	cache     *cache.Cache
	snapshots *analysis.SnapshotRepository
	log       zerolog.Logger
}

// New creates a scheduler. The snapshot repository may be nil when
// persistence is disabled.
func New(resultCache *cache.Cache, snapshots *analysis.SnapshotRepository, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(),
		cache:     resultCache,
		snapshots: snapshots,
		log:       log.With().Str("component", "scheduler").Logger(),
	}
}

// Start registers the maintenance jobs and starts the cron loop
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(pruneCacheSpec, s.pruneCache); err != nil {
		return fmt.Errorf("failed to register cache prune job: %w", err)
	}
	if s.snapshots != nil {
		if _, err := s.cron.AddFunc(pruneSnapshotsSpec, s.pruneSnapshots); err != nil {
			return fmt.Errorf("failed to register snapshot prune job: %w", err)
		}
	}

	s.cron.Start()
	s.log.Info().Msg("Maintenance scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for any running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Maintenance scheduler stopped")
}

func (s *Scheduler) pruneCache() {
	removed := s.cache.Prune()
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("Pruned expired cache entries")
	}
}

func (s *Scheduler) pruneSnapshots() {
	cutoff := time.Now().Add(-snapshotMaxAge)
	removed, err := s.snapshots.DeleteOlderThan(cutoff)
	if err != nil {
		s.log.Error().Err(err).Msg("Snapshot prune failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Time("cutoff", cutoff).Msg("Pruned stale snapshots")
	}
}
