package service

import (
	"context"
	"time"

	"github.com/jaume768/splashmy/internal/domain"
	"github.com/jaume768/splashmy/internal/infra"
	"github.com/jaume768/splashmy/internal/storage"
)

const sweepBatchSize = 100

// Sweeper reaps terminal jobs past the retention window, removing their
// stored result objects, streaming events and rows.
type Sweeper struct {
	jobs          domain.JobRepository
	results       domain.ResultRepository
	events        domain.StreamingEventRepository
	store         storage.ObjectStore
	retentionDays int
	interval      time.Duration
	logger        infra.Logger
	now           func() time.Time
}

// NewSweeper assembles a Sweeper. interval defaults to one hour.
func NewSweeper(jobs domain.JobRepository, results domain.ResultRepository, events domain.StreamingEventRepository, store storage.ObjectStore, retentionDays int, interval time.Duration, logger infra.Logger) *Sweeper {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		jobs:          jobs,
		results:       results,
		events:        events,
		store:         store,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger,
		now:           time.Now,
	}
}

// Run sweeps on a fixed interval until ctx is cancelled. One pass runs
// immediately on start.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	reaped, err := s.SweepOnce(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweeper: pass failed")
		return
	}
	if reaped > 0 {
		s.logger.Info().Int("jobs", reaped).Msg("sweeper: reaped expired jobs")
	}
}

// SweepOnce removes one batch of expired jobs and returns how many were
// reaped. Storage deletions are best effort: a missing object never blocks
// the row cleanup.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.now().AddDate(0, 0, -s.retentionDays)
	jobs, err := s.jobs.ListExpired(ctx, cutoff, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, job := range jobs {
		results, err := s.results.ListByJob(ctx, job.ID)
		if err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("sweeper: list results failed")
			continue
		}
		for _, res := range results {
			if err := s.store.Delete(ctx, res.StorageKey); err != nil {
				s.logger.Warn().Err(err).Str("key", res.StorageKey).Msg("sweeper: delete object failed")
			}
		}
		if err := s.events.DeleteByJob(ctx, job.ID); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("sweeper: delete events failed")
		}
		if err := s.jobs.Delete(ctx, job.ID); err != nil {
			s.logger.Error().Err(err).Str("job_id", job.ID).Msg("sweeper: delete job failed")
			continue
		}
		reaped++
	}
	return reaped, nil
}
