package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinicore/pkg/timex"
)

// RunFunc is the work a scheduled job performs for one calendar date.
type RunFunc func(ctx context.Context, date timex.Date) error

// Scheduler drives one job off its database-stored cron expression. It is a
// single cooperative loop: compute the next fire time from the current
// config, sleep (in bounded ticks so config edits take effect without a
// restart), fire, repeat. Config problems never stop the loop; they degrade
// to FallbackCron.
type Scheduler struct {
	jobID    int
	repo     Repository
	run      RunFunc
	log      zerolog.Logger
	pollTick time.Duration
	now      func() time.Time
}

func NewScheduler(jobID int, repo Repository, run RunFunc, log zerolog.Logger, pollTick time.Duration) *Scheduler {
	if pollTick <= 0 {
		pollTick = time.Minute
	}
	return &Scheduler{
		jobID:    jobID,
		repo:     repo,
		run:      run,
		log:      log.With().Int("job_id", jobID).Logger(),
		pollTick: pollTick,
		now:      time.Now,
	}
}

// schedule resolves the effective cron schedule for a config snapshot.
// Missing, disabled or unparseable configuration falls back to daily
// midnight rather than silencing the job.
func (s *Scheduler) schedule(cfg *JobConfig) cron.Schedule {
	fallback, _ := cron.ParseStandard(FallbackCron)
	if cfg == nil {
		s.log.Warn().Msg("job config missing, using fallback schedule")
		return fallback
	}
	if !cfg.Enabled {
		s.log.Warn().Msg("job disabled, using fallback schedule")
		return fallback
	}
	sched, err := cron.ParseStandard(cfg.CronExpression)
	if err != nil {
		s.log.Warn().Err(err).Str("cron", cfg.CronExpression).
			Msg("bad cron expression, using fallback schedule")
		return fallback
	}
	return sched
}

func (s *Scheduler) loadConfig(ctx context.Context) *JobConfig {
	cfg, err := s.repo.Get(ctx, s.jobID)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to load job config")
		return nil
	}
	return cfg
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info().Msg("scheduler started")
	for {
		cfg := s.loadConfig(ctx)
		next := s.schedule(cfg).Next(s.now())
		s.log.Debug().Time("next_fire", next).Msg("scheduled next run")

		if !s.waitUntil(ctx, next, cfg) {
			s.log.Info().Msg("scheduler stopped")
			return
		}
		s.fire(ctx)
	}
}

// waitUntil sleeps until the fire time, waking every pollTick to pick up
// config changes. It returns false when ctx is cancelled. A config change
// recomputes the fire time; an unchanged config keeps the original one so
// "@every" descriptors do not drift.
func (s *Scheduler) waitUntil(ctx context.Context, next time.Time, cfg *JobConfig) bool {
	for {
		now := s.now()
		if !now.Before(next) {
			return true
		}
		wait := next.Sub(now)
		if wait > s.pollTick {
			wait = s.pollTick
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
		if !s.now().Before(next) {
			return true
		}
		if fresh := s.loadConfig(ctx); configChanged(cfg, fresh) {
			cfg = fresh
			next = s.schedule(cfg).Next(s.now())
			s.log.Info().Time("next_fire", next).Msg("job config changed, rescheduled")
		}
	}
}

func configChanged(old, fresh *JobConfig) bool {
	if (old == nil) != (fresh == nil) {
		return true
	}
	if old == nil {
		return false
	}
	return old.CronExpression != fresh.CronExpression || old.Enabled != fresh.Enabled
}

func (s *Scheduler) fire(ctx context.Context) {
	started := s.now()
	date := timex.DateOf(started)
	s.log.Info().Str("date", date.String()).Msg("job run starting")

	if err := s.run(ctx, date); err != nil {
		s.log.Error().Err(err).Str("date", date.String()).Msg("job run failed")
		return
	}
	if err := s.repo.UpdateLastRun(ctx, s.jobID, started); err != nil {
		s.log.Error().Err(err).Msg("failed to record job last run")
	}
	s.log.Info().Str("date", date.String()).
		Dur("took", s.now().Sub(started)).Msg("job run finished")
}
