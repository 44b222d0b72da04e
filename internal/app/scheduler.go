package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bvanryn/specula/internal/common"
)

// scheduler drives the periodic jobs: scan, FX watch, daily snapshot
// and weekly digest. Cron expressions come from config and include a
// seconds field.
type scheduler struct {
	cron   *cron.Cron
	logger *common.Logger
}

// cronLogger adapts the zerolog wrapper to robfig/cron's logger.
type cronLogger struct {
	logger *common.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.logger.Debug().Interface("kv", keysAndValues).Msg("Cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.logger.Error().Err(err).Interface("kv", keysAndValues).Msg("Cron: " + msg)
}

// StartScheduler registers and starts the cron jobs. Jobs with an
// empty cron expression are skipped.
func (a *App) StartScheduler() error {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger{a.Logger})),
	)
	s := &scheduler{cron: c, logger: a.Logger}

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"scan", a.Config.Scan.Cron, func(ctx context.Context) error {
			_, err := a.Scan.RunScan(ctx)
			return err
		}},
		{"fx_watch", a.Config.FXWatch.Cron, a.Portfolio.CheckFXWatches},
		{"snapshot", a.Config.Snapshot.Cron, func(ctx context.Context) error {
			_, err := a.Portfolio.TakeSnapshot(ctx)
			return err
		}},
		{"digest", a.Config.Digest.Cron, a.Portfolio.WeeklyDigest},
	}

	for _, job := range jobs {
		if job.spec == "" {
			a.Logger.Info().Str("job", job.name).Msg("Scheduler: job disabled")
			continue
		}
		name, run := job.name, job.run
		if _, err := c.AddFunc(job.spec, func() { s.runJob(name, run) }); err != nil {
			return fmt.Errorf("schedule %s (%q): %w", job.name, job.spec, err)
		}
		a.Logger.Info().Str("job", job.name).Str("cron", job.spec).Msg("Scheduler: job registered")
	}

	c.Start()
	a.scheduler = s
	return nil
}

// runJob executes one scheduled job with logging and timing. Errors
// are logged, never fatal to the scheduler.
func (s *scheduler) runJob(name string, run func(context.Context) error) {
	start := time.Now()
	s.logger.Info().Str("job", name).Msg("Scheduler: job started")
	if err := run(context.Background()); err != nil {
		s.logger.Error().Err(err).Str("job", name).Dur("elapsed", time.Since(start)).Msg("Scheduler: job failed")
		return
	}
	s.logger.Info().Str("job", name).Dur("elapsed", time.Since(start)).Msg("Scheduler: job complete")
}

// stop halts the cron runner and waits for running jobs to drain.
func (s *scheduler) stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Scheduler: stopped")
}
