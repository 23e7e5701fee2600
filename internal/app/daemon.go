package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"pstalker/internal/sampler"
	"pstalker/internal/tracker"
)

// ErrAlreadyTracking is returned by Track when another process holds the
// store's writer lock.
var ErrAlreadyTracking = errors.New("another pstalker tracker is already running")

// Track runs the sampler against source until ctx is cancelled. It holds the
// store's writer lock for its lifetime and, when backup.schedule is set,
// takes scheduled backups.
func (a *TrackerApp) Track(ctx context.Context, source sampler.Source) error {
	release, err := a.store.TryLockWriter()
	if errors.Is(err, tracker.ErrStoreBusy) {
		return a.track(fmt.Errorf("%w (lock %s)", ErrAlreadyTracking, a.store.LockPath()))
	}
	if err != nil {
		return a.track(err)
	}
	defer release()

	if schedule := a.cfg.Backup.Schedule; schedule != "" {
		c, err := a.scheduleBackups(ctx, schedule)
		if err != nil {
			return a.track(err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	s := sampler.New(source, a.service, sampler.Config{
		Interval:      a.cfg.Tracking.Interval.Std(),
		IdleThreshold: a.cfg.Tracking.IdleThreshold.Std(),
		MaxTickGap:    a.cfg.Tracking.MaxTickGap.Std(),
	}, a.clock, &slogAdapter{l: a.logger.With("component", "sampler")})

	return a.track(s.Run(ctx))
}

// scheduleBackups registers the backup job on a cron scheduler. Overlapping
// runs are skipped rather than queued.
func (a *TrackerApp) scheduleBackups(ctx context.Context, schedule string) (*cron.Cron, error) {
	logger := a.logger.With("component", "backup-scheduler")
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(schedule, func() {
		path, err := a.backups.CreateAndPrune(ctx, a.cfg.Backup.Retention)
		if err != nil {
			logger.Error("scheduled backup failed", "error", err)
			return
		}
		logger.Info("scheduled backup done", "path", path)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid backup.schedule %q: %w", schedule, err)
	}
	logger.Info("backups scheduled", "schedule", schedule, "retention", a.cfg.Backup.Retention)
	return c, nil
}
