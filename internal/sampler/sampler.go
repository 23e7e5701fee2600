// Package sampler polls the desktop for the focused application and feeds
// one observation per active tick into the usage engine.
package sampler

import (
	"context"
	"math"
	"strings"
	"time"

	"pstalker/internal/tracker"
)

// Source reports what the user is doing right now.
type Source interface {
	// ActiveApplication returns the focused application's name, or "" when
	// no application has focus (desktop, lock screen).
	ActiveApplication(ctx context.Context) (string, error)

	// IdleTime returns how long the session has gone without input.
	IdleTime(ctx context.Context) (time.Duration, error)
}

// Recorder is the engine surface the sampler writes to.
type Recorder interface {
	RecordObservation(ctx context.Context, appName string, elapsedSeconds int64)
	IsTrackingEnabled(ctx context.Context) (bool, error)
}

type Config struct {
	Interval      time.Duration
	IdleThreshold time.Duration
	// MaxTickGap bounds the elapsed time credited to one tick. Longer gaps
	// (suspend, a stalled store) count as a single second.
	MaxTickGap time.Duration
}

func DefaultConfig() Config {
	return Config{
		Interval:      time.Second,
		IdleThreshold: 5 * time.Minute,
		MaxTickGap:    5 * time.Second,
	}
}

// TickResult says what a tick did.
type TickResult int

const (
	Recorded TickResult = iota
	Disabled
	Idle
	NoWindow
	Failed
)

func (r TickResult) String() string {
	switch r {
	case Recorded:
		return "recorded"
	case Disabled:
		return "disabled"
	case Idle:
		return "idle"
	case NoWindow:
		return "no-window"
	default:
		return "failed"
	}
}

// Sampler is not safe for concurrent use; Run drives it from one goroutine.
type Sampler struct {
	source   Source
	recorder Recorder
	cfg      Config
	clock    tracker.Clock
	logger   tracker.Logger

	lastCounted time.Time
	idleWarned  bool
}

func New(source Source, recorder Recorder, cfg Config, clock tracker.Clock, logger tracker.Logger) *Sampler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = def.IdleThreshold
	}
	if cfg.MaxTickGap < cfg.Interval {
		cfg.MaxTickGap = max(def.MaxTickGap, cfg.Interval)
	}
	if clock == nil {
		clock = tracker.RealClock{}
	}
	if logger == nil {
		logger = tracker.NewNopLogger()
	}
	return &Sampler{source: source, recorder: recorder, cfg: cfg, clock: clock, logger: logger}
}

// Run ticks until ctx is cancelled. A failed tick is dropped; the next one
// proceeds on schedule.
func (s *Sampler) Run(ctx context.Context) error {
	s.logger.Info("sampler started",
		"interval", s.cfg.Interval, "idle_threshold", s.cfg.IdleThreshold)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sampler stopped")
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one poll: tracking flag, idle gate, focused application,
// then a best-effort observation.
func (s *Sampler) Tick(ctx context.Context) TickResult {
	enabled, err := s.recorder.IsTrackingEnabled(ctx)
	if err != nil {
		s.logger.Warn("reading tracking flag", "error", err)
		return s.skip(Failed)
	}
	if !enabled {
		return s.skip(Disabled)
	}

	idle, err := s.source.IdleTime(ctx)
	switch {
	case err != nil:
		// Without an idle source every tick counts as active.
		if !s.idleWarned {
			s.logger.Warn("idle detection unavailable, treating session as active", "error", err)
			s.idleWarned = true
		}
	case idle >= s.cfg.IdleThreshold:
		return s.skip(Idle)
	}

	name, err := s.source.ActiveApplication(ctx)
	if err != nil {
		s.logger.Debug("reading focused application", "error", err)
		return s.skip(Failed)
	}
	if strings.TrimSpace(name) == "" {
		return s.skip(NoWindow)
	}

	now := s.clock.Now()
	elapsed := s.elapsed(now)
	s.lastCounted = now

	s.recorder.RecordObservation(ctx, name, elapsed)
	return Recorded
}

// elapsed is the whole seconds since the previous counted tick, at least 1.
func (s *Sampler) elapsed(now time.Time) int64 {
	if s.lastCounted.IsZero() {
		return 1
	}
	gap := now.Sub(s.lastCounted)
	if gap <= 0 || gap > s.cfg.MaxTickGap {
		return 1
	}
	return max(int64(math.Round(gap.Seconds())), 1)
}

func (s *Sampler) skip(r TickResult) TickResult {
	s.lastCounted = time.Time{}
	return r
}
