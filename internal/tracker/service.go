package tracker

import (
	"context"
	"fmt"
	"slices"

	"github.com/golang-sql/civil"
)

// Service is the usage aggregation and reporting engine. It holds an explicit
// store handle; each method is one store transaction.
type Service struct {
	store  Store
	clock  Clock
	logger Logger
}

func NewService(store Store, clock Clock, logger Logger) *Service {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Service{store: store, clock: clock, logger: logger}
}

// Today is the current calendar date in local time.
func (s *Service) Today() civil.Date {
	return civil.DateOf(s.clock.Now())
}

// Ingest normalizes appName and adds elapsedSeconds to today's bucket for it.
// Excluded applications are a no-op. Unlike RecordObservation it reports
// failures to the caller.
func (s *Service) Ingest(ctx context.Context, appName string, elapsedSeconds int64) error {
	name, err := NormalizeAppName(appName)
	if err != nil {
		return err
	}
	if elapsedSeconds < 1 {
		return fmt.Errorf("%w: elapsed seconds must be at least 1, got %d", ErrInvalidObservation, elapsedSeconds)
	}

	recorded, err := s.store.RecordUsage(ctx, name, s.Today(), elapsedSeconds)
	if err != nil {
		return fmt.Errorf("recording usage for %s: %w", name, err)
	}
	if !recorded {
		s.logger.Debug("observation ignored for excluded app", "app", name)
	}
	return nil
}

// RecordObservation is the sampler's best-effort entry point: any failure is
// logged and the sample is dropped.
func (s *Service) RecordObservation(ctx context.Context, appName string, elapsedSeconds int64) {
	if err := s.Ingest(ctx, appName, elapsedSeconds); err != nil {
		s.logger.Warn("dropped observation", "app", appName, "elapsed", elapsedSeconds, "error", err)
	}
}

// ResolvePeriod resolves p against today's date.
func (s *Service) ResolvePeriod(p Period) (DateRange, error) {
	if p == nil {
		return DateRange{}, fmt.Errorf("%w: no period given", ErrInvalidPeriod)
	}
	return p.Resolve(s.Today())
}

// QueryUsage returns raw per-application totals for the period, ordered by
// total descending. An empty range yields an empty slice.
func (s *Service) QueryUsage(ctx context.Context, p Period) ([]UsageRow, error) {
	r, err := s.ResolvePeriod(p)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.SumUsage(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("querying usage for %s: %w", p, err)
	}
	return rows, nil
}

// QueryUsageDisplay is QueryUsage in on-screen form.
func (s *Service) QueryUsageDisplay(ctx context.Context, p Period) ([]DisplayRow, error) {
	rows, err := s.QueryUsage(ctx, p)
	if err != nil {
		return nil, err
	}
	out := make([]DisplayRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Display())
	}
	return out, nil
}

// DailyTotals returns the per-day sum over all applications for the period.
func (s *Service) DailyTotals(ctx context.Context, p Period) ([]DailyTotal, error) {
	r, err := s.ResolvePeriod(p)
	if err != nil {
		return nil, err
	}
	totals, err := s.store.DailyTotals(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("querying daily totals for %s: %w", p, err)
	}
	return totals, nil
}

func (s *Service) ListApplications(ctx context.Context, filter AppFilter) ([]*Application, error) {
	apps, err := s.store.ListApplications(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing %s applications: %w", filter, err)
	}
	return apps, nil
}

// ListUsedApplications returns applications with at least one usage bucket.
func (s *Service) ListUsedApplications(ctx context.Context) ([]*Application, error) {
	apps, err := s.store.ListUsedApplications(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing used applications: %w", err)
	}
	return apps, nil
}

// SetExclusion marks the given applications as excluded or included in one
// transaction. Unknown ids are ignored.
func (s *Service) SetExclusion(ctx context.Context, ids []int64, excluded bool) error {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return nil
	}
	if err := s.store.SetExclusion(ctx, ids, excluded); err != nil {
		return fmt.Errorf("%w: %w", ErrExclusionUpdateFailed, err)
	}
	s.logger.Info("exclusion updated", "ids", ids, "excluded", excluded)
	return nil
}

// DeleteUsageHistory removes every usage bucket of the given applications and
// returns how many were removed. The application rows are kept.
func (s *Service) DeleteUsageHistory(ctx context.Context, ids []int64) (int64, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := s.store.DeleteUsage(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrHistoryDeleteFailed, err)
	}
	s.logger.Info("usage history deleted", "ids", ids, "rows", n)
	return n, nil
}

func (s *Service) IsTrackingEnabled(ctx context.Context) (bool, error) {
	return s.store.TrackingEnabled(ctx)
}

func (s *Service) SetTrackingEnabled(ctx context.Context, enabled bool) error {
	if err := s.store.SetTrackingEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("setting tracking flag: %w", err)
	}
	s.logger.Info("tracking flag updated", "enabled", enabled)
	return nil
}

func uniqueIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}
