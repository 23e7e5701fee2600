package tracker

import (
	"context"

	"github.com/golang-sql/civil"
)

// Store is the persistence the engine runs against. Every method is one
// self-contained transaction.
type Store interface {
	// RecordUsage finds or creates the application named name and, unless it
	// is excluded, adds seconds to its bucket for date. recorded reports
	// whether a bucket was written.
	RecordUsage(ctx context.Context, name string, date civil.Date, seconds int64) (recorded bool, err error)

	// SumUsage aggregates durations per application for the inclusive range,
	// ordered by total descending then name ascending.
	SumUsage(ctx context.Context, r DateRange) ([]UsageRow, error)

	// DailyTotals sums all applications per day over the range, oldest first.
	DailyTotals(ctx context.Context, r DateRange) ([]DailyTotal, error)

	ListApplications(ctx context.Context, filter AppFilter) ([]*Application, error)
	ListUsedApplications(ctx context.Context) ([]*Application, error)

	// FindApplicationByName returns nil, nil when no application matches.
	FindApplicationByName(ctx context.Context, name string) (*Application, error)

	// FindUsage returns nil, nil when the bucket does not exist.
	FindUsage(ctx context.Context, appID int64, date civil.Date) (*UsageRecord, error)

	SetExclusion(ctx context.Context, ids []int64, excluded bool) error
	DeleteUsage(ctx context.Context, appIDs []int64) (int64, error)

	TrackingEnabled(ctx context.Context) (bool, error)
	SetTrackingEnabled(ctx context.Context, enabled bool) error

	Close() error
}
