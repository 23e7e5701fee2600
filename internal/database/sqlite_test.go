package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pstalker/internal/tracker"
)

// openTestStore creates a migrated file-backed store for testing.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "pstalker.db")
	store, err := NewSQLiteStore(context.Background(), path, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var (
	jan15 = civil.Date{Year: 2024, Month: time.January, Day: 15}
	jan16 = civil.Date{Year: 2024, Month: time.January, Day: 16}
	jan17 = civil.Date{Year: 2024, Month: time.January, Day: 17}
)

func mustRecord(t *testing.T, s *SQLiteStore, name string, date civil.Date, seconds int64) {
	t.Helper()
	recorded, err := s.RecordUsage(context.Background(), name, date, seconds)
	require.NoError(t, err)
	require.True(t, recorded, "RecordUsage(%s) should record", name)
}

func TestNewSQLiteStore_CreatesDirectory(t *testing.T) {
	store := openTestStore(t)

	_, err := os.Stat(store.Path())
	require.NoError(t, err, "store file should exist")

	enabled, err := store.TrackingEnabled(context.Background())
	require.NoError(t, err)
	assert.True(t, enabled, "tracking should default to enabled")
}

func TestNewSQLiteStore_Unavailable(t *testing.T) {
	// A regular file where the directory should be.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := NewSQLiteStore(context.Background(), filepath.Join(blocker, "pstalker.db"), time.Second)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tracker.ErrStorageUnavailable), "error = %v, want ErrStorageUnavailable", err)
}

func TestInitialize_Idempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	mustRecord(t, store, "Firefox", jan15, 30)
	require.NoError(t, store.SetTrackingEnabled(ctx, false))

	require.NoError(t, store.Initialize(ctx))
	require.NoError(t, store.Initialize(ctx))

	enabled, err := store.TrackingEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled, "Initialize must not reset the tracking flag")

	rows, err := store.SumUsage(ctx, tracker.DateRange{Start: jan15, End: jan15})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(30), rows[0].TotalSeconds)
}

func TestRecordUsage_CreatesAndAccrues(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	mustRecord(t, store, "Firefox", jan15, 1)
	mustRecord(t, store, "Firefox", jan15, 4)
	mustRecord(t, store, "Firefox", jan16, 2)

	app, err := store.FindApplicationByName(ctx, "Firefox")
	require.NoError(t, err)
	require.NotNil(t, app)
	assert.False(t, app.Excluded)

	rec, err := store.FindUsage(ctx, app.ID, jan15)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(5), rec.Duration)

	rec, err = store.FindUsage(ctx, app.ID, jan16)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(2), rec.Duration)

	apps, err := store.ListApplications(ctx, tracker.FilterAll)
	require.NoError(t, err)
	assert.Len(t, apps, 1, "repeat observations must not duplicate the application")
}

func TestRecordUsage_ExcludedIsNoOp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	mustRecord(t, store, "Slack", jan15, 3)
	app, err := store.FindApplicationByName(ctx, "Slack")
	require.NoError(t, err)
	require.NoError(t, store.SetExclusion(ctx, []int64{app.ID}, true))

	for i := 0; i < 5; i++ {
		recorded, err := store.RecordUsage(ctx, "Slack", jan15, 1)
		require.NoError(t, err)
		assert.False(t, recorded)
	}
	recorded, err := store.RecordUsage(ctx, "Slack", jan16, 1)
	require.NoError(t, err)
	assert.False(t, recorded)

	rec, err := store.FindUsage(ctx, app.ID, jan15)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(3), rec.Duration, "excluded app bucket must not change")

	rec, err = store.FindUsage(ctx, app.ID, jan16)
	require.NoError(t, err)
	assert.Nil(t, rec, "excluded app must not get new buckets")
}

func TestFind_NotFound(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	app, err := store.FindApplicationByName(ctx, "Missing")
	require.NoError(t, err)
	assert.Nil(t, app)

	rec, err := store.FindUsage(ctx, 99, jan15)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestSumUsage_OrderingAndRange(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	mustRecord(t, store, "Editor", jan15, 50)
	mustRecord(t, store, "Browser", jan15, 120)
	mustRecord(t, store, "Browser", jan16, 80)
	mustRecord(t, store, "Terminal", jan16, 10)
	mustRecord(t, store, "Terminal", jan17, 500)

	rows, err := store.SumUsage(ctx, tracker.DateRange{Start: jan15, End: jan16})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Browser", rows[0].AppName)
	assert.Equal(t, int64(200), rows[0].TotalSeconds)
	assert.Equal(t, "Editor", rows[1].AppName)
	assert.Equal(t, int64(50), rows[1].TotalSeconds)
	assert.Equal(t, "Terminal", rows[2].AppName)
	assert.Equal(t, int64(10), rows[2].TotalSeconds)
}

func TestSumUsage_TiesOrderedByName(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	mustRecord(t, store, "Zed", jan15, 10)
	mustRecord(t, store, "Atom", jan15, 10)

	rows, err := store.SumUsage(ctx, tracker.DateRange{Start: jan15, End: jan15})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Atom", rows[0].AppName)
	assert.Equal(t, "Zed", rows[1].AppName)
}

func TestSumUsage_EmptyAndInvertedRange(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustRecord(t, store, "Editor", jan15, 50)
	mustRecord(t, store, "Editor", jan17, 50)

	rows, err := store.SumUsage(ctx, tracker.DateRange{Start: jan16, End: jan16})
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)

	rows, err = store.SumUsage(ctx, tracker.DateRange{Start: jan17, End: jan15})
	require.NoError(t, err)
	assert.Empty(t, rows, "an inverted range matches nothing")
}

func TestSumUsage_ReportsExcludedFlag(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustRecord(t, store, "Slack", jan15, 5)
	app, err := store.FindApplicationByName(ctx, "Slack")
	require.NoError(t, err)
	require.NoError(t, store.SetExclusion(ctx, []int64{app.ID}, true))

	rows, err := store.SumUsage(ctx, tracker.DateRange{Start: jan15, End: jan15})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Excluded, "history recorded before exclusion still reports the flag")
}

func TestDailyTotals(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustRecord(t, store, "Editor", jan15, 50)
	mustRecord(t, store, "Browser", jan15, 25)
	mustRecord(t, store, "Browser", jan17, 5)

	totals, err := store.DailyTotals(ctx, tracker.DateRange{Start: jan15, End: jan17})
	require.NoError(t, err)
	assert.Equal(t, []tracker.DailyTotal{
		{Date: jan15, TotalSeconds: 75},
		{Date: jan17, TotalSeconds: 5},
	}, totals)
}

func TestListApplications_Filters(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustRecord(t, store, "Browser", jan15, 1)
	mustRecord(t, store, "Editor", jan15, 1)
	mustRecord(t, store, "Slack", jan15, 1)

	slack, err := store.FindApplicationByName(ctx, "Slack")
	require.NoError(t, err)
	require.NoError(t, store.SetExclusion(ctx, []int64{slack.ID}, true))

	names := func(apps []*tracker.Application) []string {
		var out []string
		for _, a := range apps {
			out = append(out, a.Name)
		}
		return out
	}

	tests := []struct {
		filter tracker.AppFilter
		want   []string
	}{
		{tracker.FilterAll, []string{"Browser", "Editor", "Slack"}},
		{tracker.FilterExcluded, []string{"Slack"}},
		{tracker.FilterIncluded, []string{"Browser", "Editor"}},
	}
	for _, tt := range tests {
		t.Run(tt.filter.String(), func(t *testing.T) {
			apps, err := store.ListApplications(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, names(apps))
		})
	}
}

func TestListUsedApplications(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustRecord(t, store, "Browser", jan15, 1)
	mustRecord(t, store, "Editor", jan15, 1)

	editor, err := store.FindApplicationByName(ctx, "Editor")
	require.NoError(t, err)
	_, err = store.DeleteUsage(ctx, []int64{editor.ID})
	require.NoError(t, err)

	apps, err := store.ListUsedApplications(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "Browser", apps[0].Name)
}

func TestSetExclusion_UnknownAndEmptyIDs(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustRecord(t, store, "Browser", jan15, 1)

	require.NoError(t, store.SetExclusion(ctx, []int64{999}, true))
	require.NoError(t, store.SetExclusion(ctx, nil, true))

	app, err := store.FindApplicationByName(ctx, "Browser")
	require.NoError(t, err)
	assert.False(t, app.Excluded)
}

func TestDeleteUsage(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	mustRecord(t, store, "Browser", jan15, 10)
	mustRecord(t, store, "Browser", jan16, 10)
	mustRecord(t, store, "Editor", jan15, 7)

	browser, err := store.FindApplicationByName(ctx, "Browser")
	require.NoError(t, err)
	require.NoError(t, store.SetExclusion(ctx, []int64{browser.ID}, true))

	n, err := store.DeleteUsage(ctx, []int64{browser.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	after, err := store.FindApplicationByName(ctx, "Browser")
	require.NoError(t, err)
	require.NotNil(t, after, "application row must survive history deletion")
	assert.True(t, after.Excluded, "exclusion flag must survive history deletion")

	rows, err := store.SumUsage(ctx, tracker.DateRange{Start: jan15, End: jan16})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Editor", rows[0].AppName)
}

func TestTrackingFlag(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SetTrackingEnabled(ctx, false))
	enabled, err := store.TrackingEnabled(ctx)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, store.SetTrackingEnabled(ctx, true))
	enabled, err = store.TrackingEnabled(ctx)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestTrackingEnabled_MissingRow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.handle().ExecContext(ctx, "DELETE FROM settings")
	require.NoError(t, err)

	_, err = store.TrackingEnabled(ctx)
	assert.True(t, errors.Is(err, tracker.ErrStorageUnavailable), "error = %v, want ErrStorageUnavailable", err)
}

func TestRecordUsage_ConcurrentWritersSerialize(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	other, err := NewSQLiteStore(ctx, store.Path(), 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { other.Close() })

	const n = 50
	done := make(chan error, 2)
	for _, s := range []*SQLiteStore{store, other} {
		go func(s *SQLiteStore) {
			for i := 0; i < n; i++ {
				if _, err := s.RecordUsage(ctx, "Browser", jan15, 1); err != nil {
					done <- err
					return
				}
			}
			done <- nil
		}(s)
	}
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	app, err := store.FindApplicationByName(ctx, "Browser")
	require.NoError(t, err)
	rec, err := store.FindUsage(ctx, app.ID, jan15)
	require.NoError(t, err)
	assert.Equal(t, int64(2*n), rec.Duration)
}
