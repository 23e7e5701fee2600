package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/golang-sql/civil"

	"pstalker/internal/database/migrations"
	"pstalker/internal/tracker"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// DefaultBusyTimeout bounds how long a statement waits on a lock held by the
// other process before failing with ErrStorageUnavailable.
const DefaultBusyTimeout = 2 * time.Second

// SQLiteStore implements tracker.Store on a single SQLite file.
type SQLiteStore struct {
	mu          sync.RWMutex // guards db across Replace
	db          *sql.DB
	path        string
	busyTimeout time.Duration
}

var _ tracker.Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the store at path, creating its directory if needed,
// and brings the schema up to date.
func NewSQLiteStore(ctx context.Context, path string, busyTimeout time.Duration) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no store path configured", tracker.ErrStorageUnavailable)
	}
	if busyTimeout <= 0 {
		busyTimeout = DefaultBusyTimeout
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: creating store directory: %w", tracker.ErrStorageUnavailable, err)
	}

	db, err := OpenConnection(ctx, path, busyTimeout)
	if err != nil {
		return nil, err
	}

	s := &SQLiteStore{db: db, path: path, busyTimeout: busyTimeout}
	if err := s.Initialize(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// OpenConnection opens a SQLite connection pool configured for the store:
// foreign keys on, bounded lock waits, write transactions that take the
// RESERVED lock up front, and a rollback journal so the database is always
// one self-contained file.
func OpenConnection(ctx context.Context, path string, busyTimeout time.Duration) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=%d&_txlock=immediate&_journal_mode=DELETE",
		path, busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening store: %w", tracker.ErrStorageUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: opening store %s: %w", tracker.ErrStorageUnavailable, path, err)
	}
	return db, nil
}

// Initialize creates the schema if the apps table is missing or the schema
// is behind. Existing data and the tracking flag are never reset.
func (s *SQLiteStore) Initialize(ctx context.Context) error {
	db := s.handle()

	var name string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'apps'").Scan(&name)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return wrapErr("checking store schema", err)
	default:
		if migrations.Status(db) == nil {
			return nil
		}
	}

	if err := migrations.Up(db); err != nil {
		return wrapErr("initializing store schema", err)
	}
	return nil
}

func (s *SQLiteStore) handle() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Path returns the store file path.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Ingest

func (s *SQLiteStore) RecordUsage(ctx context.Context, name string, date civil.Date, seconds int64) (bool, error) {
	tx, err := s.handle().BeginTx(ctx, nil)
	if err != nil {
		return false, wrapErr("beginning ingest", err)
	}
	defer tx.Rollback()

	var appID int64
	var excluded bool
	err = tx.QueryRowContext(ctx, "SELECT id, COALESCE(excluded, 0) FROM apps WHERE app_name = ?", name).Scan(&appID, &excluded)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, "INSERT INTO apps (app_name, excluded) VALUES (?, 0)", name)
		if err != nil {
			return false, wrapErr("creating application", err)
		}
		if appID, err = res.LastInsertId(); err != nil {
			return false, wrapErr("creating application", err)
		}
	case err != nil:
		return false, wrapErr("finding application", err)
	}

	if excluded {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO app_usage (app_id, duration, usage_date) VALUES (?, ?, ?)
		ON CONFLICT (app_id, usage_date) DO UPDATE SET duration = duration + excluded.duration`,
		appID, seconds, date.String())
	if err != nil {
		return false, wrapErr("accruing usage", err)
	}

	if err := tx.Commit(); err != nil {
		return false, wrapErr("committing ingest", err)
	}
	return true, nil
}

// Queries

func (s *SQLiteStore) SumUsage(ctx context.Context, r tracker.DateRange) ([]tracker.UsageRow, error) {
	query, args, err := sq.Select("a.app_name", "COALESCE(a.excluded, 0)", "COALESCE(SUM(au.duration), 0) AS total_seconds").
		From("app_usage au").
		Join("apps a ON au.app_id = a.id").
		Where("au.usage_date BETWEEN ? AND ?", r.Start.String(), r.End.String()).
		GroupBy("a.id", "a.app_name", "a.excluded").
		OrderBy("total_seconds DESC", "a.app_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building usage query: %w", err)
	}

	rows, err := s.handle().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("querying usage", err)
	}
	defer rows.Close()

	result := []tracker.UsageRow{}
	for rows.Next() {
		var row tracker.UsageRow
		if err := rows.Scan(&row.AppName, &row.Excluded, &row.TotalSeconds); err != nil {
			return nil, wrapErr("scanning usage row", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("reading usage rows", err)
	}
	return result, nil
}

func (s *SQLiteStore) DailyTotals(ctx context.Context, r tracker.DateRange) ([]tracker.DailyTotal, error) {
	// Older stores declare usage_date as DATE, which the driver would scan as
	// a time.Time; the cast keeps it a plain string.
	query, args, err := sq.Select("CAST(usage_date AS TEXT) AS day", "COALESCE(SUM(duration), 0)").
		From("app_usage").
		Where("usage_date BETWEEN ? AND ?", r.Start.String(), r.End.String()).
		GroupBy("day").
		OrderBy("day ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("building daily totals query: %w", err)
	}

	rows, err := s.handle().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("querying daily totals", err)
	}
	defer rows.Close()

	result := []tracker.DailyTotal{}
	for rows.Next() {
		var day string
		var total int64
		if err := rows.Scan(&day, &total); err != nil {
			return nil, wrapErr("scanning daily total", err)
		}
		date, err := civil.ParseDate(day)
		if err != nil {
			return nil, fmt.Errorf("parsing usage date %q: %w", day, err)
		}
		result = append(result, tracker.DailyTotal{Date: date, TotalSeconds: total})
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("reading daily totals", err)
	}
	return result, nil
}

// Applications

func (s *SQLiteStore) ListApplications(ctx context.Context, filter tracker.AppFilter) ([]*tracker.Application, error) {
	q := sq.Select("id", "app_name", "COALESCE(excluded, 0)").From("apps").OrderBy("app_name ASC")
	switch filter {
	case tracker.FilterExcluded:
		q = q.Where(sq.Eq{"excluded": 1})
	case tracker.FilterIncluded:
		q = q.Where(sq.Or{sq.Eq{"excluded": 0}, sq.Eq{"excluded": nil}})
	}
	return s.queryApplications(ctx, q)
}

func (s *SQLiteStore) ListUsedApplications(ctx context.Context) ([]*tracker.Application, error) {
	q := sq.Select("a.id", "a.app_name", "COALESCE(a.excluded, 0)").
		From("apps a").
		Where("EXISTS (SELECT 1 FROM app_usage au WHERE au.app_id = a.id)").
		OrderBy("a.app_name ASC")
	return s.queryApplications(ctx, q)
}

func (s *SQLiteStore) FindApplicationByName(ctx context.Context, name string) (*tracker.Application, error) {
	apps, err := s.queryApplications(ctx,
		sq.Select("id", "app_name", "COALESCE(excluded, 0)").From("apps").Where(sq.Eq{"app_name": name}))
	if err != nil {
		return nil, err
	}
	if len(apps) == 0 {
		return nil, nil
	}
	return apps[0], nil
}

func (s *SQLiteStore) queryApplications(ctx context.Context, q sq.SelectBuilder) ([]*tracker.Application, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building application query: %w", err)
	}

	rows, err := s.handle().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("querying applications", err)
	}
	defer rows.Close()

	apps := []*tracker.Application{}
	for rows.Next() {
		app := &tracker.Application{}
		if err := rows.Scan(&app.ID, &app.Name, &app.Excluded); err != nil {
			return nil, wrapErr("scanning application", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("reading applications", err)
	}
	return apps, nil
}

func (s *SQLiteStore) FindUsage(ctx context.Context, appID int64, date civil.Date) (*tracker.UsageRecord, error) {
	rec := &tracker.UsageRecord{UsageDate: date}
	err := s.handle().QueryRowContext(ctx,
		"SELECT id, app_id, COALESCE(duration, 0) FROM app_usage WHERE app_id = ? AND usage_date = ?",
		appID, date.String()).Scan(&rec.ID, &rec.AppID, &rec.Duration)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("finding usage bucket", err)
	}
	return rec, nil
}

// Policy

func (s *SQLiteStore) SetExclusion(ctx context.Context, ids []int64, excluded bool) error {
	flag := 0
	if excluded {
		flag = 1
	}
	query, args, err := sq.Update("apps").Set("excluded", flag).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return fmt.Errorf("building exclusion update: %w", err)
	}

	tx, err := s.handle().BeginTx(ctx, nil)
	if err != nil {
		return wrapErr("beginning exclusion update", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return wrapErr("updating exclusion", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapErr("committing exclusion update", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteUsage(ctx context.Context, appIDs []int64) (int64, error) {
	query, args, err := sq.Delete("app_usage").Where(sq.Eq{"app_id": appIDs}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("building history delete: %w", err)
	}

	tx, err := s.handle().BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapErr("beginning history delete", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, wrapErr("deleting usage history", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrapErr("deleting usage history", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, wrapErr("committing history delete", err)
	}
	return n, nil
}

// Tracking flag

func (s *SQLiteStore) TrackingEnabled(ctx context.Context) (bool, error) {
	var enabled bool
	err := s.handle().QueryRowContext(ctx, "SELECT COALESCE(tracking_enabled, 1) FROM settings WHERE id = 1").Scan(&enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: tracking settings row is missing", tracker.ErrStorageUnavailable)
	}
	if err != nil {
		return false, wrapErr("reading tracking flag", err)
	}
	return enabled, nil
}

func (s *SQLiteStore) SetTrackingEnabled(ctx context.Context, enabled bool) error {
	flag := 0
	if enabled {
		flag = 1
	}
	_, err := s.handle().ExecContext(ctx, `
		INSERT INTO settings (id, tracking_enabled) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET tracking_enabled = excluded.tracking_enabled`, flag)
	if err != nil {
		return wrapErr("updating tracking flag", err)
	}
	return nil
}
