package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/afero"

	"pstalker/internal/backup"
	"pstalker/internal/config"
	"pstalker/internal/database"
	"pstalker/internal/encryption"
	"pstalker/internal/export"
	"pstalker/internal/tracker"
	"pstalker/internal/vault"
)

// Options adjusts how a TrackerApp is built.
type Options struct {
	// LogMirror receives a copy of every log record (stderr for the daemon).
	LogMirror io.Writer
	Clock     tracker.Clock
	// Fs backs the backup and export directories. Defaults to the OS.
	Fs afero.Fs
}

// TrackerApp is the application layer between the CLI and the usage engine.
// It constructs all dependencies from config, exposes the operations the CLI
// needs, and closes the store on Close.
type TrackerApp struct {
	cfg       *config.Config
	store     *database.SQLiteStore
	service   *tracker.Service
	backups   *backup.Manager
	exporter  *export.Exporter
	encryptor backup.Encryptor
	clock     tracker.Clock
	logger    *slog.Logger
	logFile   *os.File
	op        *Operation
}

// NewTrackerApp creates a fully wired TrackerApp from cfg. operation names
// the CLI command being run (e.g. "Report", "RestoreBackup"). The caller
// must call Close when done.
func NewTrackerApp(ctx context.Context, cfg *config.Config, operation string, opts Options) (*TrackerApp, error) {
	clock := opts.Clock
	if clock == nil {
		clock = tracker.RealClock{}
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	runID := clock.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID, cfg.Log.Level, opts.LogMirror)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	engineLogger := &slogAdapter{l: logger}

	store, err := database.NewStoreFromConfig(ctx, cfg.Database)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	v, err := vault.NewVaultFromConfig(ctx, cfg.Vault)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating vault: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		store.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	backups := backup.NewManager(fs, store, backup.Options{
		Dir:       cfg.Backup.Dir,
		Prefix:    cfg.Backup.Prefix,
		HostID:    cfg.HostID,
		Vault:     v,
		Encryptor: enc,
		Clock:     clock,
		Logger:    engineLogger,
	})

	a := &TrackerApp{
		cfg:       cfg,
		store:     store,
		service:   tracker.NewService(store, clock, engineLogger),
		backups:   backups,
		exporter:  export.NewExporter(fs, cfg.Export.Dir, clock),
		encryptor: enc,
		clock:     clock,
		logger:    logger,
		logFile:   logFile,
		op:        NewOperation(operation, clock.Now()),
	}
	logger.Debug("operation started", "operation", operation, "store", store.Path())
	return a, nil
}

// Service exposes the engine for callers that drive ingest directly.
func (a *TrackerApp) Service() *tracker.Service {
	return a.service
}

func (a *TrackerApp) Config() *config.Config {
	return a.cfg
}

// track records err against the current operation and returns it unchanged.
func (a *TrackerApp) track(err error) error {
	a.op.Fail(err)
	return err
}

// Status is the summary shown by `pstalker status`.
type Status struct {
	TrackingEnabled bool
	StorePath       string
	Applications    int
	Excluded        int
	TodaySeconds    int64
	LatestBackup    *backup.Info
}

func (a *TrackerApp) Status(ctx context.Context) (*Status, error) {
	enabled, err := a.service.IsTrackingEnabled(ctx)
	if err != nil {
		return nil, a.track(err)
	}
	apps, err := a.service.ListApplications(ctx, tracker.FilterAll)
	if err != nil {
		return nil, a.track(err)
	}
	today, err := a.service.QueryUsage(ctx, tracker.SingleDay{Date: a.service.Today()})
	if err != nil {
		return nil, a.track(err)
	}
	backups, err := a.backups.List()
	if err != nil {
		return nil, a.track(err)
	}

	st := &Status{
		TrackingEnabled: enabled,
		StorePath:       a.store.Path(),
		Applications:    len(apps),
	}
	for _, app := range apps {
		if app.Excluded {
			st.Excluded++
		}
	}
	for _, row := range today {
		if !row.Excluded {
			st.TodaySeconds += row.TotalSeconds
		}
	}
	if len(backups) > 0 {
		st.LatestBackup = &backups[0]
	}
	return st, nil
}

func (a *TrackerApp) SetTrackingEnabled(ctx context.Context, enabled bool) error {
	return a.track(a.service.SetTrackingEnabled(ctx, enabled))
}

// Report returns raw per-application totals for period.
func (a *TrackerApp) Report(ctx context.Context, period tracker.Period) ([]tracker.UsageRow, error) {
	rows, err := a.service.QueryUsage(ctx, period)
	return rows, a.track(err)
}

// ReportDisplay returns the on-screen form of Report.
func (a *TrackerApp) ReportDisplay(ctx context.Context, period tracker.Period) ([]tracker.DisplayRow, error) {
	rows, err := a.service.QueryUsageDisplay(ctx, period)
	return rows, a.track(err)
}

func (a *TrackerApp) DailyTotals(ctx context.Context, period tracker.Period) ([]tracker.DailyTotal, error) {
	totals, err := a.service.DailyTotals(ctx, period)
	return totals, a.track(err)
}

// ResolvePeriod resolves period against today, for report headers.
func (a *TrackerApp) ResolvePeriod(period tracker.Period) (tracker.DateRange, error) {
	return a.service.ResolvePeriod(period)
}

func (a *TrackerApp) ListApplications(ctx context.Context, filter tracker.AppFilter) ([]*tracker.Application, error) {
	apps, err := a.service.ListApplications(ctx, filter)
	return apps, a.track(err)
}

func (a *TrackerApp) ListUsedApplications(ctx context.Context) ([]*tracker.Application, error) {
	apps, err := a.service.ListUsedApplications(ctx)
	return apps, a.track(err)
}

func (a *TrackerApp) SetExclusion(ctx context.Context, ids []int64, excluded bool) error {
	return a.track(a.service.SetExclusion(ctx, ids, excluded))
}

// PurgeHistory deletes every usage bucket of the given applications.
func (a *TrackerApp) PurgeHistory(ctx context.Context, ids []int64) (int64, error) {
	n, err := a.service.DeleteUsageHistory(ctx, ids)
	return n, a.track(err)
}

// Export writes the raw report for period to the export directory and
// returns the file path.
func (a *TrackerApp) Export(ctx context.Context, format export.Format, period tracker.Period) (string, error) {
	rows, err := a.service.QueryUsage(ctx, period)
	if err != nil {
		return "", a.track(err)
	}
	path, err := a.exporter.WriteFile(format, period.String(), rows)
	if err != nil {
		return "", a.track(fmt.Errorf("exporting: %w", err))
	}
	a.logger.Info("usage exported", "path", path, "rows", len(rows))
	return path, nil
}

func (a *TrackerApp) CreateBackup(ctx context.Context) (string, error) {
	path, err := a.backups.Create(ctx)
	return path, a.track(err)
}

func (a *TrackerApp) ListBackups() ([]backup.Info, error) {
	backups, err := a.backups.List()
	return backups, a.track(err)
}

// RestoreBackup replaces the live store with the backup at path. It fails
// with tracker.ErrStoreBusy while the tracker daemon is running.
func (a *TrackerApp) RestoreBackup(ctx context.Context, path string) error {
	return a.track(a.backups.Restore(ctx, path))
}

// PruneBackups applies backup.retention and returns the removed paths.
func (a *TrackerApp) PruneBackups() ([]string, error) {
	removed, err := a.backups.Prune(a.cfg.Backup.Retention)
	return removed, a.track(err)
}

func (a *TrackerApp) PushBackup(ctx context.Context, path string) (string, error) {
	name, err := a.backups.Push(ctx, path)
	return name, a.track(err)
}

func (a *TrackerApp) PullBackup(ctx context.Context, name, passphrase string) (string, error) {
	path, err := a.backups.Pull(ctx, name, passphrase)
	return path, a.track(err)
}

func (a *TrackerApp) ListRemoteBackups(ctx context.Context) ([]string, error) {
	names, err := a.backups.ListRemote(ctx)
	return names, a.track(err)
}

// EncryptionEnabled reports whether pushed backups are sealed.
func (a *TrackerApp) EncryptionEnabled() bool {
	return a.encryptor != nil
}

// SetupKeys generates the backup encryption key pair.
func (a *TrackerApp) SetupKeys(passphrase string) error {
	if a.encryptor == nil {
		return a.track(errors.New("encryption is disabled (set encryption.type = \"age\")"))
	}
	return a.track(a.encryptor.Setup(passphrase))
}

// Close logs the operation outcome and closes all resources.
func (a *TrackerApp) Close() error {
	elapsed := a.clock.Now().Sub(a.op.Started).Truncate(time.Millisecond)
	if a.op.Failed() {
		a.logger.Error("operation failed", "operation", a.op.Name, "elapsed", elapsed, "error", a.op.Err)
	} else {
		a.logger.Debug("operation finished", "operation", a.op.Name, "elapsed", elapsed)
	}

	var firstErr error
	if err := a.store.Close(); err != nil {
		firstErr = fmt.Errorf("closing store: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
