package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"pstalker/internal/tracker"
)

// sqliteHeader starts every SQLite database file.
var sqliteHeader = []byte("SQLite format 3\x00")

// Snapshot copies the store file verbatim to w. A write transaction is held
// for the duration of the copy so no other connection can commit mid-copy;
// readers are not blocked.
func (s *SQLiteStore) Snapshot(ctx context.Context, w io.Writer) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return 0, fmt.Errorf("%w: store is closed", tracker.ErrStorageUnavailable)
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return 0, wrapErr("acquiring snapshot connection", err)
	}
	defer conn.Close()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, wrapErr("locking store for snapshot", err)
	}
	defer tx.Rollback()

	// Reading forces recovery of any hot journal before the copy.
	var n int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM settings").Scan(&n); err != nil {
		return 0, wrapErr("locking store for snapshot", err)
	}

	f, err := os.Open(s.path)
	if err != nil {
		return 0, fmt.Errorf("%w: opening store file: %w", tracker.ErrStorageUnavailable, err)
	}
	defer f.Close()

	written, err := io.Copy(w, f)
	if err != nil {
		return written, fmt.Errorf("copying store file: %w", err)
	}
	return written, nil
}

// Replace overwrites the store file with the SQLite database read from r and
// reopens the store. The new file is staged next to the live one and renamed
// into place, so a failed copy leaves the store untouched.
func (s *SQLiteStore) Replace(ctx context.Context, r io.Reader) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".restore-*.db")
	if err != nil {
		return fmt.Errorf("%w: staging restore: %w", tracker.ErrStorageUnavailable, err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(r, header); err != nil || !bytes.Equal(header, sqliteHeader) {
		return errors.New("restore source is not a SQLite database")
	}
	if _, err := tmp.Write(header); err != nil {
		return fmt.Errorf("staging restore: %w", err)
	}
	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("staging restore: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("staging restore: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("staging restore: %w", err)
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing store before restore: %w", err)
		}
		s.db = nil
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replacing store file: %w", err)
	}
	success = true

	// A journal left by the old file must never be replayed onto the new one.
	if err := os.Remove(s.path + "-journal"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing stale journal: %w", err)
	}

	db, err := OpenConnection(ctx, s.path, s.busyTimeout)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// LockPath is the advisory lock file guarding the store against a second
// writer process.
func (s *SQLiteStore) LockPath() string {
	return s.path + ".lock"
}

// TryLockWriter takes the writer lock without waiting. It fails with
// tracker.ErrStoreBusy when another process (normally the tracker daemon)
// holds it. The returned func releases the lock.
func (s *SQLiteStore) TryLockWriter() (func() error, error) {
	fl := flock.New(s.LockPath())
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("%w: locking %s: %w", tracker.ErrStorageUnavailable, fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s is held", tracker.ErrStoreBusy, fl.Path())
	}
	return fl.Unlock, nil
}
