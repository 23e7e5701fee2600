package database

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"pstalker/internal/tracker"
)

// unavailable reports whether err means the store file cannot be used right
// now: locked past the busy timeout, unreadable, or not a database at all.
func unavailable(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	switch sqliteErr.Code {
	case sqlite3.ErrBusy, sqlite3.ErrLocked:
		return true
	case sqlite3.ErrCantOpen, sqlite3.ErrIoErr:
		return true
	case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
		return true
	case sqlite3.ErrCorrupt, sqlite3.ErrNotADB, sqlite3.ErrFull:
		return true
	default:
		return false
	}
}

// wrapErr annotates err with op and, for availability failures, with
// tracker.ErrStorageUnavailable so callers can match it.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if unavailable(err) {
		return fmt.Errorf("%s: %w: %w", op, tracker.ErrStorageUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
