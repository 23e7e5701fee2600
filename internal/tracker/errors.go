package tracker

import "errors"

// Error kinds surfaced by the engine. Callers match them with errors.Is;
// the underlying cause is wrapped alongside.
var (
	// ErrStorageUnavailable means the store file or its directory could not
	// be opened, created, or locked in time.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidObservation rejects blank or malformed application names.
	ErrInvalidObservation = errors.New("invalid observation")

	// ErrInvalidPeriod rejects unknown relative keywords and unparsable dates.
	ErrInvalidPeriod = errors.New("invalid period")

	ErrBackupNotFound        = errors.New("backup not found")
	ErrExclusionUpdateFailed = errors.New("exclusion update failed")
	ErrHistoryDeleteFailed   = errors.New("history delete failed")

	// ErrStoreBusy is returned when a running tracker holds the writer lock.
	ErrStoreBusy = errors.New("store is in use by a running tracker")
)
