// Package backup creates, lists, restores, prunes and ships whole-file
// snapshots of the usage store.
package backup

import (
	"context"
	"io"
	"time"
)

// Store is the live store the manager snapshots and restores.
type Store interface {
	// Snapshot writes the store file verbatim to w.
	Snapshot(ctx context.Context, w io.Writer) (int64, error)
	// Replace overwrites the store file with the database read from r.
	Replace(ctx context.Context, r io.Reader) error
	// TryLockWriter takes the single-writer lock or fails with
	// tracker.ErrStoreBusy.
	TryLockWriter() (release func() error, err error)
}

// Vault provides an interface for off-machine backup storage.
// Objects are namespaced per host so several machines can share one vault.
type Vault interface {
	Name() string

	// Put stores the object name for hostID, reading exactly size bytes from r.
	Put(ctx context.Context, hostID, name string, r io.Reader, size int64) error

	// Get writes the object to w. A missing object wraps
	// tracker.ErrBackupNotFound.
	Get(ctx context.Context, hostID, name string, w io.Writer) error

	// List returns the object names stored for hostID.
	List(ctx context.Context, hostID string) ([]string, error)

	// ValidateSetup verifies that the vault is accessible and properly configured.
	ValidateSetup(ctx context.Context) error
}

// Encryptor seals backups before they leave the machine. Encryption uses the
// public key only; decryption needs the passphrase to unlock the private key.
type Encryptor interface {
	// Setup generates the key pair. The private key is sealed with passphrase.
	Setup(passphrase string) error

	Encrypt(r io.Reader, w io.Writer) error

	// Unlock opens the private key for the rest of the session.
	Unlock(passphrase string) (DecryptionContext, error)

	// IsConfigured reports whether both key files exist.
	IsConfigured() bool
}

// DecryptionContext holds an unlocked private key in memory.
type DecryptionContext interface {
	Decrypt(r io.Reader, w io.Writer) error
}

// Info describes one local backup file.
type Info struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// EncryptedSuffix marks vault objects sealed by an Encryptor.
const EncryptedSuffix = ".age"

// TimestampLayout formats backup names so lexical order is chronological.
const TimestampLayout = "2006-01-02_15-04-05"
