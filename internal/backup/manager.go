package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"pstalker/internal/tracker"
)

// Options configures a Manager. Vault and Encryptor are optional.
type Options struct {
	Dir       string
	Prefix    string
	HostID    string
	Vault     Vault
	Encryptor Encryptor
	Clock     tracker.Clock
	Logger    tracker.Logger
}

// Manager owns the local backup directory and, when configured, ships
// backups to a vault.
type Manager struct {
	fs     afero.Fs
	store  Store
	dir    string
	prefix string
	hostID string
	vault  Vault
	enc    Encryptor
	clock  tracker.Clock
	logger tracker.Logger
}

func NewManager(fs afero.Fs, store Store, opts Options) *Manager {
	m := &Manager{
		fs:     fs,
		store:  store,
		dir:    opts.Dir,
		prefix: opts.Prefix,
		hostID: opts.HostID,
		vault:  opts.Vault,
		enc:    opts.Encryptor,
		clock:  opts.Clock,
		logger: opts.Logger,
	}
	if m.prefix == "" {
		m.prefix = "pstalker"
	}
	if m.clock == nil {
		m.clock = tracker.RealClock{}
	}
	if m.logger == nil {
		m.logger = tracker.NewNopLogger()
	}
	return m
}

// Dir returns the local backup directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Create snapshots the store into <dir>/<prefix>_<timestamp>.db and returns
// the path. A backup taken in the same second as an existing one gets a
// numeric suffix.
func (m *Manager) Create(ctx context.Context) (string, error) {
	if err := m.fs.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}

	path, err := m.nextPath()
	if err != nil {
		return "", err
	}

	size, err := m.writeAtomic(path, func(w io.Writer) error {
		_, err := m.store.Snapshot(ctx, w)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("creating backup: %w", err)
	}

	m.logger.Info("backup created", "path", path, "bytes", size)
	return path, nil
}

func (m *Manager) nextPath() (string, error) {
	base := fmt.Sprintf("%s_%s", m.prefix, m.clock.Now().Format(TimestampLayout))
	path := filepath.Join(m.dir, base+".db")
	for i := 1; ; i++ {
		exists, err := afero.Exists(m.fs, path)
		if err != nil {
			return "", fmt.Errorf("checking backup path: %w", err)
		}
		if !exists {
			return path, nil
		}
		path = filepath.Join(m.dir, fmt.Sprintf("%s_%d.db", base, i))
	}
}

// writeAtomic writes to a temp file in the backup directory and renames it
// to path once fill succeeds.
func (m *Manager) writeAtomic(path string, fill func(io.Writer) error) (int64, error) {
	tmp, err := afero.TempFile(m.fs, filepath.Dir(path), ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			m.fs.Remove(tmpPath)
		}
	}()

	cw := &countingWriter{w: tmp}
	if err := fill(cw); err != nil {
		return 0, err
	}
	if err := tmp.Sync(); err != nil {
		return 0, fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err := m.fs.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("renaming temp file: %w", err)
	}
	success = true
	return cw.n, nil
}

// List returns the local backups, newest first.
func (m *Manager) List() ([]Info, error) {
	entries, err := afero.ReadDir(m.fs, m.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading backup directory: %w", err)
	}

	backups := []Info{}
	for _, e := range entries {
		if e.IsDir() || !m.isBackupName(e.Name()) {
			continue
		}
		backups = append(backups, Info{
			Name:    e.Name(),
			Path:    filepath.Join(m.dir, e.Name()),
			Size:    e.Size(),
			ModTime: e.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool { return backups[i].Name > backups[j].Name })
	return backups, nil
}

func (m *Manager) isBackupName(name string) bool {
	return strings.HasPrefix(name, m.prefix+"_") && strings.HasSuffix(name, ".db")
}

// Restore overwrites the live store with the backup at path. A bare file
// name is looked up in the backup directory. Restore refuses to run while
// another process holds the writer lock.
func (m *Manager) Restore(ctx context.Context, path string) error {
	src, err := m.resolve(path)
	if err != nil {
		return err
	}

	release, err := m.store.TryLockWriter()
	if err != nil {
		return fmt.Errorf("restoring %s: %w", src, err)
	}
	defer release()

	f, err := m.fs.Open(src)
	if err != nil {
		return fmt.Errorf("opening backup: %w", err)
	}
	defer f.Close()

	if err := m.store.Replace(ctx, f); err != nil {
		return fmt.Errorf("restoring %s: %w", src, err)
	}

	m.logger.Info("store restored", "from", src)
	return nil
}

func (m *Manager) resolve(path string) (string, error) {
	candidates := []string{path}
	if filepath.Base(path) == path {
		candidates = append(candidates, filepath.Join(m.dir, path))
	}
	for _, c := range candidates {
		info, err := m.fs.Stat(c)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("checking backup %s: %w", c, err)
		}
		if info.IsDir() {
			return "", fmt.Errorf("backup %s is a directory", c)
		}
		return c, nil
	}
	return "", fmt.Errorf("%w: %s", tracker.ErrBackupNotFound, path)
}

// Prune deletes all but the newest keep backups and returns the removed
// paths. keep <= 0 keeps everything.
func (m *Manager) Prune(keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	backups, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(backups) <= keep {
		return nil, nil
	}

	var removed []string
	for _, b := range backups[keep:] {
		if err := m.fs.Remove(b.Path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", b.Path, err)
		}
		removed = append(removed, b.Path)
	}
	m.logger.Info("old backups pruned", "removed", len(removed), "kept", keep)
	return removed, nil
}

// CreateAndPrune is the scheduled backup job.
func (m *Manager) CreateAndPrune(ctx context.Context, keep int) (string, error) {
	path, err := m.Create(ctx)
	if err != nil {
		return "", err
	}
	if _, err := m.Prune(keep); err != nil {
		return path, err
	}
	return path, nil
}

// Push copies a local backup to the vault under the host's namespace,
// sealing it first when an encryptor is configured. It returns the object
// name.
func (m *Manager) Push(ctx context.Context, path string) (string, error) {
	if m.vault == nil {
		return "", errors.New("no vault configured")
	}
	src, err := m.resolve(path)
	if err != nil {
		return "", err
	}

	data, err := afero.ReadFile(m.fs, src)
	if err != nil {
		return "", fmt.Errorf("reading backup: %w", err)
	}

	name := filepath.Base(src)
	if m.enc != nil {
		if !m.enc.IsConfigured() {
			return "", errors.New("encryption keys are missing (run 'pstalker keys init')")
		}
		var sealed bytes.Buffer
		if err := m.enc.Encrypt(bytes.NewReader(data), &sealed); err != nil {
			return "", fmt.Errorf("encrypting backup: %w", err)
		}
		data = sealed.Bytes()
		name += EncryptedSuffix
	}

	if err := m.vault.Put(ctx, m.hostID, name, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("uploading %s to vault %s: %w", name, m.vault.Name(), err)
	}

	m.logger.Info("backup pushed", "vault", m.vault.Name(), "name", name, "bytes", len(data))
	return name, nil
}

// NeedsPassphrase reports whether pulling name requires unlocking the
// private key.
func NeedsPassphrase(name string) bool {
	return strings.HasSuffix(name, EncryptedSuffix)
}

// Pull downloads a vault object into the local backup directory, decrypting
// sealed objects with passphrase, and returns the local path. An existing
// local file is never overwritten.
func (m *Manager) Pull(ctx context.Context, name, passphrase string) (string, error) {
	if m.vault == nil {
		return "", errors.New("no vault configured")
	}

	local := filepath.Join(m.dir, filepath.Base(strings.TrimSuffix(name, EncryptedSuffix)))
	exists, err := afero.Exists(m.fs, local)
	if err != nil {
		return "", fmt.Errorf("checking %s: %w", local, err)
	}
	if exists {
		return "", fmt.Errorf("local backup %s already exists", local)
	}

	var fetched bytes.Buffer
	if err := m.vault.Get(ctx, m.hostID, name, &fetched); err != nil {
		return "", fmt.Errorf("downloading %s from vault %s: %w", name, m.vault.Name(), err)
	}

	var dc DecryptionContext
	if NeedsPassphrase(name) {
		if m.enc == nil {
			return "", fmt.Errorf("%s is encrypted but no encryptor is configured", name)
		}
		if dc, err = m.enc.Unlock(passphrase); err != nil {
			return "", fmt.Errorf("unlocking private key: %w", err)
		}
	}

	if err := m.fs.MkdirAll(m.dir, 0755); err != nil {
		return "", fmt.Errorf("creating backup directory: %w", err)
	}
	_, err = m.writeAtomic(local, func(w io.Writer) error {
		if dc != nil {
			return dc.Decrypt(&fetched, w)
		}
		_, err := io.Copy(w, &fetched)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("writing pulled backup: %w", err)
	}

	m.logger.Info("backup pulled", "vault", m.vault.Name(), "name", name, "path", local)
	return local, nil
}

// ListRemote returns the host's vault objects, newest first.
func (m *Manager) ListRemote(ctx context.Context) ([]string, error) {
	if m.vault == nil {
		return nil, errors.New("no vault configured")
	}
	names, err := m.vault.List(ctx, m.hostID)
	if err != nil {
		return nil, fmt.Errorf("listing vault %s: %w", m.vault.Name(), err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
