package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"pstalker/internal/backup"
	"pstalker/internal/tracker"
)

// FileSystemVault stores backups in a directory, typically a mounted
// network share or removable drive:
//
//	<root>/
//	  <hostID>/
//	    pstalker_2024-01-15_10-30-00.db.age
type FileSystemVault struct {
	name string
	root string
}

var _ backup.Vault = (*FileSystemVault)(nil)

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create vault root: %w", err)
	}
	return &FileSystemVault{name: name, root: root}, nil
}

func (v *FileSystemVault) Name() string { return v.name }

func (v *FileSystemVault) Put(_ context.Context, hostID, name string, r io.Reader, size int64) error {
	if err := validateKey(hostID, name); err != nil {
		return err
	}
	hostDir := filepath.Join(v.root, hostID)
	if err := os.MkdirAll(hostDir, 0755); err != nil {
		return fmt.Errorf("failed to create host directory: %w", err)
	}
	return writeFile(filepath.Join(hostDir, name), r, size)
}

func (v *FileSystemVault) Get(_ context.Context, hostID, name string, w io.Writer) error {
	if err := validateKey(hostID, name); err != nil {
		return err
	}
	f, err := os.Open(filepath.Join(v.root, hostID, name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %s/%s in vault %s", tracker.ErrBackupNotFound, hostID, name, v.name)
	}
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

func (v *FileSystemVault) List(_ context.Context, hostID string) ([]string, error) {
	if err := validateKey(hostID, "-"); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(filepath.Join(v.root, hostID))
	if errors.Is(err, os.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading host directory: %w", err)
	}

	names := []string{}
	for _, e := range entries {
		if e.Type().IsRegular() && e.Name()[0] != '.' {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// ValidateSetup verifies that the vault root exists and is a directory.
func (v *FileSystemVault) ValidateSetup(context.Context) error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}
	return nil
}

// writeFile writes exactly expectedSize bytes from r to destPath via a temp
// file in the same directory and a rename.
func writeFile(destPath string, r io.Reader, expectedSize int64) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
