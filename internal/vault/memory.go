package vault

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"pstalker/internal/backup"
	"pstalker/internal/tracker"
)

// MemoryVault keeps objects in memory. Useful for tests. Safe for concurrent use.
type MemoryVault struct {
	name    string
	mu      sync.RWMutex
	objects map[string][]byte // "hostID/name" -> data
}

var _ backup.Vault = (*MemoryVault)(nil)

// NewMemoryVault creates a new in-memory vault with the given name.
func NewMemoryVault(name string) *MemoryVault {
	return &MemoryVault{name: name, objects: make(map[string][]byte)}
}

func objectKey(hostID, name string) string {
	return hostID + "/" + name
}

func (m *MemoryVault) Name() string { return m.name }

func (m *MemoryVault) Put(_ context.Context, hostID, name string, r io.Reader, size int64) error {
	if err := validateKey(hostID, name); err != nil {
		return err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading object: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectKey(hostID, name)] = data
	return nil
}

func (m *MemoryVault) Get(_ context.Context, hostID, name string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.objects[objectKey(hostID, name)]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s/%s in vault %s", tracker.ErrBackupNotFound, hostID, name, m.name)
	}
	_, err := w.Write(data)
	return err
}

func (m *MemoryVault) List(_ context.Context, hostID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	prefix := hostID + "/"
	names := []string{}
	for key := range m.objects {
		if name, ok := strings.CutPrefix(key, prefix); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryVault) ValidateSetup(context.Context) error {
	return nil
}
