package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pstalker/internal/database"
)

// NewTestStore creates a SQLite store in a temp directory with the schema
// applied. The store is closed when the test completes.
func NewTestStore(t *testing.T) *database.SQLiteStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "pstalker.db")
	store, err := database.NewSQLiteStore(context.Background(), path, time.Second)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}

	t.Cleanup(func() {
		store.Close()
	})

	return store
}
