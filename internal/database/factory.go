package database

import (
	"context"
	"fmt"
	"time"

	"pstalker/internal/config"
)

// NewStoreFromConfig opens the store described by cfg.
func NewStoreFromConfig(ctx context.Context, cfg config.DatabaseConfig) (*SQLiteStore, error) {
	switch cfg.Type {
	case "", "sqlite":
		if cfg.Path == "" {
			return nil, fmt.Errorf("path required for sqlite store")
		}
		return NewSQLiteStore(ctx, cfg.Path, time.Duration(cfg.BusyTimeout))
	default:
		return nil, fmt.Errorf("unknown database type: %s", cfg.Type)
	}
}
