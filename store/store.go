// Package store persists the most recent snapshot between runs.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aluiziolira/pricewatch/config"
	"github.com/aluiziolira/pricewatch/models"
)

var (
	// ErrCorrupt marks persisted state that exists but cannot be decoded.
	// Load returns an empty snapshot alongside it.
	ErrCorrupt = errors.New("store: corrupt snapshot")

	// ErrWrite marks a failed Save. The previous state is left untouched.
	ErrWrite = errors.New("store: write failed")
)

// Store keeps exactly one snapshot.
type Store interface {
	// Load returns the persisted snapshot, or an empty one when nothing has
	// been saved yet.
	Load(ctx context.Context) (models.Snapshot, error)

	// Save replaces the persisted snapshot. Readers observe either the old
	// or the new snapshot, never a mix.
	Save(ctx context.Context, snapshot models.Snapshot) error

	Close() error
}

// Open returns the backend selected by cfg.StoreBackend.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.StoreBackend {
	case config.BackendJSON:
		return NewJSONStore(cfg.StorePath), nil
	case config.BackendSQLite:
		return NewSQLite(ctx, cfg.StorePath)
	case config.BackendPostgres:
		return NewPostgres(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.StoreBackend)
	}
}
