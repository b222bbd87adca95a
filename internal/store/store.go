// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/midori/internal/config"
	"github.com/ashureev/midori/internal/domain"
)

// Items is per-owner key/value storage with whole-value reads and writes,
// the server-side stand-in for a browser's local storage.
type Items interface {
	// GetItem returns the stored value, or nil when the key has never been set.
	GetItem(ctx context.Context, ownerID, key string) ([]byte, error)

	// SetItem replaces the value stored under key.
	SetItem(ctx context.Context, ownerID, key string, value []byte) error

	// RemoveItem deletes the key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, ownerID, key string) error
}

// Repository defines the interface for persisting users and their local storage.
type Repository interface {
	Items

	// GetUser retrieves a user by their user ID. Returns nil, nil when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// GetInactiveUsers lists users not seen since before the given cutoff.
	GetInactiveUsers(ctx context.Context, cutoff time.Time) ([]*domain.User, error)

	// DeleteUser removes a user together with every item they own.
	DeleteUser(ctx context.Context, userID string) error

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

// Open builds the repository selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig) (Repository, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return NewSQLite(cfg.DBPath)
	case config.DriverPostgres:
		return NewPostgres(ctx, cfg.DatabaseURL)
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
