package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ashureev/midori/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Repository on a shared Postgres database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects a pgx pool and ensures the schema exists.
func NewPostgres(ctx context.Context, databaseURL string) (Repository, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		last_seen_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_users_last_seen ON users(last_seen_at);

	CREATE TABLE IF NOT EXISTS local_items (
		owner_id TEXT NOT NULL,
		item_key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (owner_id, item_key)
	);`)
	if err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *PostgresStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	var user domain.User
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = $1`, userID,
	).Scan(&user.UserID, &user.Username, &user.LastSeenAt, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *PostgresStore) UpsertUser(ctx context.Context, user *domain.User) error {
	_, err := s.pool.Exec(ctx, `
	INSERT INTO users (user_id, username, last_seen_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (user_id) DO UPDATE SET
		username = EXCLUDED.username,
		last_seen_at = EXCLUDED.last_seen_at,
		updated_at = EXCLUDED.updated_at`,
		user.UserID, user.Username, user.LastSeenAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *PostgresStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE users SET last_seen_at = $1, updated_at = $2 WHERE user_id = $3`,
		lastSeen, time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}
	return nil
}

// GetInactiveUsers lists users whose last_seen_at is before cutoff.
func (s *PostgresStore) GetInactiveUsers(ctx context.Context, cutoff time.Time) ([]*domain.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT user_id, username, last_seen_at, created_at, updated_at
		FROM users WHERE last_seen_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query inactive users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.UserID, &user.Username, &user.LastSeenAt, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inactive user row: %w", err)
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inactive users: %w", err)
	}
	return users, nil
}

// DeleteUser removes the user and all of their items in one transaction.
func (s *PostgresStore) DeleteUser(ctx context.Context, userID string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete user: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM local_items WHERE owner_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user items: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return tx.Commit(ctx)
}

// GetItem returns the stored value for (ownerID, key), or nil when absent.
func (s *PostgresStore) GetItem(ctx context.Context, ownerID, key string) ([]byte, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM local_items WHERE owner_id = $1 AND item_key = $2`,
		ownerID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", key, err)
	}
	return []byte(value), nil
}

// SetItem replaces the value for (ownerID, key).
func (s *PostgresStore) SetItem(ctx context.Context, ownerID, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
	INSERT INTO local_items (owner_id, item_key, value, updated_at)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (owner_id, item_key) DO UPDATE SET
		value = EXCLUDED.value,
		updated_at = EXCLUDED.updated_at`,
		ownerID, key, string(value), time.Now(),
	)
	if err != nil {
		return fmt.Errorf("set item %s: %w", key, err)
	}
	return nil
}

// RemoveItem deletes (ownerID, key).
func (s *PostgresStore) RemoveItem(ctx context.Context, ownerID, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM local_items WHERE owner_id = $1 AND item_key = $2`, ownerID, key); err != nil {
		return fmt.Errorf("remove item %s: %w", key, err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
