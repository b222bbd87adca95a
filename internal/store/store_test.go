package store

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/ashureev/midori/internal/config"
	"github.com/ashureev/midori/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(id string, lastSeen time.Time) *domain.User {
	return &domain.User{
		UserID:     id,
		Username:   "anon-" + id,
		LastSeenAt: lastSeen,
		CreatedAt:  lastSeen,
		UpdatedAt:  lastSeen,
	}
}

// exerciseRepository runs the same contract against every backend.
func exerciseRepository(t *testing.T, repo Repository) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing user is nil", func(t *testing.T) {
		user, err := repo.GetUser(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("upsert and get user", func(t *testing.T) {
		now := time.Now().Truncate(time.Second)
		require.NoError(t, repo.UpsertUser(ctx, newUser("u1", now)))

		user, err := repo.GetUser(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.Equal(t, "anon-u1", user.Username)
		assert.True(t, user.LastSeenAt.Equal(now))
	})

	t.Run("missing item is nil", func(t *testing.T) {
		value, err := repo.GetItem(ctx, "u1", "midori_drafts")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("set replaces whole value", func(t *testing.T) {
		require.NoError(t, repo.SetItem(ctx, "u1", "midori_drafts", []byte(`[1]`)))
		require.NoError(t, repo.SetItem(ctx, "u1", "midori_drafts", []byte(`[1,2]`)))

		value, err := repo.GetItem(ctx, "u1", "midori_drafts")
		require.NoError(t, err)
		assert.Equal(t, `[1,2]`, string(value))
	})

	t.Run("items are scoped by owner", func(t *testing.T) {
		value, err := repo.GetItem(ctx, "u2", "midori_drafts")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("remove item", func(t *testing.T) {
		require.NoError(t, repo.SetItem(ctx, "u1", "scratch", []byte(`x`)))
		require.NoError(t, repo.RemoveItem(ctx, "u1", "scratch"))
		require.NoError(t, repo.RemoveItem(ctx, "u1", "scratch"))

		value, err := repo.GetItem(ctx, "u1", "scratch")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("inactive users and delete cascade", func(t *testing.T) {
		old := time.Now().Add(-48 * time.Hour).Truncate(time.Second)
		require.NoError(t, repo.UpsertUser(ctx, newUser("stale", old)))
		require.NoError(t, repo.SetItem(ctx, "stale", "midori_projects", []byte(`[]`)))

		inactive, err := repo.GetInactiveUsers(ctx, time.Now().Add(-24*time.Hour))
		require.NoError(t, err)
		ids := make([]string, 0, len(inactive))
		for _, u := range inactive {
			ids = append(ids, u.UserID)
		}
		assert.Contains(t, ids, "stale")
		assert.NotContains(t, ids, "u1")

		require.NoError(t, repo.DeleteUser(ctx, "stale"))
		user, err := repo.GetUser(ctx, "stale")
		require.NoError(t, err)
		assert.Nil(t, user)
		value, err := repo.GetItem(ctx, "stale", "midori_projects")
		require.NoError(t, err)
		assert.Nil(t, value)
	})

	t.Run("update last seen", func(t *testing.T) {
		later := time.Now().Add(time.Hour).Truncate(time.Second)
		require.NoError(t, repo.UpdateLastSeen(ctx, "u1", later))
		user, err := repo.GetUser(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, user)
		assert.True(t, user.LastSeenAt.Equal(later))
	})

	require.NoError(t, repo.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseRepository(t, NewMemory())
}

func TestSQLiteStore(t *testing.T) {
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "nested", "midori.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	exerciseRepository(t, repo)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("MIDORI_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("MIDORI_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	repo, err := NewPostgres(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() {
		for _, id := range []string{"u1", "u2", "stale"} {
			_ = repo.DeleteUser(ctx, id)
		}
		_ = repo.Close()
	})

	exerciseRepository(t, repo)
}

func TestOpenSelectsDriver(t *testing.T) {
	repo, err := Open(context.Background(), config.StorageConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, repo)

	_, err = Open(context.Background(), config.StorageConfig{Driver: "redis"})
	assert.Error(t, err)
}

func TestSweepInactiveUsers(t *testing.T) {
	ctx := context.Background()
	repo := NewMemory()
	now := time.Now()

	require.NoError(t, repo.UpsertUser(ctx, newUser("fresh", now)))
	require.NoError(t, repo.UpsertUser(ctx, newUser("old", now.Add(-100*24*time.Hour))))
	require.NoError(t, repo.SetItem(ctx, "old", "midori_drafts", []byte(`[]`)))

	var cleaned []string
	removed := SweepInactiveUsers(ctx, repo, 90*24*time.Hour, now, func(userID string) {
		cleaned = append(cleaned, userID)
	})

	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"old"}, cleaned)

	user, err := repo.GetUser(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, user)
	value, err := repo.GetItem(ctx, "old", "midori_drafts")
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestForgetOwnerDropsOnlyThatOwnersLocks(t *testing.T) {
	for _, key := range []string{"midori_drafts", "midori_projects"} {
		LockItem("forget-me", key)()
	}
	LockItem("forget-me-not", "midori_drafts")()

	assert.Equal(t, 2, ForgetOwner("forget-me"))
	assert.Zero(t, ForgetOwner("forget-me"))
	assert.Equal(t, 1, ForgetOwner("forget-me-not"))

	unlock := LockItem("forget-me", "midori_drafts")
	unlock()
}

func TestNewSQLiteReleasesHandleOnFailure(t *testing.T) {
	dir := t.TempDir()

	before := runtime.NumGoroutine()
	for i := 0; i < 20; i++ {
		_, err := NewSQLite(dir)
		require.Error(t, err, "a directory is not a database file")
	}
	time.Sleep(50 * time.Millisecond)

	assert.Less(t, runtime.NumGoroutine()-before, 10, "failed opens must close their *sql.DB")
}
