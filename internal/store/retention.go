package store

import (
	"context"
	"log/slog"
	"time"
)

const retentionWorkerInterval = 1 * time.Hour

// CleanupCallback is called for every user removed by the retention worker.
type CleanupCallback func(userID string)

// StartRetentionWorker runs a background goroutine that periodically deletes
// anonymous users not seen within retention, together with their stored items.
func StartRetentionWorker(ctx context.Context, repo Repository, retention time.Duration, onCleanup CleanupCallback) {
	if retention <= 0 {
		slog.Info("Retention worker disabled")
		return
	}

	ticker := time.NewTicker(retentionWorkerInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Retention worker started", "interval", retentionWorkerInterval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				SweepInactiveUsers(ctx, repo, retention, time.Now(), onCleanup)
			case <-ctx.Done():
				slog.Info("Retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}

// SweepInactiveUsers runs one retention pass and returns how many users were removed.
func SweepInactiveUsers(ctx context.Context, repo Repository, retention time.Duration, now time.Time, onCleanup CleanupCallback) int {
	users, err := repo.GetInactiveUsers(ctx, now.Add(-retention))
	if err != nil {
		slog.Error("Retention worker failed to list inactive users", "error", err)
		return 0
	}
	if len(users) == 0 {
		return 0
	}

	slog.Info("Retention worker found inactive users", "count", len(users))

	removed := 0
	for _, user := range users {
		if !user.Inactive(retention, now) {
			continue
		}
		if err := repo.DeleteUser(ctx, user.UserID); err != nil {
			if ctx.Err() != nil {
				slog.Debug("Retention worker: context canceled, sweep incomplete", "user_id", user.UserID)
				return removed
			}
			slog.Warn("Retention worker failed to delete user", "error", err, "user_id", user.UserID)
			continue
		}
		removed++
		if onCleanup != nil {
			onCleanup(user.UserID)
		}
	}

	slog.Info("Retention worker cleanup completed", "cleaned", removed)
	return removed
}
