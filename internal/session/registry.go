// Package session holds per-tab state for anonymous users in process memory.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const minSweepInterval = time.Second

type entry[T any] struct {
	value      T
	lastAccess time.Time
}

// Registry maps (user, tab session) to a value of type T. Every lookup
// refreshes the entry's last access so idle tabs can be swept.
type Registry[T any] struct {
	name   string
	now    func() time.Time
	mu     sync.Mutex
	active map[string]map[string]*entry[T]
}

// NewRegistry creates an empty registry. name only labels log lines.
func NewRegistry[T any](name string) *Registry[T] {
	return &Registry[T]{
		name:   name,
		now:    time.Now,
		active: make(map[string]map[string]*entry[T]),
	}
}

// Get returns the value for a user and session.
func (r *Registry[T]) Get(userID, sessionID string) (T, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.active[userID][sessionID]; ok {
		e.lastAccess = r.now()
		return e.value, true
	}
	var zero T
	return zero, false
}

// GetOrCreate returns the existing value or stores the one built by create.
// create runs under the registry lock and must not call back into it.
func (r *Registry[T]) GetOrCreate(userID, sessionID string, create func() T) T {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if e, ok := r.active[userID][sessionID]; ok {
		e.lastAccess = now
		return e.value
	}

	if _, exists := r.active[userID]; !exists {
		r.active[userID] = make(map[string]*entry[T])
	}
	v := create()
	r.active[userID][sessionID] = &entry[T]{value: v, lastAccess: now}
	slog.Debug("Session registered", "registry", r.name, "user_id", userID, "session_id", sessionID)
	return v
}

// Delete removes one session's value.
func (r *Registry[T]) Delete(userID, sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.active[userID]
	if !ok {
		return false
	}
	if _, exists := sessions[sessionID]; !exists {
		return false
	}
	delete(sessions, sessionID)
	if len(sessions) == 0 {
		delete(r.active, userID)
	}
	slog.Debug("Session removed", "registry", r.name, "user_id", userID, "session_id", sessionID)
	return true
}

// DeleteUser drops every session belonging to a user.
func (r *Registry[T]) DeleteUser(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.active[userID])
	delete(r.active, userID)
	if n > 0 {
		slog.Info("User sessions removed", "registry", r.name, "user_id", userID, "count", n)
	}
	return n
}

// SweepIdle removes sessions not accessed within idle and returns how many
// were removed. A non-positive idle removes nothing.
func (r *Registry[T]) SweepIdle(idle time.Duration) int {
	if idle <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-idle)
	removed := 0
	for userID, sessions := range r.active {
		for sessionID, e := range sessions {
			if e.lastAccess.Before(cutoff) {
				delete(sessions, sessionID)
				removed++
			}
		}
		if len(sessions) == 0 {
			delete(r.active, userID)
		}
	}
	if removed > 0 {
		slog.Info("Idle sessions removed", "registry", r.name, "count", removed)
	}
	return removed
}

// StartIdleSweeper runs SweepIdle in the background until ctx is done.
// It checks every quarter of idle and does nothing when idle <= 0.
func (r *Registry[T]) StartIdleSweeper(ctx context.Context, idle time.Duration) {
	if idle <= 0 {
		slog.Info("Idle session sweeper disabled", "registry", r.name)
		return
	}
	interval := idle / 4
	if interval < minSweepInterval {
		interval = minSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.SweepIdle(idle)
			}
		}
	}()
}

// Len returns the number of live sessions across all users.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, sessions := range r.active {
		n += len(sessions)
	}
	return n
}
