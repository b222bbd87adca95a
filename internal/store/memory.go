package store

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/midori/internal/domain"
)

type itemKey struct {
	owner string
	key   string
}

// MemoryStore is a process-local Repository. Data does not survive restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
	items map[itemKey][]byte
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]domain.User),
		items: make(map[itemKey][]byte),
	}
}

func (m *MemoryStore) GetUser(_ context.Context, userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[userID]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

func (m *MemoryStore) UpsertUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *user
	if existing, ok := m.users[user.UserID]; ok {
		stored.CreatedAt = existing.CreatedAt
	}
	m.users[user.UserID] = stored
	return nil
}

func (m *MemoryStore) UpdateLastSeen(_ context.Context, userID string, lastSeen time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[userID]
	if !ok {
		return nil
	}
	user.LastSeenAt = lastSeen
	user.UpdatedAt = time.Now()
	m.users[userID] = user
	return nil
}

func (m *MemoryStore) GetInactiveUsers(_ context.Context, cutoff time.Time) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*domain.User
	for _, user := range m.users {
		if user.LastSeenAt.Before(cutoff) {
			u := user
			out = append(out, &u)
		}
	}
	return out, nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
	for k := range m.items {
		if k.owner == userID {
			delete(m.items, k)
		}
	}
	return nil
}

func (m *MemoryStore) GetItem(_ context.Context, ownerID, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[itemKey{ownerID, key}]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) SetItem(_ context.Context, ownerID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[itemKey{ownerID, key}] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryStore) RemoveItem(_ context.Context, ownerID, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, itemKey{ownerID, key})
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }
func (m *MemoryStore) Close() error               { return nil }
