package editor

import (
	"context"
	"time"

	"github.com/ashureev/midori/internal/drafts"
	"github.com/ashureev/midori/internal/session"
	"github.com/ashureev/midori/internal/store"
)

// Manager owns one editor per user and tab session.
type Manager struct {
	generator Generator
	items     store.Items
	renderer  Renderer
	sessions  *session.Registry[*Session]
}

// NewManager creates a Manager whose editors keep drafts in items.
func NewManager(generator Generator, items store.Items, renderer Renderer) *Manager {
	return &Manager{
		generator: generator,
		items:     items,
		renderer:  renderer,
		sessions:  session.NewRegistry[*Session]("editor"),
	}
}

// Get returns the session's editor, starting one if needed.
func (m *Manager) Get(userID, sessionID string) *Session {
	return m.sessions.GetOrCreate(userID, sessionID, func() *Session {
		return NewSession(userID, sessionID, m.generator, drafts.NewStore(m.items, userID), m.renderer)
	})
}

// Current returns the document a session's preview should show.
func (m *Manager) Current(userID, sessionID string) string {
	return m.Get(userID, sessionID).Code()
}

// DropUser discards every editor a user has open.
func (m *Manager) DropUser(userID string) {
	m.sessions.DeleteUser(userID)
}

// StartIdleSweeper drops editors whose tab has not made a request within idle.
func (m *Manager) StartIdleSweeper(ctx context.Context, idle time.Duration) {
	m.sessions.StartIdleSweeper(ctx, idle)
}

// SweepIdle drops idle editors now and returns how many were dropped.
func (m *Manager) SweepIdle(idle time.Duration) int {
	return m.sessions.SweepIdle(idle)
}

// Len returns the number of live editors.
func (m *Manager) Len() int {
	return m.sessions.Len()
}
