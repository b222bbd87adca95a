package conversation

import (
	"context"
	"time"

	"github.com/ashureev/midori/internal/domain"
	"github.com/ashureev/midori/internal/session"
)

// Manager owns one conversation per user and tab session.
type Manager struct {
	refiner  Refiner
	log      ConversationLogger
	sessions *session.Registry[*Conversation]
}

// NewManager creates a Manager. A nil log discards transcripts.
func NewManager(refiner Refiner, log ConversationLogger) *Manager {
	if log == nil {
		log = noopConversationLogger{}
	}
	return &Manager{
		refiner:  refiner,
		log:      log,
		sessions: session.NewRegistry[*Conversation]("conversation"),
	}
}

// Get returns the session's conversation, starting one if needed.
func (m *Manager) Get(userID, sessionID string) *Conversation {
	return m.sessions.GetOrCreate(userID, sessionID, func() *Conversation {
		return New(m.refiner, m.observer(userID, sessionID))
	})
}

// Reset drops the session's conversation. The next Get starts fresh.
func (m *Manager) Reset(userID, sessionID string) {
	m.sessions.Delete(userID, sessionID)
}

// DropUser drops every conversation a user has open.
func (m *Manager) DropUser(userID string) {
	m.sessions.DeleteUser(userID)
}

func (m *Manager) observer(userID, sessionID string) func(domain.ChatMessage) {
	return func(msg domain.ChatMessage) {
		direction, eventType := "inbound", "chat_assistant_message"
		if msg.Role == domain.RoleUser {
			direction, eventType = "outbound", "chat_user_message"
		}
		m.log.Log(ConversationLogEvent{
			Timestamp:  msg.Timestamp.UTC().Format(time.RFC3339Nano),
			UserID:     userID,
			SessionID:  sessionID,
			Channel:    "chat_http",
			Direction:  direction,
			EventType:  eventType,
			ContentRaw: msg.Content,
			Content:    cleanForReadability(msg.Content),
		})
	}
}

// StartIdleSweeper drops conversations whose tab has not made a request within idle.
func (m *Manager) StartIdleSweeper(ctx context.Context, idle time.Duration) {
	m.sessions.StartIdleSweeper(ctx, idle)
}

// SweepIdle drops idle conversations now and returns how many were dropped.
func (m *Manager) SweepIdle(idle time.Duration) int {
	return m.sessions.SweepIdle(idle)
}

// Len returns the number of live conversations.
func (m *Manager) Len() int {
	return m.sessions.Len()
}
