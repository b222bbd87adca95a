// Package preview renders website documents in a sandbox and pushes them to live viewers.
package preview

import (
	"log/slog"
	"sync"
)

// FrameRender is the only frame type sent to viewers.
const FrameRender = "render"

// Frame carries a whole document. Viewers replace, never patch.
type Frame struct {
	Type     string `json:"type"`
	Document string `json:"document"`
}

type sessionKey struct {
	userID    string
	sessionID string
}

// Subscription receives frames for one user and tab session.
type Subscription struct {
	C   <-chan Frame
	ch  chan Frame
	key sessionKey
}

// Hub fans documents out to every viewer of a session. A slow viewer loses
// its oldest queued frame instead of blocking the publisher.
type Hub struct {
	buffer int

	mu   sync.Mutex
	subs map[sessionKey]map[*Subscription]struct{}
}

// NewHub creates a hub whose per-viewer queue holds buffer frames.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 1
	}
	return &Hub{
		buffer: buffer,
		subs:   make(map[sessionKey]map[*Subscription]struct{}),
	}
}

// Subscribe registers a viewer. Call the returned func to unsubscribe.
func (h *Hub) Subscribe(userID, sessionID string) (*Subscription, func()) {
	ch := make(chan Frame, h.buffer)
	sub := &Subscription{C: ch, ch: ch, key: sessionKey{userID, sessionID}}

	h.mu.Lock()
	if h.subs[sub.key] == nil {
		h.subs[sub.key] = make(map[*Subscription]struct{})
	}
	h.subs[sub.key][sub] = struct{}{}
	h.mu.Unlock()

	slog.Debug("Preview viewer subscribed", "user_id", userID, "session_id", sessionID)

	return sub, func() { h.unsubscribe(sub) }
}

func (h *Hub) unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	viewers := h.subs[sub.key]
	if _, ok := viewers[sub]; !ok {
		return
	}
	delete(viewers, sub)
	if len(viewers) == 0 {
		delete(h.subs, sub.key)
	}
	close(sub.ch)
	slog.Debug("Preview viewer unsubscribed", "user_id", sub.key.userID, "session_id", sub.key.sessionID)
}

// Publish sends document to every viewer of the session and returns how many were reached.
func (h *Hub) Publish(userID, sessionID, document string) int {
	frame := Frame{Type: FrameRender, Document: document}

	h.mu.Lock()
	defer h.mu.Unlock()

	viewers := h.subs[sessionKey{userID, sessionID}]
	for sub := range viewers {
		select {
		case sub.ch <- frame:
			continue
		default:
		}
		// Queue full: drop the oldest frame and retry once.
		select {
		case <-sub.ch:
		default:
		}
		select {
		case sub.ch <- frame:
		default:
			slog.Warn("Preview frame dropped", "user_id", userID, "session_id", sessionID)
		}
	}
	return len(viewers)
}

// Viewers returns the number of live viewers of a session.
func (h *Hub) Viewers(userID, sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[sessionKey{userID, sessionID}])
}

// CloseUser disconnects every viewer belonging to a user. Their channels close.
func (h *Hub) CloseUser(userID string) {
	h.mu.Lock()
	var doomed []*Subscription
	for key, viewers := range h.subs {
		if key.userID != userID {
			continue
		}
		for sub := range viewers {
			doomed = append(doomed, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range doomed {
		h.unsubscribe(sub)
	}
}
