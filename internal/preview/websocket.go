package preview

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/midori/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

const writeTimeout = 10 * time.Second

// CurrentDocument returns what a new viewer should see first.
type CurrentDocument func(userID, sessionID string) string

// WebSocketHandler streams render frames for the caller's tab session.
type WebSocketHandler struct {
	hub           *Hub
	current       CurrentDocument
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(hub *Hub, current CurrentDocument, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		hub:           hub,
		current:       current,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("Preview WebSocket request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "preview ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	sub, unsubscribe := h.hub.Subscribe(userID, sessionID)
	defer unsubscribe()

	// Viewers only listen; CloseRead handles control frames and reports disconnects.
	ctx := ws.CloseRead(r.Context())

	if h.current != nil {
		if err := writeFrame(ctx, ws, Frame{Type: FrameRender, Document: h.current(userID, sessionID)}); err != nil {
			slog.Debug("Failed to send initial preview", "error", err, "user_id", userID)
			return
		}
	}

	for {
		select {
		case frame, ok := <-sub.C:
			if !ok {
				return
			}
			if err := writeFrame(ctx, ws, frame); err != nil {
				if ctx.Err() == nil {
					slog.Debug("Preview write error", "error", err, "user_id", userID)
				}
				return
			}
		case <-ctx.Done():
			slog.Debug("Preview viewer disconnected", "user_id", userID, "session_id", sessionID)
			return
		}
	}
}

func writeFrame(ctx context.Context, ws *websocket.Conn, frame Frame) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, frame)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}
