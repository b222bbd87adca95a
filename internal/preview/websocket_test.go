package preview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/midori/internal/identity"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
)

func TestWebSocketStreamsCurrentThenUpdates(t *testing.T) {
	hub := NewHub(4)
	handler := NewWebSocketHandler(hub, func(userID, sessionID string) string {
		return "<p>" + userID + "/" + sessionID + "</p>"
	}, "*", true)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r.WithContext(identity.WithIdentity(r.Context(), "anon_1", "tab-1")))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	var first Frame
	if err := wsjson.Read(ctx, conn, &first); err != nil {
		t.Fatalf("read initial frame: %v", err)
	}
	if first.Document != "<p>anon_1/tab-1</p>" {
		t.Fatalf("unexpected initial document %q", first.Document)
	}

	// The subscription is registered before the initial frame is written.
	if n := hub.Publish("anon_1", "tab-1", "<p>edited</p>"); n != 1 {
		t.Fatalf("expected one viewer, got %d", n)
	}

	var next Frame
	if err := wsjson.Read(ctx, conn, &next); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if next.Type != FrameRender || next.Document != "<p>edited</p>" {
		t.Fatalf("unexpected update %+v", next)
	}
}

func TestCheckOrigin(t *testing.T) {
	h := NewWebSocketHandler(NewHub(1), nil, "https://midori.example", false)

	req := httptest.NewRequest(http.MethodGet, "/ws/preview", nil)
	req.Header.Set("Origin", "https://evil.example")
	if h.checkOrigin(req) {
		t.Fatal("expected foreign origin to be rejected")
	}
	req.Header.Set("Origin", "https://midori.example")
	if !h.checkOrigin(req) {
		t.Fatal("expected configured origin to be accepted")
	}
}
