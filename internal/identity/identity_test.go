package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ashureev/midori/internal/domain"
	"github.com/ashureev/midori/internal/store"
)

func serve(t *testing.T, repo Users, req *http.Request) (*httptest.ResponseRecorder, string, string) {
	t.Helper()
	var gotUser, gotSession string
	h := Middleware(repo, true)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotSession = SessionIDFromContext(r.Context())
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr, gotUser, gotSession
}

func TestMiddlewareIssuesCookieAndCreatesUser(t *testing.T) {
	repo := store.NewMemory()
	rr, userID, sessionID := serve(t, repo, httptest.NewRequest(http.MethodGet, "/api/drafts", nil))

	if !isValidAnonID(userID) {
		t.Fatalf("expected generated anon id, got %q", userID)
	}
	if sessionID != DefaultSessionIDValue {
		t.Fatalf("expected default session, got %q", sessionID)
	}

	var cookie *http.Cookie
	for _, c := range rr.Result().Cookies() {
		if c.Name == AnonCookieName {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != userID {
		t.Fatalf("expected %s cookie carrying %q", AnonCookieName, userID)
	}
	if !cookie.HttpOnly {
		t.Fatal("expected HttpOnly cookie")
	}

	user, err := repo.GetUser(context.Background(), userID)
	if err != nil || user == nil {
		t.Fatalf("expected user to be created, got %v, %v", user, err)
	}
}

func TestMiddlewareReusesValidCookie(t *testing.T) {
	repo := store.NewMemory()
	id := "anon_0123456789abcdef0123456789abcdef"

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	req.Header.Set(SessionHeaderName, "tab-7")
	_, userID, sessionID := serve(t, repo, req)

	if userID != id {
		t.Fatalf("expected %q, got %q", id, userID)
	}
	if sessionID != "tab-7" {
		t.Fatalf("expected tab-7, got %q", sessionID)
	}
}

func TestMiddlewareRejectsForgedCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "../../etc/passwd"})
	_, userID, _ := serve(t, store.NewMemory(), req)

	if userID == "../../etc/passwd" || !isValidAnonID(userID) {
		t.Fatalf("expected a fresh id, got %q", userID)
	}
}

func TestMiddlewareRefreshesLastSeen(t *testing.T) {
	repo := store.NewMemory()
	id := "anon_0123456789abcdef0123456789abcdef"
	old := time.Now().Add(-48 * time.Hour)
	if err := repo.UpsertUser(context.Background(), &domain.User{UserID: id, LastSeenAt: old, CreatedAt: old, UpdatedAt: old}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: id})
	serve(t, repo, req)

	user, _ := repo.GetUser(context.Background(), id)
	if user == nil || !user.LastSeenAt.After(old) {
		t.Fatalf("expected last_seen_at to move forward, got %+v", user)
	}
}

func TestSanitizeSessionID(t *testing.T) {
	tests := map[string]string{
		"":          DefaultSessionIDValue,
		"  ":        DefaultSessionIDValue,
		"tab-1":     "tab-1",
		"..":        DefaultSessionIDValue,
		"a/b":       DefaultSessionIDValue,
		"tab:1.2_x": "tab:1.2_x",
	}
	for in, want := range tests {
		if got := sanitizeSessionID(in); got != want {
			t.Errorf("sanitizeSessionID(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSessionIDFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ws/preview?session_id=tab-9", nil)
	_, _, sessionID := serve(t, store.NewMemory(), req)
	if sessionID != "tab-9" {
		t.Fatalf("expected tab-9, got %q", sessionID)
	}
}

func TestWithIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), "anon_x", "tab-1")
	if UserIDFromContext(ctx) != "anon_x" || SessionIDFromContext(ctx) != "tab-1" {
		t.Fatal("expected identity to round-trip through context")
	}
}
