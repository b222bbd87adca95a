package preview

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServeDocumentIsSandboxed(t *testing.T) {
	rr := httptest.NewRecorder()
	ServeDocument(rr, "<script>alert(1)</script>")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("Content-Security-Policy"); got != "sandbox allow-scripts" {
		t.Fatalf("unexpected CSP %q", got)
	}
	if got := rr.Header().Get("Content-Type"); got != "text/html; charset=utf-8" {
		t.Fatalf("unexpected content type %q", got)
	}
	if rr.Body.String() != "<script>alert(1)</script>" {
		t.Fatalf("document must be served verbatim, got %q", rr.Body.String())
	}
}
