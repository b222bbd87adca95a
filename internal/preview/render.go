package preview

import (
	"log/slog"
	"net/http"
)

// SandboxPolicy runs the document's scripts in an opaque origin, cut off from the studio's cookies and storage.
const SandboxPolicy = "sandbox allow-scripts"

// ServeDocument writes document as a sandboxed HTML page.
func ServeDocument(w http.ResponseWriter, document string) {
	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", SandboxPolicy)
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(document)); err != nil {
		slog.Debug("Failed to write preview document", "error", err)
	}
}
