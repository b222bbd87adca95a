package api

import (
	"net/http"

	"github.com/ashureev/midori/internal/drafts"
	"github.com/ashureev/midori/internal/editor"
	"github.com/ashureev/midori/internal/identity"
	"github.com/ashureev/midori/internal/preview"
	"github.com/go-chi/chi/v5"
)

// PreviewHandler serves documents for the sandboxed preview frame.
type PreviewHandler struct {
	*Handler
	editors *editor.Manager
	ws      http.Handler
}

// NewPreviewHandler creates a new preview handler. ws serves live updates.
func NewPreviewHandler(base *Handler, editors *editor.Manager, ws http.Handler) *PreviewHandler {
	return &PreviewHandler{Handler: base, editors: editors, ws: ws}
}

// RegisterRoutes registers preview routes.
func (h *PreviewHandler) RegisterRoutes(r chi.Router) {
	r.Get("/preview/current", h.Current)
	r.Get("/preview/{draftID}", h.Draft)
	if h.ws != nil {
		r.Get("/ws/preview", h.ws.ServeHTTP)
	}
}

// Current renders the tab's editor content.
func (h *PreviewHandler) Current(w http.ResponseWriter, r *http.Request) {
	code := h.editors.Current(identity.UserIDFromContext(r.Context()), identity.SessionIDFromContext(r.Context()))
	preview.ServeDocument(w, code)
}

// Draft renders a stored draft.
func (h *PreviewHandler) Draft(w http.ResponseWriter, r *http.Request) {
	store := drafts.NewStore(h.repo, identity.UserIDFromContext(r.Context()))
	d, err := store.Get(r.Context(), chi.URLParam(r, "draftID"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	preview.ServeDocument(w, d.Code)
}
