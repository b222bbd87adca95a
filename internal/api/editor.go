package api

import (
	"net/http"

	"github.com/ashureev/midori/internal/editor"
	"github.com/ashureev/midori/internal/identity"
	"github.com/go-chi/chi/v5"
)

// EditorHandler drives the per-tab code editor.
type EditorHandler struct {
	*Handler
	editors *editor.Manager
}

// NewEditorHandler creates a new editor handler.
func NewEditorHandler(base *Handler, editors *editor.Manager) *EditorHandler {
	return &EditorHandler{Handler: base, editors: editors}
}

// RegisterRoutes registers editor routes. limit guards generation.
func (h *EditorHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api/editor", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/code", h.Edit)
		r.Post("/save", h.Save)
		r.Put("/layout", h.SetLayout)
		r.Post("/open/{id}", h.Open)
		r.Get("/download", h.Download)
		r.Group(func(r chi.Router) {
			if limit != nil {
				r.Use(limit)
			}
			r.Post("/generate", h.Generate)
		})
	})
}

func (h *EditorHandler) session(r *http.Request) *editor.Session {
	return h.editors.Get(identity.UserIDFromContext(r.Context()), identity.SessionIDFromContext(r.Context()))
}

// Get returns the tab's editor state.
func (h *EditorHandler) Get(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.session(r).Snapshot())
}

type editorGenerateResponse struct {
	editor.Snapshot
	Explanation string `json:"explanation"`
	TokenUsage  int    `json:"tokenUsage"`
}

// Generate replaces the editor content with freshly generated code.
func (h *EditorHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	snap, gen, err := h.session(r).Generate(r.Context(), req.Prompt)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, editorGenerateResponse{
		Snapshot:    snap,
		Explanation: gen.Explanation,
		TokenUsage:  gen.TokenUsage,
	})
}

type editCodeRequest struct {
	Code string `json:"code"`
}

// Edit replaces the code.
func (h *EditorHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req editCodeRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	snap, err := h.session(r).Edit(r.Context(), req.Code)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// Save marks the current draft saved.
func (h *EditorHandler) Save(w http.ResponseWriter, r *http.Request) {
	snap, err := h.session(r).Save(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

type layoutRequest struct {
	Layout string `json:"layout"`
}

// SetLayout switches between code, preview and split.
func (h *EditorHandler) SetLayout(w http.ResponseWriter, r *http.Request) {
	var req layoutRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	layout, err := editor.ParseLayout(req.Layout)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, h.session(r).SetLayout(layout))
}

// Open loads a stored draft.
func (h *EditorHandler) Open(w http.ResponseWriter, r *http.Request) {
	snap, err := h.session(r).Open(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// Download sends the current code as website.html.
func (h *EditorHandler) Download(w http.ResponseWriter, r *http.Request) {
	writeArtifact(w, h.session(r).Download())
}
