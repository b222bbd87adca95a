package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/ashureev/midori/internal/apperr"
	"github.com/ashureev/midori/internal/drafts"
	"github.com/ashureev/midori/internal/editor"
	"github.com/ashureev/midori/internal/identity"
	"github.com/go-chi/chi/v5"
)

// DraftHandler exposes the caller's draft list.
type DraftHandler struct {
	*Handler
}

// NewDraftHandler creates a new draft handler.
func NewDraftHandler(base *Handler) *DraftHandler {
	return &DraftHandler{Handler: base}
}

// RegisterRoutes registers draft routes.
func (h *DraftHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/drafts", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Post("/{id}/save", h.MarkSaved)
		r.Get("/{id}/download", h.Download)
	})
}

func (h *DraftHandler) store(r *http.Request) *drafts.Store {
	return drafts.NewStore(h.repo, identity.UserIDFromContext(r.Context()))
}

// List returns every draft in stored order.
func (h *DraftHandler) List(w http.ResponseWriter, r *http.Request) {
	all, err := h.store(r).LoadAll(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, all)
}

type createDraftRequest struct {
	Code   string `json:"code"`
	Prompt string `json:"prompt"`
}

// Create appends a new unsaved draft.
func (h *DraftHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		WriteError(w, r, apperr.Validation("Code is required"))
		return
	}

	d, err := h.store(r).Create(r.Context(), req.Code, req.Prompt)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, d)
}

type updateDraftRequest struct {
	Code string `json:"code"`
}

// Update replaces a draft's code. Unknown ids are ignored.
func (h *DraftHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateDraftRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	if err := h.store(r).Update(r.Context(), chi.URLParam(r, "id"), req.Code); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MarkSaved flags a draft as saved. Unknown ids are ignored.
func (h *DraftHandler) MarkSaved(w http.ResponseWriter, r *http.Request) {
	if err := h.store(r).MarkSaved(r.Context(), chi.URLParam(r, "id")); err != nil {
		WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Download sends a draft's code as website.html.
func (h *DraftHandler) Download(w http.ResponseWriter, r *http.Request) {
	d, err := h.store(r).Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeArtifact(w, editor.Download(d.Code))
}

func writeArtifact(w http.ResponseWriter, a editor.Artifact) {
	w.Header().Set("Content-Type", a.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", a.Filename))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(a.Body)
}
