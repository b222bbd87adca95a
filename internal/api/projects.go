package api

import (
	"net/http"

	"github.com/ashureev/midori/internal/identity"
	"github.com/ashureev/midori/internal/projects"
	"github.com/go-chi/chi/v5"
)

// ProjectHandler exposes the caller's project list.
type ProjectHandler struct {
	*Handler
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(base *Handler) *ProjectHandler {
	return &ProjectHandler{Handler: base}
}

// RegisterRoutes registers project routes.
func (h *ProjectHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/projects", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
	})
}

func (h *ProjectHandler) store(r *http.Request) *projects.Store {
	return projects.NewStore(h.repo, identity.UserIDFromContext(r.Context()))
}

// List returns {projects, demo}. demo is true when the sample set is shown.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	list, demo, err := h.store(r).List(r.Context())
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"projects": list,
		"demo":     demo,
	})
}

type createProjectRequest struct {
	Name    string `json:"name"`
	Preview string `json:"preview,omitempty"`
}

// Create appends a project.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}
	p, err := h.store(r).Create(r.Context(), req.Name, req.Preview)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, p)
}
