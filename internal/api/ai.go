package api

import (
	"context"
	"net/http"

	"github.com/ashureev/midori/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Refiner restates a website request through the Midori persona.
type Refiner interface {
	Refine(ctx context.Context, prompt string, priorContext []string) (domain.RefinementResult, error)
}

// Generator turns a prompt into website code.
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.Generation, error)
}

// AIHandler serves the two model-backed endpoints.
type AIHandler struct {
	*Handler
	refiner   Refiner
	generator Generator
}

// NewAIHandler creates a new AI handler.
func NewAIHandler(base *Handler, refiner Refiner, generator Generator) *AIHandler {
	return &AIHandler{Handler: base, refiner: refiner, generator: generator}
}

// RegisterRoutes registers AI routes. limit wraps them with a rate limiter when non-nil.
func (h *AIHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api/ai", func(r chi.Router) {
		if limit != nil {
			r.Use(limit)
		}
		r.Post("/generate", h.Generate)
		r.Post("/midori", h.Midori)
	})
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// Generate returns {code, explanation, tokenUsage} for a prompt.
func (h *AIHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	gen, err := h.generator.Generate(r.Context(), req.Prompt)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, gen)
}

type midoriRequest struct {
	Prompt  string `json:"prompt"`
	Context string `json:"context,omitempty"`
}

// Midori returns {summary, refinedPrompt, clarifications?} for a prompt and optional context.
func (h *AIHandler) Midori(w http.ResponseWriter, r *http.Request) {
	var req midoriRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	var prior []string
	if req.Context != "" {
		prior = []string{req.Context}
	}

	result, err := h.refiner.Refine(r.Context(), req.Prompt, prior)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, result)
}
