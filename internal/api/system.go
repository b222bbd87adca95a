package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/midori/internal/identity"
	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// SystemHandler serves health, client config and identity endpoints.
type SystemHandler struct {
	*Handler
}

// NewSystemHandler creates a new system handler.
func NewSystemHandler(base *Handler) *SystemHandler {
	return &SystemHandler{Handler: base}
}

// RegisterHealth registers the health check route.
func (h *SystemHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}

// RegisterRoutes registers config and identity routes.
func (h *SystemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/config", h.GetConfig)
	r.Get("/api/me", h.GetMe)
}

// Health returns the health status of the API and its dependencies.
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{"api": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// GetConfig returns the settings the frontend needs.
func (h *SystemHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"session_header": identity.SessionHeaderName,
		"layouts":        []string{"code", "preview", "split"},
	}
	if h.cfg != nil {
		resp["ai_enabled"] = h.cfg.LLM.APIKey != "" || h.cfg.LLM.Provider == "ollama"
		resp["provider"] = h.cfg.LLM.Provider
		resp["rate_limit"] = map[string]interface{}{
			"requests": h.cfg.RateLimit.RequestsPerWindow,
			"window":   h.cfg.RateLimit.Window.String(),
		}
	}
	JSON(w, http.StatusOK, resp)
}

// GetMe returns the caller's anonymous identity.
func (h *SystemHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":    user.UserID,
		"username":   user.Username,
		"session_id": identity.SessionIDFromContext(r.Context()),
	})
}
