package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/ashureev/midori/internal/apperr"
	"github.com/ashureev/midori/internal/conversation"
	"github.com/ashureev/midori/internal/domain"
	"github.com/ashureev/midori/internal/identity"
	"github.com/go-chi/chi/v5"
	"github.com/yuin/goldmark"
)

// ConversationHandler drives the per-tab Midori chat.
type ConversationHandler struct {
	*Handler
	conversations *conversation.Manager
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(base *Handler, conversations *conversation.Manager) *ConversationHandler {
	return &ConversationHandler{Handler: base, conversations: conversations}
}

// RegisterRoutes registers conversation routes. limit guards the model-backed ones.
func (h *ConversationHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/api/conversation", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Delete("/", h.Reset)
		r.Post("/generate", h.StartGeneration)
		r.Group(func(r chi.Router) {
			if limit != nil {
				r.Use(limit)
			}
			r.Post("/messages", h.PostMessage)
		})
	})
}

type messageView struct {
	domain.ChatMessage
	ContentHTML string `json:"content_html,omitempty"`
}

type conversationView struct {
	Phase         conversation.Phase `json:"phase"`
	Messages      []messageView      `json:"messages"`
	RefinedPrompt string             `json:"refinedPrompt,omitempty"`
	Busy          bool               `json:"busy"`
}

func viewOf(s conversation.Snapshot) conversationView {
	v := conversationView{
		Phase:         s.Phase,
		Messages:      make([]messageView, len(s.Messages)),
		RefinedPrompt: s.RefinedPrompt,
		Busy:          s.Busy,
	}
	for i, m := range s.Messages {
		v.Messages[i] = messageView{ChatMessage: m}
		if m.Role == domain.RoleAssistant {
			v.Messages[i].ContentHTML = renderMarkdown(m.Content)
		}
	}
	return v
}

// renderMarkdown converts assistant markdown to HTML. Raw HTML in the source is dropped.
func renderMarkdown(md string) string {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		slog.Debug("Markdown render failed", "error", err)
		return ""
	}
	return buf.String()
}

func (h *ConversationHandler) current(r *http.Request) *conversation.Conversation {
	return h.conversations.Get(identity.UserIDFromContext(r.Context()), identity.SessionIDFromContext(r.Context()))
}

// Get returns the tab's conversation.
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, viewOf(h.current(r).Snapshot()))
}

type postMessageRequest struct {
	Content string `json:"content"`
}

// PostMessage submits a user message and waits for Midori's reply.
func (h *ConversationHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	var req postMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteError(w, r, err)
		return
	}

	snap, err := h.current(r).Submit(r.Context(), req.Content)
	switch {
	case errors.Is(err, conversation.ErrEmptyInput):
		WriteError(w, r, apperr.Validation("Message is required"))
		return
	case errors.Is(err, conversation.ErrBusy):
		WriteError(w, r, apperr.Busy("Midori is still thinking"))
		return
	case err != nil:
		WriteError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, viewOf(snap))
}

// StartGeneration hands the refined prompt to the editor.
func (h *ConversationHandler) StartGeneration(w http.ResponseWriter, r *http.Request) {
	prompt, err := h.current(r).StartGeneration()
	if err != nil {
		WriteError(w, r, apperr.Busy("Nothing to generate yet"))
		return
	}
	JSON(w, http.StatusOK, map[string]string{
		"prompt":   prompt,
		"redirect": "/editor?prompt=" + escapeComponent(prompt),
	})
}

// escapeComponent escapes like encodeURIComponent: spaces become %20, not +.
func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// Reset discards the tab's conversation.
func (h *ConversationHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.conversations.Reset(identity.UserIDFromContext(r.Context()), identity.SessionIDFromContext(r.Context()))
	w.WriteHeader(http.StatusNoContent)
}
