// Package editor holds the per-tab code editor and keeps its live preview in sync.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/midori/internal/apperr"
	"github.com/ashureev/midori/internal/domain"
)

var (
	// ErrEmptyGeneration means the model answered with no code.
	ErrEmptyGeneration = errors.New("generation returned no code")
	// ErrGenerating rejects a second generation while one is running.
	ErrGenerating = errors.New("generation already in progress")
)

// Generator produces website code from a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (domain.Generation, error)
}

// Drafts is one owner's draft store.
type Drafts interface {
	Create(ctx context.Context, code, prompt string) (domain.Draft, error)
	Update(ctx context.Context, id, code string) error
	MarkSaved(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Draft, error)
}

// Renderer pushes a full document to whoever is watching a session.
type Renderer interface {
	Publish(userID, sessionID, document string) int
}

// Snapshot is the editor state returned to the browser.
type Snapshot struct {
	Code        string        `json:"code"`
	Layout      Layout        `json:"layout"`
	Draft       *domain.Draft `json:"draft,omitempty"`
	Dirty       bool          `json:"dirty"`
	Generating  bool          `json:"generating"`
	Placeholder bool          `json:"placeholder"`
}

// Session is one tab's editor.
type Session struct {
	userID    string
	sessionID string
	generator Generator
	drafts    Drafts
	renderer  Renderer

	mu          sync.Mutex
	code        string
	placeholder bool
	draft       *domain.Draft
	layout      Layout
	dirty       bool
	generating  bool
}

// NewSession starts an editor showing DefaultCode in the split layout.
func NewSession(userID, sessionID string, generator Generator, drafts Drafts, renderer Renderer) *Session {
	return &Session{
		userID:      userID,
		sessionID:   sessionID,
		generator:   generator,
		drafts:      drafts,
		renderer:    renderer,
		code:        DefaultCode,
		placeholder: true,
		layout:      LayoutSplit,
	}
}

// Generate asks the model for a website and, on success, makes it the
// current code and a new unsaved draft. On any failure nothing changes.
func (s *Session) Generate(ctx context.Context, prompt string) (Snapshot, domain.Generation, error) {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return s.Snapshot(), domain.Generation{}, apperr.Busy(ErrGenerating.Error())
	}
	s.generating = true
	s.mu.Unlock()

	gen, err := s.generator.Generate(ctx, prompt)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.generating = false

	if err != nil {
		return s.snapshotLocked(), domain.Generation{}, err
	}
	if gen.Code == "" {
		slog.Warn("Generation returned empty code", "user_id", s.userID, "session_id", s.sessionID)
		return s.snapshotLocked(), gen, apperr.Provider(ErrEmptyGeneration)
	}

	draft, err := s.drafts.Create(ctx, gen.Code, prompt)
	if err != nil {
		return s.snapshotLocked(), gen, fmt.Errorf("create draft: %w", err)
	}

	s.code = gen.Code
	s.placeholder = false
	s.draft = &draft
	s.dirty = true
	s.renderLocked()

	slog.Info("Website generated",
		"user_id", s.userID,
		"session_id", s.sessionID,
		"draft_id", draft.ID,
		"token_usage", gen.TokenUsage,
	)
	return s.snapshotLocked(), gen, nil
}

// Edit writes code through to the current draft, if any, and then makes it
// the editor content. If the draft write fails the editor is unchanged.
func (s *Session) Edit(ctx context.Context, code string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft != nil {
		if err := s.drafts.Update(ctx, s.draft.ID, code); err != nil {
			return s.snapshotLocked(), fmt.Errorf("update draft: %w", err)
		}
		s.draft.Code = code
	}

	s.code = code
	s.placeholder = false
	s.dirty = true
	s.renderLocked()
	return s.snapshotLocked(), nil
}

// Save marks the current draft saved. Without a draft it does nothing.
func (s *Session) Save(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil {
		return s.snapshotLocked(), nil
	}
	if err := s.drafts.MarkSaved(ctx, s.draft.ID); err != nil {
		return s.snapshotLocked(), fmt.Errorf("mark draft saved: %w", err)
	}
	s.draft.IsSaved = true
	s.dirty = false
	slog.Info("Draft saved", "user_id", s.userID, "draft_id", s.draft.ID)
	return s.snapshotLocked(), nil
}

// Open loads a stored draft into the editor.
func (s *Session) Open(ctx context.Context, draftID string) (Snapshot, error) {
	draft, err := s.drafts.Get(ctx, draftID)
	if err != nil {
		return s.Snapshot(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.code = draft.Code
	s.placeholder = false
	s.draft = &draft
	s.dirty = !draft.IsSaved
	s.renderLocked()
	return s.snapshotLocked(), nil
}

// SetLayout switches panes. It never touches code or drafts.
func (s *Session) SetLayout(l Layout) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layout = l
	return s.snapshotLocked()
}

// Code returns the current document.
func (s *Session) Code() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code
}

// Download packages the current code.
func (s *Session) Download() Artifact {
	return Download(s.Code())
}

// Snapshot returns a copy of the editor state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Code:        s.code,
		Layout:      s.layout,
		Dirty:       s.dirty,
		Generating:  s.generating,
		Placeholder: s.placeholder,
	}
	if s.draft != nil {
		d := *s.draft
		snap.Draft = &d
	}
	return snap
}

func (s *Session) renderLocked() {
	if s.renderer == nil {
		return
	}
	s.renderer.Publish(s.userID, s.sessionID, s.code)
}
