// Package conversation runs the Midori chat that turns a loose request into a refined prompt.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/midori/internal/domain"
)

const (
	// Greeting opens every conversation.
	Greeting = "Hi! I'm Midori, your AI companion for creating websites. Tell me about the website you'd like to build, and I'll help you refine your idea before we start coding!"
	// Apology is appended whenever a refinement call fails.
	Apology = "I'm sorry, I encountered an error. Please try again!"
)

var (
	ErrEmptyInput = errors.New("message is empty")
	ErrBusy       = errors.New("a request is already in flight")
	ErrNotReady   = errors.New("no refined prompt to generate from")
)

// Refiner restates a request, optionally with earlier transcript as context.
type Refiner interface {
	Refine(ctx context.Context, prompt string, priorContext []string) (domain.RefinementResult, error)
}

// Snapshot is a point-in-time copy of a conversation.
type Snapshot struct {
	Phase         Phase                `json:"phase"`
	Messages      []domain.ChatMessage `json:"messages"`
	RefinedPrompt string               `json:"refinedPrompt,omitempty"`
	Busy          bool                 `json:"busy"`
}

// Conversation is one chat transcript and its phase. Safe for concurrent use.
type Conversation struct {
	refiner Refiner
	now     func() time.Time
	observe func(domain.ChatMessage)

	mu       sync.Mutex
	phase    Phase
	messages []domain.ChatMessage
	result   *domain.RefinementResult
	busy     bool
}

// New starts a conversation in PhaseInitial with the greeting already sent.
// observe, if set, sees every message appended after the greeting.
func New(refiner Refiner, observe func(domain.ChatMessage)) *Conversation {
	c := &Conversation{
		refiner: refiner,
		now:     time.Now,
		phase:   PhaseInitial,
	}
	c.messages = append(c.messages, domain.ChatMessage{
		Role:      domain.RoleAssistant,
		Content:   Greeting,
		Timestamp: c.now(),
	})
	c.observe = observe
	return c
}

// Submit appends text as a user message and asks the refiner to respond.
// A refinement failure is reported in the transcript, not as an error.
func (c *Conversation) Submit(ctx context.Context, text string) (Snapshot, error) {
	if strings.TrimSpace(text) == "" {
		return c.Snapshot(), ErrEmptyInput
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return c.Snapshot(), ErrBusy
	}
	from := c.phase
	next, err := Next(from, EventSubmit)
	if err != nil {
		c.mu.Unlock()
		return c.Snapshot(), err
	}

	var priorContext []string
	if from == PhaseCompleted {
		priorContext = []string{c.joinedTranscriptLocked()}
	}
	c.appendLocked(domain.RoleUser, text)
	c.phase = next
	c.busy = true
	c.mu.Unlock()

	result, refineErr := c.refiner.Refine(ctx, text, priorContext)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	event := EventRefined
	if refineErr != nil {
		event = EventRefineFailed
		slog.Warn("Refinement failed", "error", refineErr, "phase", c.phase)
		c.appendLocked(domain.RoleAssistant, Apology)
	} else {
		c.appendLocked(domain.RoleAssistant, result.Summary)
		if from == PhaseInitial {
			r := result
			c.result = &r
		}
	}

	// Only Summarizing resolves through the table; Completed stays put.
	if c.phase == PhaseSummarizing {
		to, err := Next(c.phase, event)
		if err != nil {
			return c.snapshotLocked(), err
		}
		c.phase = to
	}

	return c.snapshotLocked(), nil
}

// StartGeneration returns the refined prompt to hand to the editor.
// It does not change the phase.
func (c *Conversation) StartGeneration() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase != PhaseCompleted || c.result == nil || c.result.RefinedPrompt == "" {
		return "", ErrNotReady
	}
	return c.result.RefinedPrompt, nil
}

// Messages returns a copy of the transcript.
func (c *Conversation) Messages() []domain.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.ChatMessage(nil), c.messages...)
}

// Phase returns the current phase.
func (c *Conversation) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Result returns the retained refinement, if any.
func (c *Conversation) Result() (domain.RefinementResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.result == nil {
		return domain.RefinementResult{}, false
	}
	return *c.result, true
}

// Snapshot returns a copy of the conversation state.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Conversation) snapshotLocked() Snapshot {
	s := Snapshot{
		Phase:    c.phase,
		Messages: append([]domain.ChatMessage(nil), c.messages...),
		Busy:     c.busy,
	}
	if c.result != nil {
		s.RefinedPrompt = c.result.RefinedPrompt
	}
	return s
}

func (c *Conversation) appendLocked(role domain.Role, content string) {
	msg := domain.ChatMessage{Role: role, Content: content, Timestamp: c.now()}
	c.messages = append(c.messages, msg)
	if c.observe != nil {
		c.observe(msg)
	}
}

func (c *Conversation) joinedTranscriptLocked() string {
	parts := make([]string, len(c.messages))
	for i, m := range c.messages {
		parts[i] = m.Content
	}
	return strings.Join(parts, "\n")
}
