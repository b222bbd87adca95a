package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ashureev/midori/internal/apperr"
	"github.com/ashureev/midori/internal/domain"
	"github.com/tmc/langchaingo/llms"
)

// ErrRefinementFailed is returned for any failed refinement call. The cause is logged, not returned.
var ErrRefinementFailed = errors.New("failed to get Midori response")

const midoriSystemPrompt = `You are Midori, a friendly and intelligent AI assistant specializing in web development. Your role is to help users create websites by:

1. Understanding their natural language requests
2. Summarizing their ideas clearly and concisely
3. Asking clarifying questions when needed
4. Refining their requirements into actionable prompts for code generation

Always respond in a helpful, encouraging tone. Focus on making the web development process smooth and delightful for users.`

// DefaultRefineSettings mirror the persona's tuned sampling.
var DefaultRefineSettings = CallSettings{Model: "gpt-4o-mini", Temperature: 0.7, MaxTokens: 500}

// Refiner restates a user's website request through the Midori persona.
type Refiner struct {
	model    llms.Model
	settings CallSettings
}

// NewRefiner creates a Refiner over model.
func NewRefiner(model llms.Model, settings CallSettings) *Refiner {
	return &Refiner{model: model, settings: settings}
}

// Refine asks the model to summarize and clarify prompt. Each priorContext
// entry is sent as its own user turn ahead of the request. RefinedPrompt is
// always prompt unchanged.
func (r *Refiner) Refine(ctx context.Context, prompt string, priorContext []string) (domain.RefinementResult, error) {
	if strings.TrimSpace(prompt) == "" {
		return domain.RefinementResult{}, apperr.Validation("Prompt is required")
	}

	messages := make([]llms.MessageContent, 0, len(priorContext)+2)
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, midoriSystemPrompt))
	for _, entry := range priorContext {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, entry))
	}
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, refineRequest(prompt)))

	resp, err := r.model.GenerateContent(ctx, messages, r.settings.options()...)
	if err != nil {
		slog.Error("Error getting Midori response", "error", err, "model", r.settings.Model)
		return domain.RefinementResult{}, apperr.Provider(fmt.Errorf("%w: %w", ErrRefinementFailed, err))
	}

	summary := ""
	if choice := firstChoice(resp); choice != nil {
		summary = choice.Content
	}

	return domain.RefinementResult{
		Summary:       summary,
		RefinedPrompt: prompt,
	}, nil
}

func refineRequest(prompt string) string {
	return fmt.Sprintf(`Please help me with this request: "%s". Summarize my idea, ask any clarifying questions if needed, and provide a refined prompt for code generation.`, prompt)
}
