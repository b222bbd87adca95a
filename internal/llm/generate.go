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

// ErrGenerationFailed is returned for any failed generation call.
var ErrGenerationFailed = errors.New("failed to generate code")

// GenerationExplanation is the fixed explanation attached to every generation.
const GenerationExplanation = "Generated website code based on your requirements."

const codeGenerationPrompt = `You are an expert web developer. Generate clean, modern, and functional HTML/CSS/JavaScript code based on the refined requirements provided. 

Guidelines:
- Use modern HTML5, CSS3, and vanilla JavaScript
- Include responsive design with Tailwind CSS when appropriate
- Write clean, well-structured code with proper comments
- Ensure the code is immediately runnable in a browser
- Include proper meta tags and semantic HTML
- Make the design visually appealing and user-friendly`

// DefaultGenerateSettings favour deterministic output.
var DefaultGenerateSettings = CallSettings{Model: "gpt-4o", Temperature: 0.3, MaxTokens: 2000}

// Generator turns a refined prompt into a website document.
type Generator struct {
	model    llms.Model
	settings CallSettings
}

// NewGenerator creates a Generator over model.
func NewGenerator(model llms.Model, settings CallSettings) *Generator {
	return &Generator{model: model, settings: settings}
}

// Generate returns the model's raw text as code. The code is not validated.
func (g *Generator) Generate(ctx context.Context, refinedPrompt string) (domain.Generation, error) {
	if strings.TrimSpace(refinedPrompt) == "" {
		return domain.Generation{}, apperr.Validation("Prompt is required")
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, codeGenerationPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, "Generate a complete website based on this request: "+refinedPrompt),
	}

	resp, err := g.model.GenerateContent(ctx, messages, g.settings.options()...)
	if err != nil {
		slog.Error("Error generating code", "error", err, "model", g.settings.Model)
		return domain.Generation{}, apperr.Provider(fmt.Errorf("%w: %w", ErrGenerationFailed, err))
	}

	choice := firstChoice(resp)
	code := ""
	if choice != nil {
		code = choice.Content
	}

	return domain.Generation{
		Code:        code,
		Explanation: GenerationExplanation,
		TokenUsage:  totalTokens(choice),
	}, nil
}
