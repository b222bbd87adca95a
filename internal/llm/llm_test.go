package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/ashureev/midori/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

func TestRefinePassesPromptThrough(t *testing.T) {
	prompts := []string{"a portfolio site", "  bakery landing page  ", `quote "inside"`}
	for _, p := range prompts {
		model := &fakeModel{response: reply("Sounds lovely!", nil)}
		r := NewRefiner(model, DefaultRefineSettings)

		got, err := r.Refine(context.Background(), p, nil)
		require.NoError(t, err)
		assert.Equal(t, p, got.RefinedPrompt)
		assert.Equal(t, "Sounds lovely!", got.Summary)
		assert.Nil(t, got.Clarifications)
	}
}

func TestRefineBuildsPersonaConversation(t *testing.T) {
	model := &fakeModel{response: reply("ok", nil)}
	r := NewRefiner(model, DefaultRefineSettings)

	_, err := r.Refine(context.Background(), "a bakery", []string{"earlier chat"})
	require.NoError(t, err)

	require.Len(t, model.calls, 1)
	msgs := model.calls[0]
	require.Len(t, msgs, 3)
	assert.Equal(t, llms.ChatMessageTypeSystem, msgs[0].Role)
	assert.Contains(t, text(msgs[0]), "You are Midori")
	assert.Equal(t, llms.ChatMessageTypeHuman, msgs[1].Role)
	assert.Equal(t, "earlier chat", text(msgs[1]))
	assert.Equal(t, `Please help me with this request: "a bakery". Summarize my idea, ask any clarifying questions if needed, and provide a refined prompt for code generation.`, text(msgs[2]))

	assert.Equal(t, "gpt-4o-mini", model.opts.Model)
	assert.InDelta(t, 0.7, model.opts.Temperature, 1e-9)
	assert.Equal(t, 500, model.opts.MaxTokens)
}

func TestRefineNoChoicesGivesEmptySummary(t *testing.T) {
	model := &fakeModel{response: &llms.ContentResponse{}}
	got, err := NewRefiner(model, DefaultRefineSettings).Refine(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Empty(t, got.Summary)
	assert.Equal(t, "x", got.RefinedPrompt)
}

func TestBlankPromptsNeverReachModel(t *testing.T) {
	model := &fakeModel{response: reply("unused", nil)}
	r := NewRefiner(model, DefaultRefineSettings)
	g := NewGenerator(model, DefaultGenerateSettings)

	for _, p := range []string{"", "   ", "\n\t"} {
		_, err := r.Refine(context.Background(), p, nil)
		assert.True(t, apperr.Is(err, apperr.CodeValidation), "refine %q", p)

		_, err = g.Generate(context.Background(), p)
		assert.True(t, apperr.Is(err, apperr.CodeValidation), "generate %q", p)
	}
	assert.Zero(t, model.callCount())
}

func TestRefineFailureIsOpaque(t *testing.T) {
	cause := errors.New("401 invalid api key sk-secret")
	model := &fakeModel{err: cause}

	_, err := NewRefiner(model, DefaultRefineSettings).Refine(context.Background(), "a site", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRefinementFailed)
	assert.True(t, apperr.Is(err, apperr.CodeProvider))
	assert.Equal(t, "Internal server error", apperr.From(err).Message)
}

func TestGenerate(t *testing.T) {
	model := &fakeModel{response: reply("<html>...</html>", map[string]any{"TotalTokens": 842})}
	g := NewGenerator(model, DefaultGenerateSettings)

	got, err := g.Generate(context.Background(), "a portfolio site")
	require.NoError(t, err)
	assert.Equal(t, "<html>...</html>", got.Code)
	assert.Equal(t, GenerationExplanation, got.Explanation)
	assert.Equal(t, 842, got.TokenUsage)

	msgs := model.calls[0]
	require.Len(t, msgs, 2)
	assert.Contains(t, text(msgs[0]), "You are an expert web developer.")
	assert.Equal(t, "Generate a complete website based on this request: a portfolio site", text(msgs[1]))
	assert.Equal(t, "gpt-4o", model.opts.Model)
	assert.InDelta(t, 0.3, model.opts.Temperature, 1e-9)
	assert.Equal(t, 2000, model.opts.MaxTokens)
}

func TestGenerateFailureIsOpaque(t *testing.T) {
	model := &fakeModel{err: errors.New("timeout")}
	_, err := NewGenerator(model, DefaultGenerateSettings).Generate(context.Background(), "site")
	assert.ErrorIs(t, err, ErrGenerationFailed)
	assert.True(t, apperr.Is(err, apperr.CodeProvider))
}

func TestTotalTokens(t *testing.T) {
	tests := []struct {
		name string
		info map[string]any
		want int
	}{
		{"missing", nil, 0},
		{"openai", map[string]any{"TotalTokens": 120}, 120},
		{"float", map[string]any{"TotalTokens": float64(7)}, 7},
		{"anthropic", map[string]any{"InputTokens": 10, "OutputTokens": 32}, 42},
		{"unrelated", map[string]any{"StopReason": "stop"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, totalTokens(&llms.ContentChoice{GenerationInfo: tt.info}))
		})
	}
	assert.Zero(t, totalTokens(nil))
}

func TestNewModelUnknownProvider(t *testing.T) {
	_, err := NewModel(context.Background(), Options{Provider: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestNewModelOllamaDefaults(t *testing.T) {
	model, err := NewModel(context.Background(), Options{Provider: ProviderOllama, Model: "llama3"})
	require.NoError(t, err)
	assert.NotNil(t, model)
}
