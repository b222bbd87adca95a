// Package llm talks to the hosted model that refines prompts and writes website code.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// Provider names a model backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
)

const defaultOllamaURL = "http://localhost:11434"

// Options configures NewModel. Model is only the client default; Refiner and
// Generator pick their own model per call.
type Options struct {
	Provider Provider
	APIKey   string
	BaseURL  string
	Model    string
}

// NewModel creates a langchaingo model for the configured provider.
func NewModel(_ context.Context, opts Options) (llms.Model, error) {
	slog.Debug("Creating model client", "provider", opts.Provider, "model", opts.Model)

	var (
		model llms.Model
		err   error
	)
	switch opts.Provider {
	case ProviderOpenAI, "":
		model, err = newOpenAI(opts)
	case ProviderAnthropic:
		model, err = anthropic.New(
			anthropic.WithToken(opts.APIKey),
			anthropic.WithModel(opts.Model),
		)
	case ProviderOllama:
		model, err = newOllama(opts)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", opts.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create model for provider %s: %w", opts.Provider, err)
	}
	return model, nil
}

func newOpenAI(opts Options) (llms.Model, error) {
	o := []openai.Option{
		openai.WithModel(opts.Model),
		openai.WithToken(opts.APIKey),
	}
	if opts.BaseURL != "" {
		o = append(o, openai.WithBaseURL(opts.BaseURL))
	}
	return openai.New(o...)
}

func newOllama(opts Options) (llms.Model, error) {
	url := opts.BaseURL
	if url == "" {
		url = defaultOllamaURL
	}
	return ollama.New(
		ollama.WithServerURL(url),
		ollama.WithModel(opts.Model),
	)
}

// CallSettings are the per-call sampling options for one model role.
type CallSettings struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

func (s CallSettings) options() []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(s.Temperature)}
	if s.Model != "" {
		opts = append(opts, llms.WithModel(s.Model))
	}
	if s.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(s.MaxTokens))
	}
	return opts
}

// firstChoice returns the first choice of a response, or nil when there is none.
func firstChoice(resp *llms.ContentResponse) *llms.ContentChoice {
	if resp == nil || len(resp.Choices) == 0 {
		return nil
	}
	return resp.Choices[0]
}

// totalTokens reads usage from GenerationInfo. OpenAI and Ollama report
// TotalTokens; Anthropic reports input and output separately.
func totalTokens(choice *llms.ContentChoice) int {
	if choice == nil || choice.GenerationInfo == nil {
		return 0
	}
	if n, ok := asInt(choice.GenerationInfo["TotalTokens"]); ok {
		return n
	}
	in, okIn := asInt(choice.GenerationInfo["InputTokens"])
	out, okOut := asInt(choice.GenerationInfo["OutputTokens"])
	if okIn || okOut {
		return in + out
	}
	return 0
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
