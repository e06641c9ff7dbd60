// Package llm talks to the language models that turn business descriptions
// into audience segments. Every provider implements Completer; New wires the
// configured one behind the retry policy.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ignite/audience-sizer/internal/config"
	"github.com/ignite/audience-sizer/internal/pkg/retry"
)

// Completer sends a prompt and returns the model's text reply.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Options are the generation settings shared by every provider.
type Options struct {
	Model           string
	MaxOutputTokens int
	// Temperature is sent only when set; zero is a valid setting.
	Temperature *float64
}

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("llm: empty response")

// New builds the configured provider wrapped in the retry policy. It is
// called once at startup; the result is safe for concurrent use.
func New(ctx context.Context, cfg config.LLMConfig) (Completer, error) {
	opts := Options{
		Model:           cfg.Model,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Temperature:     cfg.Temperature,
	}

	var (
		provider Completer
		err      error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI:
		provider, err = NewOpenAI(cfg.APIKey, cfg.BaseURL, opts)
	case config.ProviderBedrock:
		provider, err = NewBedrock(ctx, cfg.AWSRegion, opts)
	case config.ProviderGemini:
		provider, err = NewGemini(ctx, cfg.GeminiAPIKey, opts)
	default:
		err = fmt.Errorf("llm: unsupported provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return NewRetrying(provider, retry.Policy{
		Attempts:       cfg.Attempts,
		Backoff:        cfg.Backoff(),
		AttemptTimeout: cfg.AttemptTimeout(),
	}), nil
}
