package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini calls Google's Gemini API.
type Gemini struct {
	client *genai.Client
	opts   Options
}

// NewGemini creates a Gemini provider. The API key is required.
func NewGemini(ctx context.Context, apiKey string, opts Options) (*Gemini, error) {
	if apiKey == "" {
		return nil, errors.New("llm: GEMINI_API_KEY is required for the gemini provider")
	}

	return newGemini(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}, opts)
}

func newGemini(ctx context.Context, cc *genai.ClientConfig, opts Options) (*Gemini, error) {
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("llm: create GenAI client: %w", err)
	}
	return &Gemini{client: client, opts: opts}, nil
}

// Complete sends prompt as a single user turn.
func (g *Gemini) Complete(ctx context.Context, prompt string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(g.opts.MaxOutputTokens),
	}
	if g.opts.Temperature != nil {
		cfg.Temperature = genai.Ptr(float32(*g.opts.Temperature))
	}

	result, err := g.client.Models.GenerateContent(ctx, g.opts.Model, genai.Text(prompt), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini: generate content: %w", err)
	}

	text := result.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
