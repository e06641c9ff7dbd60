package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAI calls the OpenAI Responses API.
type OpenAI struct {
	apiKey     string
	baseURL    string
	opts       Options
	httpClient *http.Client
}

// OpenAIRequest is the body of POST /responses.
type OpenAIRequest struct {
	Model           string   `json:"model"`
	Input           string   `json:"input"`
	MaxOutputTokens int      `json:"max_output_tokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

// OpenAIResponse is the subset of the Responses API reply we read.
type OpenAIResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// NewOpenAI creates an OpenAI provider. The API key is required.
func NewOpenAI(apiKey, baseURL string, opts Options) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("llm: OPENAI_API_KEY is required for the openai provider")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &OpenAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		opts:    opts,
		// Per-attempt deadlines come from the caller's context.
		httpClient: &http.Client{},
	}, nil
}

// Complete sends prompt as a single input and returns the output text.
func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	request := OpenAIRequest{
		Model:           o.opts.Model,
		Input:           prompt,
		MaxOutputTokens: o.opts.MaxOutputTokens,
	}
	if o.opts.Temperature != nil {
		t := *o.opts.Temperature
		request.Temperature = &t
	}

	jsonBody, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/responses", bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	var response OpenAIResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("openai: parse response (status %d): %w", resp.StatusCode, err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("openai: API error (status %d): %s", resp.StatusCode, response.Error.Message)
	}
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai: unexpected status %d", resp.StatusCode)
	}

	text := response.Text()
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Text returns output_text when present, otherwise the concatenated
// output_text parts of every output message.
func (r *OpenAIResponse) Text() string {
	if r.OutputText != "" {
		return r.OutputText
	}
	var sb strings.Builder
	for _, item := range r.Output {
		for _, c := range item.Content {
			if c.Type == "output_text" {
				sb.WriteString(c.Text)
			}
		}
	}
	return sb.String()
}
