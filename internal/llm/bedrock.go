package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/ignite/audience-sizer/internal/pkg/logger"
)

// BedrockInvoker is the slice of the Bedrock runtime client we call.
type BedrockInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Bedrock calls an Anthropic model hosted on AWS Bedrock.
type Bedrock struct {
	client BedrockInvoker
	opts   Options
}

// BedrockMessage represents a message in Bedrock format
type BedrockMessage struct {
	Role    string                `json:"role"`
	Content []BedrockContentBlock `json:"content"`
}

// BedrockContentBlock represents content in a message
type BedrockContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// BedrockRequest is the Anthropic messages body sent to InvokeModel.
type BedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	Messages         []BedrockMessage `json:"messages"`
	Temperature      *float64         `json:"temperature,omitempty"`
}

// BedrockResponse is the response from Bedrock
type BedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewBedrock loads the default AWS credential chain for region.
func NewBedrock(ctx context.Context, region string, opts Options) (*Bedrock, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("llm: load AWS config: %w", err)
	}
	logger.Info("llm: bedrock provider", "model", opts.Model, "region", region)
	return NewBedrockWithClient(bedrockruntime.NewFromConfig(cfg), opts), nil
}

// NewBedrockWithClient uses an existing client.
func NewBedrockWithClient(client BedrockInvoker, opts Options) *Bedrock {
	return &Bedrock{client: client, opts: opts}
}

// Complete sends prompt as a single user message.
func (b *Bedrock) Complete(ctx context.Context, prompt string) (string, error) {
	request := BedrockRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		MaxTokens:        b.opts.MaxOutputTokens,
		Messages: []BedrockMessage{{
			Role:    "user",
			Content: []BedrockContentBlock{{Type: "text", Text: prompt}},
		}},
		Temperature: b.opts.Temperature,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	output, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.opts.Model),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model: %w", err)
	}

	var response BedrockResponse
	if err := json.Unmarshal(output.Body, &response); err != nil {
		return "", fmt.Errorf("bedrock: parse response: %w", err)
	}

	var sb strings.Builder
	for _, content := range response.Content {
		if content.Type == "text" {
			sb.WriteString(content.Text)
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", ErrEmptyResponse
	}

	logger.Debug("llm: bedrock completion",
		"input_tokens", response.Usage.InputTokens, "output_tokens", response.Usage.OutputTokens)
	return sb.String(), nil
}
