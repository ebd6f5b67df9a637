// Package bedrock wraps model invocation against Amazon Bedrock for the
// Anthropic messages payload shape.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/1282saa/ringringv2/internal/domain"
)

// bedrockAPI is the minimal Bedrock runtime interface required by Client.
type bedrockAPI interface {
	InvokeModel(ctx context.Context, in *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Invoker is the interface services depend on for model calls.
type Invoker interface {
	Invoke(ctx context.Context, modelID, system string, maxTokens int, messages []domain.ChatMessage) (string, error)
}

// invokeRequest is the Anthropic-on-Bedrock request body.
type invokeRequest struct {
	AnthropicVersion string               `json:"anthropic_version"`
	MaxTokens        int                  `json:"max_tokens"`
	System           string               `json:"system,omitempty"`
	Messages         []domain.ChatMessage `json:"messages"`
}

// invokeResponse is the minimal response shape: the concatenated text blocks
// are all callers consume.
type invokeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

const anthropicVersion = "bedrock-2023-05-31"

// Client calls Bedrock model inference.
type Client struct {
	api bedrockAPI
}

// New creates a Client with the given Bedrock runtime API implementation.
func New(api bedrockAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("bedrock: api must not be nil")
	}
	return &Client{api: api}, nil
}

// Invoke sends the messages to the model and returns the first text block of
// the completion.
func (c *Client) Invoke(ctx context.Context, modelID, system string, maxTokens int, messages []domain.ChatMessage) (string, error) {
	if modelID == "" {
		return "", errors.New("bedrock: model id must not be empty")
	}
	if len(messages) == 0 {
		return "", errors.New("bedrock: at least one message is required")
	}

	body, err := json.Marshal(invokeRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        maxTokens,
		System:           system,
		Messages:         messages,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: marshal request: %w", err)
	}

	out, err := c.api.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return "", fmt.Errorf("bedrock: invoke model %s: %w", modelID, err)
	}

	var resp invokeResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return "", fmt.Errorf("bedrock: decode response: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", errors.New("bedrock: response has no content blocks")
	}
	return resp.Content[0].Text, nil
}
