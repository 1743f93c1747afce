// Package gemini generates responses through the Google Gemini API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.0-flash-exp"

type Client struct {
	client *genai.Client
	model  string
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func NewClient(ctx context.Context, apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	client := &Client{client: genaiClient, model: defaultModel}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Prompt requests a complete, non-streamed response for the given prompt.
func (c *Client) Prompt(ctx context.Context, prompt string) (string, error) {
	ctx, span := tracer.Start(ctx, "prompt llm")
	defer span.End()
	span.SetAttributes(attribute.String("request.model", c.model))

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		err = fmt.Errorf("failed to generate content: %w", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("response contained no candidates")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			sb.WriteString(part.Text)
		}
	}

	if resp.UsageMetadata != nil {
		span.SetAttributes(
			attribute.Int("usage.input", int(resp.UsageMetadata.PromptTokenCount)),
			attribute.Int("usage.output", int(resp.UsageMetadata.CandidatesTokenCount)),
		)
	}

	return sb.String(), nil
}
