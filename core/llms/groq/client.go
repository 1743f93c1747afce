// Package groq generates responses through Groq's OpenAI-compatible chat
// completions API.
package groq

import "fmt"

const (
	url = "https://api.groq.com/openai/v1/chat/completions"

	endMessage  = "[DONE]"
	chunkPrefix = "data:"

	defaultModel = "llama-3.3-70b-versatile"
)

type Client struct {
	apiKey string
	model  string
}

type ClientOption func(*Client)

func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func NewClient(apiKey string, opts ...ClientOption) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("groq api key is required")
	}

	client := &Client{apiKey: apiKey, model: defaultModel}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}
