package client

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient wraps the Gemini API client. It is an optional, last-resort
// chat provider.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a new Gemini client using an API key.
func NewGeminiClient(ctx context.Context, apiKey string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  "gemini-2.0-flash",
	}, nil
}

// WithModel sets the model to use.
func (c *GeminiClient) WithModel(model string) *GeminiClient {
	if model != "" {
		c.model = model
	}
	return c
}

// Name identifies the provider.
func (c *GeminiClient) Name() string {
	return "gemini"
}

// Chat flattens the conversation into a single prompt and returns the reply.
func (c *GeminiClient) Chat(ctx context.Context, messages []ChatMessage, jsonMode bool) (string, error) {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			b.WriteString(m.Content)
		case RoleAssistant:
			b.WriteString("Assistant: " + m.Content)
		default:
			b.WriteString("User: " + m.Content)
		}
		b.WriteString("\n\n")
	}

	var cfg *genai.GenerateContentConfig
	if jsonMode {
		cfg = &genai.GenerateContentConfig{ResponseMIMEType: "application/json"}
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(b.String()), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}
