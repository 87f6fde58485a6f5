package provider

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	openaiDefaultModel = "gpt-4o"
	openaiMaxTokens    = 8000
)

// openaiClient wraps the go-openai chat-completion client.
type openaiClient struct {
	client *openai.Client
	model  string
}

func newOpenAIClient(apiKey, model, baseURL string) (*openaiClient, error) {
	if model == "" {
		model = openaiDefaultModel
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &openaiClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

func (c *openaiClient) Name() string  { return OpenAI }
func (c *openaiClient) Model() string { return c.model }

// Complete performs one chat completion and returns the first choice's text.
func (c *openaiClient) Complete(ctx context.Context, promptText string) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   openaiMaxTokens,
		Temperature: Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: promptText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("provider: openai call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider: openai returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
