// Package openai implements llm.Client for OpenAI and OpenAI-compatible
// chat completion APIs.
package openai

import (
	"context"
	"errors"
	"fmt"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/themobileprof/ayu-be/pkg/llm"
)

// Config holds configuration for the OpenAI client
type Config struct {
	APIKey  string
	Model   string // Default: gpt-4o-mini
	BaseURL string // Optional, for OpenAI-compatible endpoints
}

// Client wraps the go-openai client
type Client struct {
	client *goopenai.Client
	model  string
}

var _ llm.Client = (*Client)(nil)

// NewClient creates a new OpenAI client
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	cfg := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	return &Client{
		client: goopenai.NewClientWithConfig(cfg),
		model:  config.Model,
	}
}

// ChatCompletion implements llm.Client.ChatCompletion
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages := make([]goopenai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: toRole(m.Role), Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, goopenai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, mapError(err)
	}

	out := &llm.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Usage: llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	for _, choice := range resp.Choices {
		out.Choices = append(out.Choices, llm.Choice{
			Index:        choice.Index,
			Message:      llm.ChatMessage{Role: llm.RoleAssistant, Content: choice.Message.Content},
			FinishReason: string(choice.FinishReason),
		})
	}
	return out, nil
}

func toRole(role string) string {
	switch role {
	case llm.RoleSystem:
		return goopenai.ChatMessageRoleSystem
	case llm.RoleAssistant:
		return goopenai.ChatMessageRoleAssistant
	default:
		return goopenai.ChatMessageRoleUser
	}
}

// mapError turns status-bearing SDK errors into *llm.APIError
func mapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &llm.APIError{Provider: "OpenAI", StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &llm.APIError{Provider: "OpenAI", StatusCode: reqErr.HTTPStatusCode}
	}
	return fmt.Errorf("OpenAI request failed: %w", err)
}
