// Package geminisdk implements llm.Client on top of the official Google
// Generative AI Go SDK.
package geminisdk

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/themobileprof/ayu-be/pkg/llm"
)

// Config holds configuration for the SDK client
type Config struct {
	APIKey string
	Model  string // Default: gemini-2.0-flash
}

// Client implements llm.Client with genai chat sessions
type Client struct {
	client *genai.Client
	model  string
}

var _ llm.Client = (*Client)(nil)

// NewClient creates the SDK client. It does not contact the API.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.Model == "" {
		config.Model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{client: client, model: config.Model}, nil
}

// Close releases the SDK's connections
func (c *Client) Close() error {
	return c.client.Close()
}

// ChatCompletion implements llm.Client.ChatCompletion
func (c *Client) ChatCompletion(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	name := req.Model
	if name == "" {
		name = c.model
	}

	system, history, last, err := splitMessages(req.Messages)
	if err != nil {
		return nil, err
	}

	// Models are cheap handles; one per request keeps settings isolated.
	model := c.client.GenerativeModel(name)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	if req.Temperature > 0 {
		model.SetTemperature(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	return toChatResponse(name, resp), nil
}

// splitMessages separates system text, prior turns and the final user message.
func splitMessages(messages []llm.ChatMessage) (string, []*genai.Content, string, error) {
	if len(messages) == 0 || messages[len(messages)-1].Role != llm.RoleUser {
		return "", nil, "", errors.New("last message must be from the user")
	}

	var system []string
	history := make([]*genai.Content, 0, len(messages))
	for _, msg := range messages[:len(messages)-1] {
		switch msg.Role {
		case llm.RoleSystem:
			system = append(system, msg.Content)
		case llm.RoleAssistant:
			history = append(history, &genai.Content{Role: "model", Parts: []genai.Part{genai.Text(msg.Content)}})
		default:
			history = append(history, &genai.Content{Role: "user", Parts: []genai.Part{genai.Text(msg.Content)}})
		}
	}
	return strings.Join(system, "\n\n"), history, messages[len(messages)-1].Content, nil
}

func toChatResponse(model string, resp *genai.GenerateContentResponse) *llm.ChatResponse {
	out := llm.TextResponse(model, extractText(resp))
	if resp != nil && len(resp.Candidates) > 0 {
		out.Choices[0].FinishReason = resp.Candidates[0].FinishReason.String()
	}
	if resp != nil && resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out
}

// extractText concatenates the text parts of the first candidate
func extractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	return sb.String()
}
