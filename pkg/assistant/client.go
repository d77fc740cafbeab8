// Package assistant runs the AI-orchestrated authoring conversation: it
// assembles context, drives a bounded tool-calling loop against a generative
// backend and interprets the model's raw output into a structured reply.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ToolSpec describes one capability as advertised to the backend.
type ToolSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolCall is the model's request to invoke a capability.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// ToolResult carries one capability's output back to the model.
type ToolResult struct {
	ToolCallID string
	Content    any
}

// Turn is one message of the backend conversation.
type Turn struct {
	Role        string
	Text        string
	ToolCalls   []ToolCall
	ToolResults []ToolResult
}

// CompletionRequest is one round trip to the generative backend.
type CompletionRequest struct {
	System   string
	Messages []Turn
	Tools    []ToolSpec
}

// Completion is the backend's answer: final text, requested tool calls, or both.
type Completion struct {
	Text       string
	ToolCalls  []ToolCall
	StopReason string
}

// ModelClient abstracts the generative backend.
type ModelClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
}

// ErrMissingAPIKey marks the fatal configuration error of an absent backend
// credential.
var ErrMissingAPIKey = errors.New("generative backend API key is not configured")

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultMaxTokens = 4096
	apiVersion       = "2023-06-01"
)

// ClientConfig configures the HTTP backend client.
type ClientConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// HTTPModelClient talks to an Anthropic-style messages API.
type HTTPModelClient struct {
	config ClientConfig
	client *http.Client
}

// NewHTTPModelClient creates the backend client. A missing API key is a fatal
// configuration error, caught at construction rather than mid-conversation.
func NewHTTPModelClient(config ClientConfig) (*HTTPModelClient, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}

	if config.MaxTokens <= 0 {
		config.MaxTokens = defaultMaxTokens
	}

	return &HTTPModelClient{config: config, client: http.DefaultClient}, nil
}

type wireBlock struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	ID        string         `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Input     map[string]any `json:"input,omitempty"`
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   string         `json:"content,omitempty"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

type wireRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []wireMessage `json:"messages"`
	Tools     []ToolSpec    `json:"tools,omitempty"`
}

type wireResponse struct {
	Content    []wireBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
}

// Complete performs one round trip to the messages endpoint.
func (c *HTTPModelClient) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	messages, err := encodeTurns(req.Messages)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(wireRequest{
		Model:     c.config.Model,
		MaxTokens: c.config.MaxTokens,
		System:    req.System,
		Messages:  messages,
		Tools:     req.Tools,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/messages", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call generative backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generative backend returned status %d", resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("failed to decode backend response: %w", err)
	}

	completion := &Completion{StopReason: wire.StopReason}

	for _, block := range wire.Content {
		switch block.Type {
		case "text":
			completion.Text += block.Text
		case "tool_use":
			completion.ToolCalls = append(completion.ToolCalls, ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: block.Input,
			})
		}
	}

	return completion, nil
}

func encodeTurns(turns []Turn) ([]wireMessage, error) {
	messages := make([]wireMessage, 0, len(turns))

	for _, turn := range turns {
		var blocks []wireBlock

		for _, result := range turn.ToolResults {
			payload, err := json.Marshal(result.Content)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal tool result: %w", err)
			}

			blocks = append(blocks, wireBlock{
				Type:      "tool_result",
				ToolUseID: result.ToolCallID,
				Content:   string(payload),
			})
		}

		if turn.Text != "" {
			blocks = append(blocks, wireBlock{Type: "text", Text: turn.Text})
		}

		for _, call := range turn.ToolCalls {
			blocks = append(blocks, wireBlock{
				Type:  "tool_use",
				ID:    call.ID,
				Name:  call.Name,
				Input: call.Input,
			})
		}

		messages = append(messages, wireMessage{Role: turn.Role, Content: blocks})
	}

	return messages, nil
}
