package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// AnthropicClient implements Client against Anthropic's Messages API
// directly over net/http (no SDK import: the retrieved pack only ever
// lists github.com/anthropics/anthropic-sdk-go in go.mod manifests, never
// in source that calls it, so there is no grounded API surface to copy —
// a raw HTTP adapter mirroring the Messages API is what the pack's own
// vinayprograms-agent/src/internal/llm/adapters.go does for the same
// provider).
type AnthropicClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
}

// NewAnthropicClient builds a Client backed by the Anthropic API. An empty
// apiKey yields a client whose IsEnabled is false.
func NewAnthropicClient(apiKey, model string) *AnthropicClient {
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}
	return &AnthropicClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    "https://api.anthropic.com/v1",
	}
}

func (c *AnthropicClient) IsEnabled() bool { return c.apiKey != "" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	System      string             `json:"system,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	Tools       []anthropicTool    `json:"tools,omitempty"`
}

type anthropicContentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
	Model   string                  `json:"model"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

const defaultMaxTokens = 1024

// Chat sends messages to the Anthropic Messages API and maps the response
// into the capability's narrow ChatResponse shape (spec.md §6).
func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResponse, error) {
	if !c.IsEnabled() {
		return nil, ErrDisabled
	}

	var system string
	var converted []anthropicMessage
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = m.Content
			continue
		}
		converted = append(converted, anthropicMessage{Role: string(m.Role), Content: m.Content})
	}

	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	maxTokens := defaultMaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}

	var tools []anthropicTool
	for _, t := range opts.Tools {
		tools = append(tools, anthropicTool{Name: t.Name, Description: t.Description, InputSchema: t.Parameters})
	}

	reqBody, err := json.Marshal(anthropicRequest{
		Model:       model,
		System:      system,
		Messages:    converted,
		MaxTokens:   maxTokens,
		Temperature: opts.Temperature,
		Tools:       tools,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("llm: anthropic API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("llm: unmarshal response: %w", err)
	}

	out := &ChatResponse{Model: apiResp.Model, TokensTotal: apiResp.Usage.InputTokens + apiResp.Usage.OutputTokens}
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			out.Content += block.Text
		case "tool_use":
			out.ToolCalls = append(out.ToolCalls, ToolCall{Name: block.Name, Arguments: block.Input})
		}
	}
	return out, nil
}

// ChatJSON sends messages through Chat unchanged and parses the reply as a
// JSON object, returning (nil, nil) rather than an error on malformed output
// so callers degrade to a rule-based path instead of failing (spec.md §6).
// It adds no instruction of its own asking for JSON.
func (c *AnthropicClient) ChatJSON(ctx context.Context, messages []Message, opts ChatOptions) (map[string]any, error) {
	resp, err := c.Chat(ctx, messages, opts)
	if err != nil {
		return nil, err
	}
	var parsed map[string]any
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &parsed); err != nil {
		return nil, nil
	}
	return parsed, nil
}

// extractJSON strips a leading/trailing markdown code fence, a pattern
// real LLM output commonly wraps JSON in even when asked for bare JSON.
func extractJSON(s string) string {
	trimmed := strings.TrimSpace(s)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
