// Package llm defines the narrow LLM capability (spec.md §6). The Reflexion
// Loop's llm_reflect step is the only component that calls a Client, and it
// runs correctly with IsEnabled() false by falling back to rule-only
// auto-correct. The query compiler and the action parameter validation do
// not take a Client.
package llm

import "context"

// Role is a conversation message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    Role
	Content string
}

// ToolDefinition describes a function the LLM may call, mirroring the
// JSON-schema descriptors pkg/actions.Registry.ExportAllTools produces.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// ChatOptions configures one Chat call. Zero values mean "use the
// capability's default".
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Tools       []ToolDefinition
}

// ToolCall is one function-call the model requested.
type ToolCall struct {
	Name      string
	Arguments map[string]any
}

// ChatResponse is the narrow shape spec.md §6 requires of every capability
// implementation.
type ChatResponse struct {
	Content     string
	ToolCalls   []ToolCall
	TokensTotal int
	Model       string
}

// Client is the capability interface injected into the reflexion loop.
type Client interface {
	// IsEnabled reports whether this capability can actually serve
	// requests (e.g. an API key was configured). Every caller must
	// degrade gracefully when this is false rather than call Chat.
	IsEnabled() bool

	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*ChatResponse, error)

	// ChatJSON is a JSON-mode helper: it sends the messages as given and
	// parses the reply as a JSON object, returning nil (not an error) on
	// malformed output so callers can fall back to a rule-based path. It
	// adds no instruction of its own asking for JSON.
	ChatJSON(ctx context.Context, messages []Message, opts ChatOptions) (map[string]any, error)
}

// NullLLM is the disabled fallback: IsEnabled always returns false, Chat
// returns ErrDisabled and ChatJSON returns (nil, nil), so callers must check IsEnabled
// before calling Chat/ChatJSON (spec.md §9: "every component must run
// correctly with is_enabled() == false").
type NullLLM struct{}

func (NullLLM) IsEnabled() bool { return false }

func (NullLLM) Chat(context.Context, []Message, ChatOptions) (*ChatResponse, error) {
	return nil, ErrDisabled
}

func (NullLLM) ChatJSON(context.Context, []Message, ChatOptions) (map[string]any, error) {
	return nil, nil
}
