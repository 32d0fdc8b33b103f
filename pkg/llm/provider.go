// Package llm is the boundary to language-model completion providers.
// The rest of the system treats a provider as an opaque request/response
// surface that returns text or structured tool-call arguments.
package llm

import (
	"context"
	"fmt"
)

// Message is one conversation turn.
type Message struct {
	Role    string `json:"role"` // system, user, assistant
	Content string `json:"content"`
}

// Tool describes a callable capability exposed to the model.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// ToolCall is a structured function invocation returned by the model.
type ToolCall struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name"`
	Arguments map[string]interface{} `json:"arguments"`
}

// Request contains the parameters for one completion call.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Tools        []Tool
	// ForceTool names a tool the model must call. Empty means free choice.
	ForceTool   string
	Temperature float64
	MaxTokens   int
}

// Response is the provider-agnostic completion result.
type Response struct {
	Content   string
	ToolCalls []ToolCall
	Usage     *TokenUsage
}

// TokenUsage reports token consumption for a call.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
}

// Provider is an interface for LLM API providers.
type Provider interface {
	// Complete makes a blocking completion call. The context is the only
	// cancellation mechanism for an in-flight call.
	Complete(ctx context.Context, request Request) (*Response, error)

	// Name returns the provider name
	Name() string
}

// NewProvider creates a provider by name.
func NewProvider(provider, apiKey string) (Provider, error) {
	switch provider {
	case "openai":
		return NewOpenAIProvider(apiKey), nil
	case "anthropic":
		return NewAnthropicProvider(apiKey), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}
