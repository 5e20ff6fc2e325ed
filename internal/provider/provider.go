// Package provider defines the canonical conversation model and the LLM
// backends that translate it to and from each vendor's native API.
// New backends implement the Provider interface and register in the factory.
package provider

import "context"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single message in a conversation.
// Decoupled from any specific LLM API (OpenAI, Anthropic, etc.) so callers
// don't import backend-specific types.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Result is the canonical answer returned by every provider.
type Result struct {
	Explanation string `json:"explanation"`
	Code        string `json:"code"`
}

// Config selects a provider and carries the credential and model used to
// build its client.
type Config struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey"`
	Model    string `json:"model"`
}

// Redacted returns a copy of c safe for logs and API output.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "****"
	}
	return c
}

// Generation parameters shared by all backends. The output bound must fit
// a full explanation plus a code block.
const (
	Temperature     = 0.7
	MaxOutputTokens = 8000
)

// Provider sends conversations to an LLM backend.
// Implementations keep no per-call state and are safe for concurrent use.
type Provider interface {
	// Generate sends messages in order and returns the split answer.
	// Failures are reported as *UpstreamError.
	Generate(ctx context.Context, messages []Message, language string) (Result, error)

	// Name returns the provider name (e.g., "openai").
	Name() string

	// Available checks if this provider is ready to use.
	Available(ctx context.Context) error
}
