package provider

import (
	"fmt"
	"strings"
)

// Known provider names.
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Gemini    = "gemini"
	Ollama    = "ollama"
)

// Names lists the supported providers in display order.
func Names() []string {
	return []string{OpenAI, Anthropic, Gemini, Ollama}
}

// Supported reports whether name is a known provider.
func Supported(name string) bool {
	switch NormalizeName(name) {
	case OpenAI, Anthropic, Gemini, Ollama:
		return true
	}
	return false
}

// NormalizeName lower-cases and trims a provider name.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Endpoints overrides provider base URLs. Empty fields use SDK defaults.
type Endpoints struct {
	OpenAI    string `yaml:"openai,omitempty"`
	Anthropic string `yaml:"anthropic,omitempty"`
	Gemini    string `yaml:"gemini,omitempty"`
	Ollama    string `yaml:"ollama,omitempty"`
}

// BuildConfig contains provider-specific runtime settings used by the factory.
type BuildConfig struct {
	Config
	Endpoints Endpoints
}

// NewFromConfig builds the configured provider implementation.
func NewFromConfig(cfg BuildConfig) (Provider, error) {
	switch NormalizeName(cfg.Provider) {
	case OpenAI:
		return NewOpenAI(cfg.Endpoints.OpenAI, cfg.Model, cfg.APIKey)
	case Anthropic:
		return NewAnthropic(cfg.Endpoints.Anthropic, cfg.Model, cfg.APIKey)
	case Gemini:
		return NewGemini(cfg.Endpoints.Gemini, cfg.Model, cfg.APIKey)
	case Ollama:
		return NewOllama(cfg.Endpoints.Ollama, cfg.Model, cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedProvider, cfg.Provider)
	}
}

// toUserAssistant maps roles for backends without a system role: system
// messages become user turns in place, assistant stays, the rest is user.
func toUserAssistant(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		role := RoleUser
		if m.Role == RoleAssistant {
			role = RoleAssistant
		}
		out[i] = Message{Role: role, Content: m.Content}
	}
	return out
}

func requireModel(model string) error {
	if strings.TrimSpace(model) == "" {
		return fmt.Errorf("model cannot be empty")
	}
	return nil
}
