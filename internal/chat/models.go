package chat

import "github.com/hpkotak/codebud/internal/provider"

// catalogue lists example model names per provider. It is informational only;
// any model string the provider accepts can be configured.
var catalogue = map[string][]string{
	provider.OpenAI:    {"Examples: gpt-4, gpt-3.5-turbo, gpt-4-turbo"},
	provider.Anthropic: {"Examples: claude-3-opus-20240229, claude-3-sonnet-20240229"},
	provider.Gemini:    {"Examples: gemini-2.0-flash, gemini-1.5-pro"},
	provider.Ollama:    {"Examples: llama3.2:latest, codellama:7b, qwen2.5-coder"},
}

// Models returns a copy of the static model catalogue keyed by provider name.
func Models() map[string][]string {
	out := make(map[string][]string, len(catalogue))
	for name, models := range catalogue {
		out[name] = append([]string(nil), models...)
	}
	return out
}
