// Package prompt builds the system prompt sent ahead of every conversation.
package prompt

import "fmt"

// SystemPrompt returns the system message for a coding conversation in language.
// language is inserted as given; callers only check that it is non-empty.
func SystemPrompt(language string) string {
	return fmt.Sprintf("You are an expert %s developer. Provide clear explanations and practical code examples. "+
		"Format your responses with an explanation followed by a code example that demonstrates the concept.", language)
}
