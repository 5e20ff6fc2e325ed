package chat

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrConfigurationRequired is returned by SendMessage before any successful
// UpdateConfig.
var ErrConfigurationRequired = errors.New("AI configuration not set")

// ValidationError reports caller input that failed validation. Details maps
// a field name to what was wrong with it.
type ValidationError struct {
	Message string
	Details map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	fields := make([]string, 0, len(e.Details))
	for f := range e.Details {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = fmt.Sprintf("%s: %s", f, e.Details[f])
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// AdapterInitError reports that a provider client could not be constructed
// from an otherwise valid config.
type AdapterInitError struct {
	Provider string
	Err      error
}

func (e *AdapterInitError) Error() string {
	return fmt.Sprintf("initializing %s client: %v", e.Provider, e.Err)
}

func (e *AdapterInitError) Unwrap() error { return e.Err }
