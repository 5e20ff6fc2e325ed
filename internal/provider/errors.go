package provider

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned for provider names outside the known set.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// UpstreamError reports a failed or unusable provider call.
type UpstreamError struct {
	Provider   string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("no response from %s", e.Provider)
	}
	return e.Err.Error()
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func upstream(provider string, status int, err error) *UpstreamError {
	return &UpstreamError{Provider: provider, StatusCode: status, Err: err}
}

// errNoResponse marks a call that returned no usable text.
func errNoResponse(provider string) *UpstreamError {
	return upstream(provider, 0, fmt.Errorf("no response from %s", provider))
}
