// Package apiclient talks to a codebud server over its HTTP API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hpkotak/codebud/internal/provider"
)

const requestTimeout = 5 * time.Minute

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Details    map[string]string
}

func (e *APIError) Error() string {
	if len(e.Details) == 0 {
		return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("server returned %d: %s %v", e.StatusCode, e.Message, e.Details)
}

// Client calls the /api/chat endpoints of a codebud server.
type Client struct {
	base       *url.URL
	httpClient *http.Client
}

// New returns a Client for the server at baseURL, e.g. http://localhost:3000.
func New(baseURL string) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("server URL cannot be empty")
	}
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing server URL: %w", err)
	}
	return &Client{
		base:       base,
		httpClient: &http.Client{Timeout: requestTimeout},
	}, nil
}

// Models fetches the example model catalogue.
func (c *Client) Models(ctx context.Context) (map[string][]string, error) {
	var out map[string][]string
	if err := c.do(ctx, http.MethodGet, "/api/chat/models", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateConfig sets the server's active provider session.
func (c *Client) UpdateConfig(ctx context.Context, cfg provider.Config) error {
	var out struct {
		Message string `json:"message"`
	}
	return c.do(ctx, http.MethodPost, "/api/chat/config", cfg, &out)
}

// SendMessage sends one turn with the caller's history.
func (c *Client) SendMessage(ctx context.Context, text, language string, history []provider.Message) (provider.Result, error) {
	body := struct {
		Message          string             `json:"message"`
		Language         string             `json:"language"`
		PreviousMessages []provider.Message `json:"previousMessages"`
	}{text, language, history}

	var out provider.Result
	if err := c.do(ctx, http.MethodPost, "/api/chat/message", body, &out); err != nil {
		return provider.Result{}, err
	}
	return out, nil
}

// Health reports whether the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("server status %q", out.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Error   string            `json:"error"`
			Details map[string]string `json:"details"`
		}
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			apiErr.Message, apiErr.Details = e.Error, e.Details
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// IsConfigurationRequired reports whether err is the server rejecting a
// message because no provider session is set.
func IsConfigurationRequired(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		apiErr.StatusCode == http.StatusBadRequest &&
		apiErr.Message == "AI configuration not set"
}
