package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
)

// DefaultOllamaHost is used when no endpoint is configured.
const DefaultOllamaHost = "http://localhost:11434"

// OllamaProvider implements Provider using an Ollama server.
// Roles are forwarded unchanged.
type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllama creates an OllamaProvider connected to the given host and model.
// apiKey is sent as a bearer token for hosted or proxied servers.
func NewOllama(host, model, apiKey string) (*OllamaProvider, error) {
	if err := requireModel(model); err != nil {
		return nil, err
	}
	if strings.TrimSpace(host) == "" {
		host = DefaultOllamaHost
	}
	base, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parsing ollama host URL: %w", err)
	}
	httpClient := &http.Client{
		Timeout:   requestTimeout,
		Transport: bearerTransport{token: strings.TrimSpace(apiKey), next: http.DefaultTransport},
	}
	client := api.NewClient(base, httpClient)
	return &OllamaProvider{client: client, model: model}, nil
}

func (o *OllamaProvider) Name() string { return Ollama }

// Available checks if Ollama is reachable and the configured model exists.
func (o *OllamaProvider) Available(ctx context.Context) error {
	models, err := o.client.List(ctx)
	if err != nil {
		return fmt.Errorf("cannot reach Ollama at configured host: %w", err)
	}

	for _, m := range models.Models {
		if m.Name == o.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not found in Ollama", o.model)
}

// Generate sends the conversation to Ollama and splits the reply.
// Converts provider.Message to api.Message internally so callers stay decoupled
// from the Ollama client library.
func (o *OllamaProvider) Generate(ctx context.Context, messages []Message, _ string) (Result, error) {
	apiMessages := make([]api.Message, len(messages))
	for i, m := range messages {
		apiMessages[i] = api.Message{Role: string(m.Role), Content: m.Content}
	}

	stream := false
	req := &api.ChatRequest{
		Model:    o.model,
		Messages: apiMessages,
		Stream:   &stream,
		Options: map[string]any{
			"temperature": Temperature,
			"num_predict": MaxOutputTokens,
		},
	}

	var final api.ChatResponse
	err := o.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		var statusErr api.StatusError
		status := 0
		if errors.As(err, &statusErr) {
			status = statusErr.StatusCode
		}
		return Result{}, upstream(Ollama, status, fmt.Errorf("ollama chat: %w", err))
	}

	if strings.TrimSpace(final.Message.Content) == "" {
		return Result{}, errNoResponse(Ollama)
	}
	return SplitExplanationAndCode(final.Message.Content), nil
}

// bearerTransport adds an Authorization header unless the request already has one.
type bearerTransport struct {
	token string
	next  http.RoundTripper
}

func (t bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.token == "" || req.Header.Get("Authorization") != "" {
		return t.next.RoundTrip(req)
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.next.RoundTrip(r)
}
