package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider using the Gemini generateContent API.
// Like Anthropic, system messages become user turns at the same position.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGemini creates a GeminiProvider. An empty host uses the SDK default.
func NewGemini(host, model, apiKey string) (*GeminiProvider, error) {
	if err := requireModel(model); err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: requestTimeout},
	}
	if base := strings.TrimSpace(host); base != "" {
		if _, err := url.ParseRequestURI(base); err != nil {
			return nil, fmt.Errorf("parsing gemini host URL: %w", err)
		}
		cc.HTTPOptions.BaseURL = base
	}

	// NewClient only resolves settings; it does not contact the API.
	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (g *GeminiProvider) Name() string { return Gemini }

// Available checks that the configured model can be retrieved with the key.
func (g *GeminiProvider) Available(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return fmt.Errorf("gemini availability check failed: %w", err)
	}
	return nil
}

// Generate sends the conversation to Gemini and splits the reply text.
func (g *GeminiProvider) Generate(ctx context.Context, messages []Message, _ string) (Result, error) {
	mapped := toUserAssistant(messages)
	contents := make([]*genai.Content, len(mapped))
	for i, m := range mapped {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents[i] = genai.NewContentFromText(m.Content, role)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](Temperature),
		MaxOutputTokens: MaxOutputTokens,
	})
	if err != nil {
		var apiErr genai.APIError
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.Code
		}
		return Result{}, upstream(Gemini, status, fmt.Errorf("gemini generate: %w", err))
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return Result{}, errNoResponse(Gemini)
	}
	return SplitExplanationAndCode(text), nil
}
