package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider using the Anthropic Messages API.
// System messages are sent as user turns in place; they are not merged into
// the request's top-level system field.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropic creates an AnthropicProvider. An empty host uses the SDK default.
func NewAnthropic(host, model, apiKey string) (*AnthropicProvider, error) {
	if err := requireModel(model); err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
	}
	if base := strings.TrimSpace(host); base != "" {
		if _, err := url.ParseRequestURI(base); err != nil {
			return nil, fmt.Errorf("parsing anthropic host URL: %w", err)
		}
		opts = append(opts, option.WithBaseURL(base))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}, nil
}

func (a *AnthropicProvider) Name() string { return Anthropic }

// Available checks that the configured model can be retrieved with the key.
func (a *AnthropicProvider) Available(ctx context.Context) error {
	if _, err := a.client.Models.Get(ctx, a.model, anthropic.ModelGetParams{}); err != nil {
		return fmt.Errorf("anthropic availability check failed: %w", err)
	}
	return nil
}

// Generate sends the conversation to Anthropic and splits the first text block.
func (a *AnthropicProvider) Generate(ctx context.Context, messages []Message, _ string) (Result, error) {
	mapped := toUserAssistant(messages)
	apiMessages := make([]anthropic.MessageParam, len(mapped))
	for i, m := range mapped {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			apiMessages[i] = anthropic.NewAssistantMessage(block)
		} else {
			apiMessages[i] = anthropic.NewUserMessage(block)
		}
	}

	resp, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		Messages:    apiMessages,
		Temperature: anthropic.Float(Temperature),
		MaxTokens:   MaxOutputTokens,
	})
	if err != nil {
		var apiErr *anthropic.Error
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return Result{}, upstream(Anthropic, status, fmt.Errorf("anthropic messages: %w", err))
	}

	var text string
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text = b.Text
			break
		}
	}
	if text == "" {
		return Result{}, errNoResponse(Anthropic)
	}
	return SplitExplanationAndCode(text), nil
}
