package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// requestTimeout bounds a single provider call when the caller sets no deadline.
const requestTimeout = 5 * time.Minute

// OpenAIProvider implements Provider using the OpenAI Chat Completions API.
// Roles are forwarded unchanged since the API has a native system role.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAI creates an OpenAIProvider. An empty host uses the SDK default.
func NewOpenAI(host, model, apiKey string) (*OpenAIProvider, error) {
	if err := requireModel(model); err != nil {
		return nil, err
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: requestTimeout}),
	}
	if base := strings.TrimSpace(host); base != "" {
		if _, err := url.ParseRequestURI(base); err != nil {
			return nil, fmt.Errorf("parsing openai host URL: %w", err)
		}
		opts = append(opts, option.WithBaseURL(base))
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (o *OpenAIProvider) Name() string { return OpenAI }

// Available checks that the configured model can be retrieved with the key.
func (o *OpenAIProvider) Available(ctx context.Context) error {
	if _, err := o.client.Models.Get(ctx, o.model); err != nil {
		return fmt.Errorf("openai availability check failed: %w", err)
	}
	return nil
}

// Generate sends the conversation to OpenAI and splits the first choice.
func (o *OpenAIProvider) Generate(ctx context.Context, messages []Message, _ string) (Result, error) {
	apiMessages := make([]openai.ChatCompletionMessageParamUnion, len(messages))
	for i, m := range messages {
		switch m.Role {
		case RoleSystem:
			apiMessages[i] = openai.SystemMessage(m.Content)
		case RoleAssistant:
			apiMessages[i] = openai.AssistantMessage(m.Content)
		default:
			apiMessages[i] = openai.UserMessage(m.Content)
		}
	}

	completion, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(o.model),
		Messages:            apiMessages,
		Temperature:         openai.Float(Temperature),
		MaxCompletionTokens: openai.Int(MaxOutputTokens),
	})
	if err != nil {
		var apiErr *openai.Error
		status := 0
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
		}
		return Result{}, upstream(OpenAI, status, fmt.Errorf("openai chat: %w", err))
	}
	if len(completion.Choices) == 0 {
		return Result{}, errNoResponse(OpenAI)
	}

	text := completion.Choices[0].Message.Content
	if strings.TrimSpace(text) == "" {
		return Result{}, errNoResponse(OpenAI)
	}
	return SplitExplanationAndCode(text), nil
}
