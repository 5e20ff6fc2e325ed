// Package chat holds the active provider session and turns a user message
// plus caller-managed history into a provider request.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/hpkotak/codebud/internal/prompt"
	"github.com/hpkotak/codebud/internal/provider"
)

// Clients hands out provider clients for a config. *registry.Registry
// implements it.
type Clients interface {
	Get(cfg provider.Config) (provider.Provider, error)
}

// session pairs a config with the client built from it. It is never
// modified after it is published.
type session struct {
	cfg    provider.Config
	client provider.Provider
}

// Service is the conversation orchestrator. The zero session is
// unconfigured; UpdateConfig publishes a new session in one swap, so a
// concurrent SendMessage sees either the old pair or the new one.
type Service struct {
	clients Clients
	logger  *slog.Logger
	current atomic.Pointer[session]
}

// New returns an unconfigured Service. A nil logger discards output.
func New(clients Clients, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{clients: clients, logger: logger}
}

// UpdateConfig validates cfg, obtains a client for it and makes it the
// active session. On any error the previous session stays in effect.
func (s *Service) UpdateConfig(ctx context.Context, cfg provider.Config) error {
	if err := validateConfig(cfg); err != nil {
		s.logger.WarnContext(ctx, "rejected config update", "error", err)
		return err
	}
	cfg.Provider = provider.NormalizeName(cfg.Provider)
	if !provider.Supported(cfg.Provider) {
		err := fmt.Errorf("%w %q: must be one of %s",
			provider.ErrUnsupportedProvider, cfg.Provider, strings.Join(provider.Names(), ", "))
		s.logger.WarnContext(ctx, "rejected config update", "error", err)
		return err
	}

	client, err := s.clients.Get(cfg)
	if err != nil {
		if errors.Is(err, provider.ErrUnsupportedProvider) {
			return err
		}
		s.logger.ErrorContext(ctx, "initializing ai service", "provider", cfg.Provider, "model", cfg.Model, "error", err)
		return &AdapterInitError{Provider: cfg.Provider, Err: err}
	}

	s.current.Store(&session{cfg: cfg, client: client})
	s.logger.InfoContext(ctx, "ai service configured", "provider", cfg.Provider, "model", cfg.Model)
	return nil
}

// validateConfig rejects empty fields only; other values reach the provider
// as given.
func validateConfig(cfg provider.Config) error {
	details := make(map[string]string)
	if cfg.APIKey == "" {
		details["apiKey"] = "API key is required"
	}
	if cfg.Provider == "" {
		details["provider"] = "Provider is required"
	}
	if cfg.Model == "" {
		details["model"] = "Model name is required"
	}
	if len(details) > 0 {
		return &ValidationError{Message: "Invalid configuration", Details: details}
	}
	return nil
}

// SendMessage sends [system prompt, history..., user text] to the active
// provider. history is owned by the caller and is not retained.
func (s *Service) SendMessage(ctx context.Context, text, language string, history []provider.Message) (provider.Result, error) {
	sess := s.current.Load()
	if sess == nil {
		return provider.Result{}, ErrConfigurationRequired
	}
	if text == "" || language == "" {
		return provider.Result{}, &ValidationError{Message: "Message and language are required"}
	}

	messages := make([]provider.Message, 0, len(history)+2)
	messages = append(messages, provider.Message{Role: provider.RoleSystem, Content: prompt.SystemPrompt(language)})
	messages = append(messages, history...)
	messages = append(messages, provider.Message{Role: provider.RoleUser, Content: text})

	res, err := sess.client.Generate(ctx, messages, language)
	if err != nil {
		s.logger.WarnContext(ctx, "generation failed",
			"provider", sess.cfg.Provider, "model", sess.cfg.Model, "turns", len(messages), "error", err)
		return provider.Result{}, err
	}
	s.logger.DebugContext(ctx, "generation complete",
		"provider", sess.cfg.Provider, "model", sess.cfg.Model, "turns", len(messages), "code", res.Code != "")
	return res, nil
}

// Session returns the active config, or false when unconfigured.
func (s *Service) Session() (provider.Config, bool) {
	sess := s.current.Load()
	if sess == nil {
		return provider.Config{}, false
	}
	return sess.cfg, true
}
