// Package config manages the codebud configuration file at ~/.codebud/config.yaml.
// The file holds CLI and server settings; the server's active provider
// session is never written back to it.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpkotak/codebud/internal/provider"
	"gopkg.in/yaml.v3"
)

var ErrNotFound = errors.New("config file not found")

// Defaults used by Default and by setup.
const (
	DefaultListen   = ":3000"
	DefaultLanguage = "go"
	DefaultProvider = provider.Ollama
	DefaultModel    = "llama3.2:latest"
	// OllamaKey stands in for a credential when talking to a local Ollama
	// server, which ignores it.
	OllamaKey = "ollama"
)

type Config struct {
	// Listen is the address `cb serve` binds to.
	Listen string `yaml:"listen"`
	// Language is the default programming language for chat sessions.
	Language string `yaml:"language"`

	// Provider, Model and APIKey configure the chat session. When Server is
	// empty they are used in-process; `cb serve --bootstrap` applies them at
	// startup.
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
	APIKey   string `yaml:"api_key,omitempty"`

	// Server is the base URL of a running codebud server. When set, chat
	// goes through its HTTP API instead of calling providers directly.
	Server string `yaml:"server,omitempty"`

	Endpoints provider.Endpoints `yaml:"endpoints,omitempty"`
}

// Dir returns the config directory path (~/.codebud).
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".codebud")
}

// Path returns the config file path (~/.codebud/config.yaml).
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads and parses the config file. Returns ErrNotFound if it doesn't exist.
func Load() (*Config, error) {
	return loadFrom(Path())
}

func loadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk, creating the directory if needed.
// The file may hold an API key, so it is only readable by the owner.
func Save(cfg *Config) error {
	return saveTo(Dir(), Path(), cfg)
}

func saveTo(dir, path string, cfg *Config) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := marshalConfig(cfg)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func marshalConfig(cfg *Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encoding config: %w", err)
	}
	return data, nil
}

// Default returns a config with sensible defaults: a local Ollama session.
// It carries no API key; Session supplies the Ollama placeholder.
func Default() *Config {
	return &Config{
		Listen:   DefaultListen,
		Language: DefaultLanguage,
		Provider: DefaultProvider,
		Model:    DefaultModel,
		Endpoints: provider.Endpoints{
			Ollama: provider.DefaultOllamaHost,
		},
	}
}

// Validate checks the config for values that would fail later.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if strings.TrimSpace(c.Language) == "" {
		return fmt.Errorf("language cannot be empty")
	}
	if c.Provider != "" && !provider.Supported(c.Provider) {
		return fmt.Errorf("%w %q: must be one of %s",
			provider.ErrUnsupportedProvider, c.Provider, strings.Join(provider.Names(), ", "))
	}
	if c.Server != "" {
		if err := validateURL("server", c.Server); err != nil {
			return err
		}
	}
	endpoints := []struct{ name, value string }{
		{"endpoints.openai", c.Endpoints.OpenAI},
		{"endpoints.anthropic", c.Endpoints.Anthropic},
		{"endpoints.gemini", c.Endpoints.Gemini},
		{"endpoints.ollama", c.Endpoints.Ollama},
	}
	for _, ep := range endpoints {
		if ep.value == "" {
			continue
		}
		if err := validateURL(ep.name, ep.value); err != nil {
			return err
		}
	}
	return nil
}

func validateURL(key, value string) error {
	u, err := url.ParseRequestURI(value)
	if err != nil {
		return fmt.Errorf("invalid %s URL %q: %w", key, value, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid %s URL %q: scheme must be http or https", key, value)
	}
	return nil
}

// Session returns the provider config for an in-process chat session.
// Ollama gets OllamaKey when no key is set; hosted providers keep an empty
// key so the session is rejected before any request is made.
func (c *Config) Session() provider.Config {
	cfg := provider.Config{
		Provider: provider.NormalizeName(c.Provider),
		APIKey:   c.APIKey,
		Model:    c.Model,
	}
	if cfg.Provider == provider.Ollama && cfg.APIKey == "" {
		cfg.APIKey = OllamaKey
	}
	return cfg
}

// Redacted returns a copy of c with the API key masked.
func (c *Config) Redacted() *Config {
	out := *c
	out.APIKey = provider.Config{APIKey: c.APIKey}.Redacted().APIKey
	return &out
}
