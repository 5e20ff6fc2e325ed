package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hpkotak/codebud/internal/config"
	"github.com/hpkotak/codebud/internal/provider"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// saveConfig is swapped in tests.
var saveConfig = config.Save

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage codebud configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Update a configuration value",
	Long: `Update a configuration value. Supported keys:
  listen               Address for 'cb serve' (e.g., :3000)
  language             Default programming language
  provider             LLM provider (openai/anthropic/gemini/ollama)
  model                Model name (e.g., gpt-4, llama3.2:latest)
  api_key              Provider API key
  server               codebud server URL used by chat (empty for direct)
  endpoints.<provider> Base URL override for one provider`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return fmt.Errorf("no config found. Run 'cb setup' first")
		}
		return fmt.Errorf("loading config: %w", err)
	}

	data, err := yaml.Marshal(cfg.Redacted())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	_, _ = fmt.Fprintf(ioOut, "Config file: %s\n\n", config.Path())
	_, _ = fmt.Fprint(ioOut, string(data))
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], strings.TrimSpace(args[1])

	cfg, err := loadConfig()
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = config.Default()
	}

	shown := value
	switch key {
	case "listen":
		cfg.Listen = value
	case "language":
		cfg.Language = value
	case "provider":
		if !provider.Supported(value) {
			return fmt.Errorf("invalid provider %q: must be one of %s", value, strings.Join(provider.Names(), ", "))
		}
		cfg.Provider = provider.NormalizeName(value)
		applyProviderDefaults(cfg)
	case "model":
		if value == "" {
			return fmt.Errorf("model cannot be empty")
		}
		cfg.Model = value
	case "api_key":
		cfg.APIKey = value
		shown = provider.Config{APIKey: value}.Redacted().APIKey
	case "server":
		cfg.Server = value
	case "endpoints.openai":
		cfg.Endpoints.OpenAI = value
	case "endpoints.anthropic":
		cfg.Endpoints.Anthropic = value
	case "endpoints.gemini":
		cfg.Endpoints.Gemini = value
	case "endpoints.ollama":
		cfg.Endpoints.Ollama = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := saveConfig(cfg); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(ioOut, "Set %s = %s\n", key, shown)
	return nil
}

// applyProviderDefaults fills what a newly chosen provider needs to run
// without further setup.
func applyProviderDefaults(cfg *config.Config) {
	if cfg.Provider != provider.Ollama {
		if cfg.APIKey == config.OllamaKey {
			cfg.APIKey = ""
		}
		return
	}
	if strings.TrimSpace(cfg.Endpoints.Ollama) == "" {
		cfg.Endpoints.Ollama = provider.DefaultOllamaHost
	}
	if cfg.APIKey == "" {
		cfg.APIKey = config.OllamaKey
	}
}
