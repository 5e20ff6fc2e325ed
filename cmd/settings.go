package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hpkotak/codebud/internal/config"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// settings layers flags and CODEBUD_* environment variables over the
// config file.
var settings = newSettings()

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("codebud")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "PORT")
	return v
}

func bindFlags(fs *pflag.FlagSet, names ...string) {
	for _, name := range names {
		if err := settings.BindPFlag(name, fs.Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}

// loadSettings reads the config file, or defaults when it is missing, and
// applies overrides. found reports whether a file or an explicit provider
// or server setting exists.
func loadSettings() (cfg *config.Config, found bool, err error) {
	cfg, err = loadConfig()
	switch {
	case errors.Is(err, config.ErrNotFound):
		cfg = config.Default()
	case err != nil:
		return nil, false, fmt.Errorf("loading config: %w", err)
	default:
		found = true
	}

	overrides := []struct {
		key string
		dst *string
	}{
		{"listen", &cfg.Listen},
		{"language", &cfg.Language},
		{"provider", &cfg.Provider},
		{"model", &cfg.Model},
		{"api-key", &cfg.APIKey},
		{"server", &cfg.Server},
		{"endpoints.openai", &cfg.Endpoints.OpenAI},
		{"endpoints.anthropic", &cfg.Endpoints.Anthropic},
		{"endpoints.gemini", &cfg.Endpoints.Gemini},
		{"endpoints.ollama", &cfg.Endpoints.Ollama},
	}
	for _, o := range overrides {
		if settings.IsSet(o.key) {
			*o.dst = settings.GetString(o.key)
		}
	}
	if !settings.IsSet("listen") && settings.IsSet("port") {
		cfg.Listen = ":" + settings.GetString("port")
	}
	if settings.IsSet("provider") || settings.IsSet("server") {
		found = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, found, nil
}

// newLogger returns a text logger writing to w at the named level.
func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
