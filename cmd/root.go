package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/hpkotak/codebud/internal/apiclient"
	"github.com/hpkotak/codebud/internal/chat"
	"github.com/hpkotak/codebud/internal/config"
	"github.com/hpkotak/codebud/internal/provider"
	"github.com/hpkotak/codebud/internal/registry"
	"github.com/hpkotak/codebud/internal/repl"
	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// Package-level function variables for testability.
// Tests override these to avoid real provider and server calls.
var (
	loadConfig = config.Load
	newChatter = defaultChatter
	ioIn       io.Reader = os.Stdin
	ioOut      io.Writer = os.Stdout
	isTerminal           = func() bool {
		fd := os.Stdout.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	envFile = ".env"
)

var rootCmd = &cobra.Command{
	Use:   "cb [question]",
	Short: "Ask coding questions across LLM providers",
	Long: `codebud (cb) answers programming questions with an explanation and a
code example, using OpenAI, Anthropic, Gemini or Ollama.

Examples:
  cb how do I reverse a slice
  cb -l python read a csv file into a dict
  cb chat
  cb serve --listen :3000`,
	Args:              cobra.ArbitraryArgs,
	PersistentPreRunE: loadEnvFile,
	RunE:              runAsk,
	SilenceUsage:      true,
	DisableAutoGenTag: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("model", "", "override model for this session")
	pf.StringP("language", "l", "", "programming language for answers")
	pf.String("server", "", "codebud server URL; empty calls providers directly")
	pf.String("log-level", "warn", "log level: debug, info, warn, error")
	pf.Bool("push-config", false, "send the configured provider session to --server before asking")
	bindFlags(pf, "model", "language", "server", "log-level", "push-config")
}

func Execute() error {
	return rootCmd.Execute()
}

// loadEnvFile loads .env from the working directory when present.
func loadEnvFile(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", envFile, err)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.Help()
	}

	cfg, err := sessionSettings()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	c, err := newChatter(ctx, cfg)
	if err != nil {
		return err
	}

	res, err := c.SendMessage(ctx, strings.Join(args, " "), cfg.Language, nil)
	if apiclient.IsConfigurationRequired(err) {
		return fmt.Errorf("server %s has no provider session. Rerun with --push-config or start it with 'cb serve --bootstrap': %w", cfg.Server, err)
	}
	if err != nil {
		return fmt.Errorf("asking %s: %w", cfg.Provider, err)
	}
	printResult(ioOut, res, cfg.Language)
	return nil
}

// sessionSettings loads settings for commands that talk to a provider.
func sessionSettings() (*config.Config, error) {
	cfg, found, err := loadSettings()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("no config found. Run 'cb setup' to get started")
	}
	return cfg, nil
}

// defaultChatter returns a client for cfg.Server when set, otherwise an
// in-process chat service configured from cfg.
func defaultChatter(ctx context.Context, cfg *config.Config) (repl.Chatter, error) {
	if cfg.Server != "" {
		c, err := apiclient.New(cfg.Server)
		if err != nil {
			return nil, err
		}
		if settings.GetBool("push-config") {
			if err := c.UpdateConfig(ctx, cfg.Session()); err != nil {
				return nil, fmt.Errorf("configuring server: %w", err)
			}
		}
		return c, nil
	}

	logger, err := newLogger(os.Stderr, settings.GetString("log-level"))
	if err != nil {
		return nil, err
	}
	svc := chat.New(registry.New(cfg.Endpoints), logger)
	if err := svc.UpdateConfig(ctx, cfg.Session()); err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}
	return svc, nil
}

func printResult(w io.Writer, res provider.Result, language string) {
	if res.Explanation != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", res.Explanation)
	}
	if res.Code != "" {
		_, _ = fmt.Fprintf(w, "\n```%s\n%s\n```\n", strings.ToLower(language), res.Code)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
