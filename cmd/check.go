package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/hpkotak/codebud/internal/apiclient"
	"github.com/hpkotak/codebud/internal/provider"
	"github.com/spf13/cobra"
)

const checkTimeout = 15 * time.Second

// newProvider is swapped in tests.
var newProvider = provider.NewFromConfig

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the configured provider or server is reachable",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := sessionSettings()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(commandContext(cmd), checkTimeout)
	defer cancel()

	if cfg.Server != "" {
		c, err := apiclient.New(cfg.Server)
		if err != nil {
			return err
		}
		if err := c.Health(ctx); err != nil {
			return fmt.Errorf("server %s: %w", cfg.Server, err)
		}
		_, _ = fmt.Fprintf(ioOut, "[ok] server %s is healthy\n", cfg.Server)
		return nil
	}

	p, err := newProvider(provider.BuildConfig{Config: cfg.Session(), Endpoints: cfg.Endpoints})
	if err != nil {
		return fmt.Errorf("creating provider: %w", err)
	}
	if err := p.Available(ctx); err != nil {
		return fmt.Errorf("%s: %w", p.Name(), err)
	}
	_, _ = fmt.Fprintf(ioOut, "[ok] %s model %s is available\n", p.Name(), cfg.Model)
	return nil
}
