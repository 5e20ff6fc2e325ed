package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hpkotak/codebud/internal/apiclient"
	"github.com/hpkotak/codebud/internal/chat"
	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List example models per provider",
	Args:  cobra.NoArgs,
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadSettings()
	if err != nil {
		return err
	}

	catalogue := chat.Models()
	if cfg.Server != "" {
		c, err := apiclient.New(cfg.Server)
		if err != nil {
			return err
		}
		if catalogue, err = c.Models(commandContext(cmd)); err != nil {
			return fmt.Errorf("fetching models: %w", err)
		}
	}

	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(ioOut, "%-10s %s\n", name, strings.Join(catalogue[name], "; "))
	}
	return nil
}
