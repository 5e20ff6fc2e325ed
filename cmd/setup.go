package cmd

import (
	"github.com/hpkotak/codebud/internal/setup"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure codebud (first-time or reconfigure)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setup.Run(ioIn, ioOut)
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
