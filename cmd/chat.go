package cmd

import (
	"github.com/hpkotak/codebud/internal/repl"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive coding chat",
	Long: `Start an interactive chat session.
Ask questions, get an explanation and a code example, and keep the conversation going.

Type 'exit' or 'quit' to end the session. Ctrl+D also works.`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := sessionSettings()
	if err != nil {
		return err
	}

	ctx := commandContext(cmd)
	c, err := newChatter(ctx, cfg)
	if err != nil {
		return err
	}

	tty := isTerminal()
	return repl.Run(ctx, c, repl.Options{
		Language: cfg.Language,
		Color:    tty,
		Spinner:  tty,
	}, ioIn, ioOut)
}
