package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hpkotak/codebud/internal/chat"
	"github.com/hpkotak/codebud/internal/registry"
	"github.com/hpkotak/codebud/internal/server"
	"github.com/spf13/cobra"
)

// listenAndServe is swapped in tests.
var listenAndServe = func(ctx context.Context, srv *server.Server, addr string) error {
	return srv.ListenAndServe(ctx, addr)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the chat HTTP API",
	Long: `Run the HTTP API used by codebud clients:

  GET  /api/chat/models
  POST /api/chat/message
  POST /api/chat/config
  GET  /health

The provider session starts unset and is chosen by clients through
/api/chat/config, unless --bootstrap applies the configured one at startup.
Settings can also come from CODEBUD_* environment variables or a .env file.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "address to listen on (default from config, or :$PORT)")
	serveCmd.Flags().Bool("bootstrap", false, "apply the configured provider session at startup")
	bindFlags(serveCmd.Flags(), "listen", "bootstrap")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	level := "info"
	if settings.IsSet("log-level") {
		level = settings.GetString("log-level")
	}
	logger, err := newLogger(os.Stderr, level)
	if err != nil {
		return err
	}

	cfg, _, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := chat.New(registry.New(cfg.Endpoints), logger)
	if settings.GetBool("bootstrap") {
		if err := svc.UpdateConfig(ctx, cfg.Session()); err != nil {
			return fmt.Errorf("bootstrapping provider session: %w", err)
		}
	}

	return listenAndServe(ctx, server.New(svc, logger), cfg.Listen)
}
