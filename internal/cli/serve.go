package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker"
)

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Serve the REST API, and the MCP bridge when MCP_PORT is set, until interrupted. Configuration comes from the environment and an optional .env file.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := tracker.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = app.Close(context.Background()) }()

		return app.Run(ctx)
	},
}
