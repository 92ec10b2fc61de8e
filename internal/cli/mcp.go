package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker"
)

var MCPCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the MCP tools over stdio",
	Long:  "Expose children, chores, transactions and expenditures as MCP tools on stdin/stdout, for local assistants. The HTTP API is not started.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		// stdio is only reachable by the local user
		cfg.MCPPort = 0

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		app, err := tracker.NewApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = app.Close(context.Background()) }()

		return app.MCPServer().Run(ctx, &mcp.StdioTransport{})
	},
}
