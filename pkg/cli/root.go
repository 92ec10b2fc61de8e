package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/scottsaenz/child-allowance-tracker/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "allowance",
	Short: "Child allowance tracker",
	Long: `allowance tracks children's balances, chores, transactions and expenditures.

Run "allowance serve" for the HTTP API or "allowance mcp" for the MCP tools.
Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(cli.ServeCmd)
	rootCmd.AddCommand(cli.MCPCmd)
	rootCmd.AddCommand(cli.TokenCmd)
	rootCmd.AddCommand(cli.SeedCmd)
	rootCmd.AddCommand(cli.SheetCmd)
	rootCmd.AddCommand(cli.VersionCmd)
}

func Root() *cobra.Command {
	return rootCmd
}
