package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scottsaenz/child-allowance-tracker/internal/version"
)

var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Version: %s\nGit commit: %s\nBuild date: %s\n",
			version.Version, version.GitCommit, version.BuildDate)
	},
}
