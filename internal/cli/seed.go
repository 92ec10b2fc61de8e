package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/seed"
	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/service"
	"github.com/scottsaenz/child-allowance-tracker/pkg/printer"
	"github.com/scottsaenz/child-allowance-tracker/pkg/tracker/auth"
)

var SeedCmd = &cobra.Command{
	Use:   "seed <file-or-url>",
	Short: "Import children and chores from a YAML or JSON file",
	Long:  "Import children and chores into the configured storage backend. Entries that already exist are skipped, so the same file can be imported repeatedly.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		db, err := tracker.OpenDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()

		res, err := seed.ImportFromPath(auth.WithSystemContext(ctx), service.NewTrackerService(db), args[0])
		if err != nil {
			return err
		}
		printer.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf(
			"Imported %d children (%d skipped) and %d chores (%d skipped)",
			res.ChildrenCreated, res.ChildrenSkipped, res.ChoresCreated, res.ChoresSkipped,
		))
		return nil
	},
}
