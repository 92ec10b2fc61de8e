package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"google.golang.org/api/option"

	"github.com/scottsaenz/child-allowance-tracker/internal/tracker/sheets"
	"github.com/scottsaenz/child-allowance-tracker/pkg/printer"
)

var sheetOutput string

var SheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Inspect the expenditure spreadsheet",
}

var sheetRowsCmd = &cobra.Command{
	Use:   "rows",
	Short: "List the expenditures recorded in GOOGLE_SHEET_ID",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		outputType, err := printer.ParseOutputType(sheetOutput)
		if err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.Sheets.Enabled() {
			return errors.New("GOOGLE_SHEET_ID is not set")
		}

		var opts []option.ClientOption
		if cfg.Sheets.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.Sheets.CredentialsFile))
		}
		mirror, err := sheets.New(cmd.Context(), cfg.Sheets.SpreadsheetID, cfg.Sheets.RangeName, opts...)
		if err != nil {
			return err
		}
		exps, skipped, err := mirror.ListExpenditures(cmd.Context())
		if err != nil {
			return err
		}

		if outputType != printer.OutputTypeTable {
			p := printer.New(outputType)
			p.SetOutput(cmd.OutOrStdout())
			return p.Print(exps)
		}

		t := printer.NewTablePrinter(cmd.OutOrStdout())
		t.SetHeaders("Date", "Child", "Amount", "Description")
		var total float64
		for _, e := range exps {
			t.AddRow(e.Date, printer.EmptyValueOrDefault(e.ChildName, "-"), printer.FormatAmount(e.Amount), printer.TruncateString(e.Description, 50))
			total += e.Amount
		}
		if err := t.Render(); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "\n%d rows, total %s\n", len(exps), printer.FormatAmount(total))
		if skipped > 0 {
			printer.PrintWarning(cmd.ErrOrStderr(), fmt.Sprintf("%d malformed rows skipped", skipped))
		}
		return nil
	},
}

func init() {
	sheetRowsCmd.Flags().StringVarP(&sheetOutput, "output", "o", "table", "Output format: table, json or yaml")
	SheetCmd.AddCommand(sheetRowsCmd)
}
