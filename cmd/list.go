package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/idrclose/internal/investigation"
	"github.com/telhawk-systems/idrclose/internal/service"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List open investigations in a date range",
	Long: `Fetch the investigations created between --from and --to and print the
open ones. The raw response is saved to the snapshot file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := flagDateRange(cmd)
		if err != nil {
			return err
		}

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		apiKey, err := a.apiKey()
		if err != nil {
			return err
		}

		ctx, stop := signalContext(a.withSession(cmd.Context()))
		defer stop()

		result := a.fetcher.Fetch(ctx, apiKey, r)
		if result.State == service.FetchFailed {
			return fmt.Errorf("failed to list investigations: %w", result.Err)
		}

		outputFormat, _ := cmd.Flags().GetString("output")
		if outputFormat == "json" {
			invs := result.Investigations
			if invs == nil {
				invs = []investigation.Investigation{}
			}
			return a.printer.JSON(invs)
		}

		if result.State == service.FetchEmpty {
			a.printer.Info("No open investigations found.")
			return nil
		}

		table := a.printer.NewTable([]string{"ID", "Title", "Source", "Alert Type"})
		for _, inv := range result.Investigations {
			table.AddRow([]string{inv.ID, inv.Title, inv.Source, inv.AlertType})
		}
		table.Render()

		a.printer.Info("\nNumber of open alerts found: %d", len(result.Investigations))
		return nil
	},
}

func init() {
	addDateFlags(listCmd)
	rootCmd.AddCommand(listCmd)
}
