package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/idrclose/internal/client"
	"github.com/telhawk-systems/idrclose/internal/investigation"
	"github.com/telhawk-systems/idrclose/internal/prompt"
	"github.com/telhawk-systems/idrclose/internal/service"
)

var errAborted = errors.New("aborted")

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Close open investigations in a date range",
	Long: `Close investigations without the interactive menus.

With --source, a single bulk-close request is sent for that source (and
--alert-type when the source is ALERT). Without it, the open investigations
are fetched first and closed grouped by source, as the interactive session
does.`,
	Example: `  idrclose close --from 2018-06-06 --to 2018-06-07
  idrclose close --from 2018-06-06 --to 2018-06-07 --source ALERT --alert-type phishing --yes`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := flagDateRange(cmd)
		if err != nil {
			return err
		}

		source, _ := cmd.Flags().GetString("source")
		alertType, _ := cmd.Flags().GetString("alert-type")
		if alertType != "" && source != investigation.SourceAlert {
			return fmt.Errorf("--alert-type requires --source %s", investigation.SourceAlert)
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

		if source != "" {
			return closeSource(ctx, cmd, a, apiKey, r, source, alertType)
		}
		return closeAll(ctx, cmd, a, apiKey, r)
	},
}

func closeSource(ctx context.Context, cmd *cobra.Command, a *app, apiKey string, r investigation.DateRange, source, alertType string) error {
	target := source
	if alertType != "" {
		target = fmt.Sprintf("%s (%s)", source, alertType)
	}
	if err := confirm(cmd, a.ask, fmt.Sprintf("Close all %s investigations from %s?", target, r)); err != nil {
		return err
	}

	resp, err := a.closer.Close(ctx, apiKey, r, source, alertType)
	if err != nil {
		return fmt.Errorf("failed to close investigations: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("failed to close %s source investigations: %w", source, &client.APIError{
			StatusCode: resp.StatusCode,
			Reason:     resp.Reason,
			Body:       string(resp.Body),
		})
	}

	closed, err := resp.DecodeBulkClose()
	if err != nil {
		a.printer.Warn("Closed %s source investigations but the response could not be parsed: %v", source, err)
		return nil
	}
	a.printer.Success("Closed %d %s source investigations.", closed.NumClosed, source)
	return nil
}

func closeAll(ctx context.Context, cmd *cobra.Command, a *app, apiKey string, r investigation.DateRange) error {
	result := a.fetcher.Fetch(ctx, apiKey, r)
	switch result.State {
	case service.FetchFailed:
		return fmt.Errorf("failed to list investigations: %w", result.Err)
	case service.FetchEmpty:
		a.printer.Info("No open investigations found.")
		return nil
	}

	if err := confirm(cmd, a.ask, fmt.Sprintf("Close %d open investigations from %s?", len(result.Investigations), r)); err != nil {
		return err
	}

	summary := a.closer.CloseGrouped(ctx, apiKey, r, result.Investigations)
	for _, res := range summary.Results {
		if res.Failed() {
			a.printer.Error("Failed to close %s source investigations: %v", res.Source, res.Err)
			continue
		}
		a.printer.Success("Closed %d %s source investigations.", res.NumClosed, res.Source)
	}
	a.printer.Info("Total closed alerts: %d", summary.Total)

	if n := summary.Failures(); n > 0 {
		return fmt.Errorf("%d of %d bulk-close requests failed", n, len(summary.Results))
	}
	return nil
}

// confirm asks a yes/no question through p unless --yes was given.
func confirm(cmd *cobra.Command, p *prompt.Terminal, question string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return nil
	}

	answer, err := p.ReadLine(question + " [y/N]: ")
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return nil
	default:
		return errAborted
	}
}

func init() {
	addDateFlags(closeCmd)
	closeCmd.Flags().String("source", "", "close only this source, e.g. ALERT, MANUAL")
	closeCmd.Flags().String("alert-type", "", "alert type to close (requires --source ALERT)")
	closeCmd.Flags().BoolP("yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(closeCmd)
}
