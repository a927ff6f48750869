package cmd

import (
	"github.com/spf13/cobra"

	"github.com/telhawk-systems/idrclose/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Start the interactive closure session",
	Long: `Prompt for an API key and a date range, list the open investigations in
that range and close them grouped by source or one at a time.`,
	Args: cobra.NoArgs,
	RunE: runSession,
}

func runSession(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	s := session.New(a.prompter, a.fetcher, a.closer, a.printer, a.logger)
	return s.Run(a.withSession(cmd.Context()))
}

func init() {
	rootCmd.AddCommand(sessionCmd)
}
