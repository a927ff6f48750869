package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/idrclose/internal/config"
)

// Version is overridden at build time with -ldflags "-X ...cmd.Version=...".
var Version = "0.1.0"

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "idrclose",
	Short: "Bulk-close InsightIDR investigations",
	Long: `idrclose closes open Rapid7 InsightIDR investigations in bulk.

Run without a subcommand to start the interactive session: enter an API key
and a date range, review the open investigations, then close them grouped by
source or one at a time. Every API call and response is written to the
session log.`,
	Version:      Version,
	SilenceUsage: true,
	RunE:         runSession,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.idrclose/config.yaml)")
	flags.String("base-url", "", "InsightIDR API base URL (default: https://us2.api.insight.rapid7.com)")
	flags.String("region", "", "InsightIDR region used to build the base URL, e.g. us, eu, ca")
	flags.String("log-file", "", "session log file (default: bulkclose.log)")
	flags.String("snapshot-file", "", "file receiving the raw investigations response (default: raw_alerts.json)")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	flags.Bool("split-alert-types", false, "close ALERT investigations once per alert type instead of once per source")
	flags.Bool("verbose", false, "mirror log records to stderr")
	flags.Bool("no-color", false, "disable coloured output")
	flags.StringP("output", "o", "table", "output format: table, json")
}

func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load config: %v\n", err)
		cfg = config.Default()
	}
}

// applyFlags overlays explicitly set persistent flags on the loaded config.
func applyFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("base-url") {
		c.BaseURL, _ = flags.GetString("base-url")
	}
	if flags.Changed("region") {
		c.Region, _ = flags.GetString("region")
		if !flags.Changed("base-url") {
			c.BaseURL = ""
		}
	}
	if flags.Changed("log-file") {
		c.LogFile, _ = flags.GetString("log-file")
	}
	if flags.Changed("snapshot-file") {
		c.SnapshotFile, _ = flags.GetString("snapshot-file")
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("split-alert-types") {
		c.SplitAlertTypes, _ = flags.GetBool("split-alert-types")
	}
}
