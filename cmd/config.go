package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/idrclose/internal/config"
	"github.com/telhawk-systems/idrclose/pkg/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the idrclose configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter config file to --config, or $HOME/.idrclose/config.yaml.
An existing file is never overwritten. The API key is not written; set
IDRCLOSE_API_KEY or add api_key yourself.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			p, err := config.DefaultPath()
			if err != nil {
				return err
			}
			path = p
		}

		if err := config.WriteDefault(path); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		output.New(cmd.OutOrStdout(), cmd.ErrOrStderr()).Success("Wrote %s", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			cfg = config.Default()
		}
		c := *cfg
		applyFlags(cmd, &c)

		p := output.New(cmd.OutOrStdout(), cmd.ErrOrStderr())
		table := p.NewTable([]string{"Key", "Value"})
		table.AddRow([]string{"config_file", c.Path()})
		table.AddRow([]string{"base_url", c.APIBaseURL()})
		table.AddRow([]string{"log_file", c.LogFile})
		table.AddRow([]string{"snapshot_file", c.SnapshotFile})
		table.AddRow([]string{"log_level", c.LogLevel})
		table.AddRow([]string{"log_format", c.LogFormat})
		table.AddRow([]string{"timeout", c.Timeout.String()})
		table.AddRow([]string{"rate_limit", fmt.Sprintf("%g", c.RateLimit)})
		table.AddRow([]string{"split_alert_types", fmt.Sprintf("%t", c.SplitAlertTypes)})
		table.AddRow([]string{"api_key", maskKey(c.APIKey)})
		table.Render()

		return c.Validate()
	},
}

// maskKey hides all but the last four characters of an API key.
func maskKey(key string) string {
	switch {
	case key == "":
		return "(not set)"
	case len(key) <= 4:
		return "****"
	default:
		return "****" + key[len(key)-4:]
	}
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)
}
