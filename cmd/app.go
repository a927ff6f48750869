package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/telhawk-systems/idrclose/internal/client"
	"github.com/telhawk-systems/idrclose/internal/config"
	"github.com/telhawk-systems/idrclose/internal/investigation"
	"github.com/telhawk-systems/idrclose/internal/logging"
	"github.com/telhawk-systems/idrclose/internal/prompt"
	"github.com/telhawk-systems/idrclose/internal/service"
	"github.com/telhawk-systems/idrclose/internal/snapshot"
	"github.com/telhawk-systems/idrclose/pkg/output"
)

// app bundles the components shared by every command that talks to
// InsightIDR.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	logFile  io.Closer
	printer  *output.Printer
	prompter *prompt.Terminal
	// ask prompts on stderr over the same input as prompter.
	ask      *prompt.Terminal
	api      *client.IDRClient
	fetcher  *service.Fetcher
	closer   *service.Closer
}

func newApp(cmd *cobra.Command) (*app, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	c := *cfg
	applyFlags(cmd, &c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		output.DisableColor()
	}
	printer := output.New(cmd.OutOrStdout(), cmd.ErrOrStderr())

	opts := logging.Options{
		Level:  logging.ParseLevel(c.LogLevel),
		Format: c.LogFormat,
		File:   c.LogFile,
	}
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		opts.Console = cmd.ErrOrStderr()
	}
	logger, logFile, err := logging.Open(opts)
	if err != nil {
		return nil, err
	}

	api := client.NewIDRClient(c.APIBaseURL(),
		client.WithTimeout(c.Timeout),
		client.WithRateLimit(c.RateLimit),
	)

	prompter := newPrompter(cmd, cmd.OutOrStdout())

	return &app{
		cfg:      &c,
		logger:   logger,
		logFile:  logFile,
		printer:  printer,
		prompter: prompter,
		ask:      prompter.WithOutput(cmd.ErrOrStderr()),
		api:      api,
		fetcher:  service.NewFetcher(api, snapshot.NewWriter(c.SnapshotFile), logger),
		closer:   service.NewCloser(api, logger, service.WithSplitAlertTypes(c.SplitAlertTypes)),
	}, nil
}

func (a *app) Close() error {
	return a.logFile.Close()
}

// withSession tags ctx with a fresh session ID so one run's log records can
// be correlated.
func (a *app) withSession(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.WithSessionID(ctx, logging.NewSessionID())
}

// signalContext cancels ctx on SIGINT or SIGTERM so one-shot commands abort
// in-flight requests.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// apiKey returns the configured API key or prompts for one on stderr, keeping
// stdout clean for --output json. Used by the one-shot commands; the
// interactive session always prompts.
func (a *app) apiKey() (string, error) {
	if a.cfg.APIKey != "" {
		return a.cfg.APIKey, nil
	}
	key, err := a.ask.ReadSecret("Enter your API Key: ")
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("API key is required (set %s_API_KEY or api_key in the config file)", config.EnvPrefix)
	}
	return key, nil
}

// newPrompter reads from the command's input. Masking only applies when that
// input is the process's terminal.
func newPrompter(cmd *cobra.Command, out io.Writer) *prompt.Terminal {
	if in := cmd.InOrStdin(); in != os.Stdin {
		return prompt.NewReader(in, out)
	}
	return prompt.NewTerminal(out)
}

func flagDateRange(cmd *cobra.Command) (investigation.DateRange, error) {
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")

	r, err := investigation.ParseDateRange(from, to)
	if err != nil {
		return investigation.DateRange{}, fmt.Errorf("invalid date range: %w", err)
	}
	return r, nil
}

func addDateFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "start date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "end date (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}
