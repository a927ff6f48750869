// Package config loads idrclose settings from defaults, an optional YAML
// file and IDRCLOSE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/telhawk-systems/idrclose/internal/client"
	"github.com/telhawk-systems/idrclose/internal/snapshot"
)

const (
	EnvPrefix = "IDRCLOSE"

	// DefaultLogFile is the session log, truncated on every run.
	DefaultLogFile = "bulkclose.log"
)

// ErrConfigExists is returned by WriteDefault when the target file exists.
var ErrConfigExists = errors.New("config file already exists")

type Config struct {
	BaseURL         string        `mapstructure:"base_url"`
	Region          string        `mapstructure:"region"`
	APIKey          string        `mapstructure:"api_key"`
	LogFile         string        `mapstructure:"log_file"`
	SnapshotFile    string        `mapstructure:"snapshot_file"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"`
	SplitAlertTypes bool          `mapstructure:"split_alert_types"`

	path string
}

func Default() *Config {
	return &Config{
		LogFile:      DefaultLogFile,
		SnapshotFile: snapshot.DefaultFile,
		LogLevel:     "info",
		LogFormat:    "text",
		Timeout:      30 * time.Second,
		RateLimit:    5,
	}
}

// DefaultPath returns $IDRCLOSE_CONFIG_DIR/config.yaml, falling back to
// $HOME/.idrclose/config.yaml.
func DefaultPath() (string, error) {
	dir := os.Getenv(EnvPrefix + "_CONFIG_DIR")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".idrclose")
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads configuration from cfgFile (or DefaultPath when empty). A missing
// file is not an error; a malformed one is.
func Load(cfgFile string) (*Config, error) {
	if cfgFile == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		cfgFile = p
	}

	v := viper.New()

	def := Default()
	v.SetDefault("base_url", "")
	v.SetDefault("region", "")
	v.SetDefault("api_key", "")
	v.SetDefault("log_file", def.LogFile)
	v.SetDefault("snapshot_file", def.SnapshotFile)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("timeout", def.Timeout)
	v.SetDefault("rate_limit", def.RateLimit)
	v.SetDefault("split_alert_types", def.SplitAlertTypes)

	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.path = cfgFile

	return cfg, nil
}

// Path is the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// APIBaseURL resolves the InsightIDR host: an explicit base_url wins, then
// region, then the us2 default.
func (c *Config) APIBaseURL() string {
	switch {
	case c.BaseURL != "":
		return c.BaseURL
	case c.Region != "":
		return client.RegionURL(c.Region)
	default:
		return client.DefaultBaseURL
	}
}

func (c *Config) Validate() error {
	var errs []error

	if u, err := url.Parse(c.APIBaseURL()); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("base_url %q must be an absolute http(s) URL", c.APIBaseURL()))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log_level %q must be one of debug, info, warn, error", c.LogLevel))
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}

	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %g", c.RateLimit))
	}

	return errors.Join(errs...)
}

// starter is the on-disk form written by WriteDefault. Timeout is kept as a
// duration string so the file stays readable.
type starter struct {
	BaseURL         string  `yaml:"base_url"`
	Region          string  `yaml:"region,omitempty"`
	LogFile         string  `yaml:"log_file"`
	SnapshotFile    string  `yaml:"snapshot_file"`
	LogLevel        string  `yaml:"log_level"`
	LogFormat       string  `yaml:"log_format"`
	Timeout         string  `yaml:"timeout"`
	RateLimit       float64 `yaml:"rate_limit"`
	SplitAlertTypes bool    `yaml:"split_alert_types"`
}

// WriteDefault writes a starter config to path. It never overwrites an
// existing file and never writes an API key.
func WriteDefault(path string) error {
	def := Default()
	data, err := yaml.Marshal(starter{
		BaseURL:         client.DefaultBaseURL,
		LogFile:         def.LogFile,
		SnapshotFile:    def.SnapshotFile,
		LogLevel:        def.LogLevel,
		LogFormat:       def.LogFormat,
		Timeout:         def.Timeout.String(),
		RateLimit:       def.RateLimit,
		SplitAlertTypes: def.SplitAlertTypes,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", ErrConfigExists, path)
		}
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
