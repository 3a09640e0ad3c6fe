// Package config holds the runtime configuration of the exporter.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/danpilch/btrfs_exporter/pkg/collectors/btrfs"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "BTRFS_EXPORTER_"

const (
	DefaultPort          = 9899
	DefaultListenAddress = "::"
	DefaultMetricsPath   = "/metrics"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config is the exporter configuration.
type Config struct {
	Mountpoints   []string
	ListenAddress string
	Port          int
	MetricsPath   string
	BtrfsPath     string
	SudoPath      string
	NoSudo        bool
	Timeout       time.Duration
	Concurrency   int
	LogLevel      string
	LogFormat     string
	PprofAddr     string
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		ListenAddress: DefaultListenAddress,
		Port:          DefaultPort,
		MetricsPath:   DefaultMetricsPath,
		BtrfsPath:     btrfs.DefaultBtrfsPath,
		SudoPath:      btrfs.DefaultSudoPath,
		Timeout:       btrfs.DefaultTimeout,
		LogLevel:      "info",
		LogFormat:     LogFormatText,
	}
}

// FromEnv returns Default overlaid with BTRFS_EXPORTER_* environment variables.
// A .env file in the working directory is loaded first when present; variables
// already set in the environment take precedence over it.
func FromEnv() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	var errs error

	if v, ok := lookup("MOUNTPOINTS"); ok {
		cfg.Mountpoints = SplitMountpoints(v)
	}
	if v, ok := lookup("LISTEN_ADDRESS"); ok {
		cfg.ListenAddress = v
	}
	if v, ok := lookup("PORT"); ok {
		port, err := strconv.Atoi(v)
		errs = multierr.Append(errs, envErr("PORT", err))
		if err == nil {
			cfg.Port = port
		}
	}
	if v, ok := lookup("METRICS_PATH"); ok {
		cfg.MetricsPath = v
	}
	if v, ok := lookup("BTRFS_PATH"); ok {
		cfg.BtrfsPath = v
	}
	if v, ok := lookup("SUDO_PATH"); ok {
		cfg.SudoPath = v
	}
	if v, ok := lookup("NO_SUDO"); ok {
		b, err := strconv.ParseBool(v)
		errs = multierr.Append(errs, envErr("NO_SUDO", err))
		cfg.NoSudo = b
	}
	if v, ok := lookup("TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		errs = multierr.Append(errs, envErr("TIMEOUT", err))
		if err == nil {
			cfg.Timeout = d
		}
	}
	if v, ok := lookup("CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		errs = multierr.Append(errs, envErr("CONCURRENCY", err))
		cfg.Concurrency = n
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := lookup("PPROF_ADDR"); ok {
		cfg.PprofAddr = v
	}

	if errs != nil {
		return nil, errs
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c *Config) Validate() error {
	var errs error
	if len(c.Mountpoints) == 0 {
		errs = multierr.Append(errs, errors.New("at least one mountpoint is required"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = multierr.Append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if !strings.HasPrefix(c.MetricsPath, "/") {
		errs = multierr.Append(errs, fmt.Errorf("metrics path %q must start with /", c.MetricsPath))
	}
	if c.BtrfsPath == "" {
		errs = multierr.Append(errs, errors.New("btrfs path is empty"))
	}
	if !c.NoSudo && c.SudoPath == "" {
		errs = multierr.Append(errs, errors.New("sudo path is empty"))
	}
	if c.Timeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("timeout %v must be positive", c.Timeout))
	}
	if c.Concurrency < 0 {
		errs = multierr.Append(errs, fmt.Errorf("concurrency %d must not be negative", c.Concurrency))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = multierr.Append(errs, err)
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		errs = multierr.Append(errs, fmt.Errorf("log format %q must be %s or %s", c.LogFormat, LogFormatText, LogFormatJSON))
	}
	return errs
}

// Addr returns the host:port the metrics server listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.ListenAddress, strconv.Itoa(c.Port))
}

// CollectorOptions returns the device stats invocation settings.
func (c *Config) CollectorOptions() btrfs.Options {
	return btrfs.Options{
		BtrfsPath: c.BtrfsPath,
		SudoPath:  c.SudoPath,
		UseSudo:   !c.NoSudo,
		Timeout:   c.Timeout,
	}
}

// SplitMountpoints parses a comma-delimited mountpoint list. Surrounding space,
// empty entries, and duplicates are dropped; order is preserved.
func SplitMountpoints(list string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, mp := range strings.Split(list, ",") {
		mp = strings.TrimSpace(mp)
		if mp == "" || seen[mp] {
			continue
		}
		seen[mp] = true
		out = append(out, mp)
	}
	return out
}

func lookup(name string) (string, bool) {
	return os.LookupEnv(EnvPrefix + name)
}

func envErr(name string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
}
