package main

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/danpilch/btrfs_exporter/pkg/collectors/btrfs"
	"github.com/danpilch/btrfs_exporter/pkg/config"
)

// app carries the configuration shared by every subcommand.
type app struct {
	cfg    *config.Config
	envErr error
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	cfg, err := config.FromEnv()
	if err != nil {
		cfg = config.Default()
	}
	a := &app{cfg: cfg, envErr: err}

	root := &cobra.Command{
		Use:   "btrfs-exporter [mountpoints]",
		Short: "Prometheus exporter for btrfs device error counters",
		Long: `btrfs-exporter runs "btrfs device stats" against every configured mountpoint
on each scrape and exposes the per-device error counters as gauges.

Mountpoints are given as a comma-separated list, either as the positional
argument or through BTRFS_EXPORTER_MOUNTPOINTS.

Commands:
  serve     Serve metrics over HTTP (default)
  collect   Run one collection and print the counters
  version   Print version information`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          a.runServe,
	}

	a.addCollectionFlags(root.PersistentFlags())
	a.addServeFlags(root.Flags())

	root.AddCommand(
		a.newServeCmd(),
		a.newCollectCmd(),
		newVersionCmd(),
	)
	return root
}

// addCollectionFlags registers the flags every collecting command shares.
// Defaults come from the environment so flags always win.
func (a *app) addCollectionFlags(flags *pflag.FlagSet) {
	flags.StringVar(&a.cfg.BtrfsPath, "btrfs-path", a.cfg.BtrfsPath, "Path to the btrfs binary")
	flags.StringVar(&a.cfg.SudoPath, "sudo-path", a.cfg.SudoPath, "Path to sudo")
	flags.BoolVar(&a.cfg.NoSudo, "no-sudo", a.cfg.NoSudo, "Run btrfs directly instead of through sudo")
	flags.DurationVar(&a.cfg.Timeout, "timeout", a.cfg.Timeout, "Deadline for one device stats invocation")
	flags.IntVar(&a.cfg.Concurrency, "concurrency", a.cfg.Concurrency, "Maximum concurrent invocations (0 = one per mountpoint)")
	flags.StringVar(&a.cfg.LogLevel, "log-level", a.cfg.LogLevel, "Log level (trace, debug, info, warn, error)")
	flags.StringVar(&a.cfg.LogFormat, "log-format", a.cfg.LogFormat, "Log format (text, json)")
}

func (a *app) addServeFlags(flags *pflag.FlagSet) {
	flags.IntVarP(&a.cfg.Port, "port", "p", a.cfg.Port, "Port to serve metrics on")
	flags.StringVar(&a.cfg.ListenAddress, "listen-address", a.cfg.ListenAddress, "Address to bind")
	flags.StringVar(&a.cfg.MetricsPath, "metrics-path", a.cfg.MetricsPath, "HTTP path for metrics")
	flags.StringVar(&a.cfg.PprofAddr, "pprof-addr", a.cfg.PprofAddr, "Serve pprof on this address (disabled when empty)")
}

// prepare applies positional mountpoints, validates the configuration and
// builds the logger.
func (a *app) prepare(args []string) error {
	if a.envErr != nil {
		return a.envErr
	}
	if len(args) > 0 {
		a.cfg.Mountpoints = config.SplitMountpoints(strings.Join(args, ","))
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	a.logger = newLogger(a.cfg)
	return nil
}

// checkMountpoints warns about mountpoints that are not btrfs. Collection still
// proceeds; the invocation itself reports the real failure.
func (a *app) checkMountpoints() {
	for _, mp := range a.cfg.Mountpoints {
		if err := btrfs.CheckMountpoint(mp); err != nil {
			a.logger.WithField("mountpoint", mp).WithError(err).Warn("Mountpoint check failed")
		}
	}
}

func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == config.LogFormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}
