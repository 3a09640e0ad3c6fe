package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/danpilch/btrfs_exporter/pkg/baseline"
	"github.com/danpilch/btrfs_exporter/pkg/collectors"
	"github.com/danpilch/btrfs_exporter/pkg/collectors/btrfs"
	"github.com/danpilch/btrfs_exporter/pkg/debug"
	"github.com/danpilch/btrfs_exporter/pkg/output"
)

// exitRegression is returned by collect --compare when counters grew since the baseline.
const exitRegression = 4

type collectOptions struct {
	format       string
	timing       bool
	trace        bool
	saveBaseline string
	compare      string
	baselineDir  string
}

func (a *app) newCollectCmd() *cobra.Command {
	opts := &collectOptions{}
	cmd := &cobra.Command{
		Use:   "collect [mountpoints]",
		Short: "Run one collection and print the counters",
		Long: `Run "btrfs device stats" once for every mountpoint and print the counters.

Exit codes:
  0  no device reports errors
  2  at least one device reports a non-zero counter
  3  a mountpoint could not be collected
  4  counters increased since the baseline given with --compare

Example:
  btrfs-exporter collect /,/home
  btrfs-exporter collect /data -o json
  btrfs-exporter collect /data --save-baseline before-upgrade
  btrfs-exporter collect /data --compare before-upgrade`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCollect(cmd, args, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.format, "output", "o", string(output.FormatTable), "Output format (table, json, tsv)")
	flags.BoolVar(&opts.timing, "timing", false, "Print per-mountpoint timing to stderr")
	flags.BoolVar(&opts.trace, "trace", false, "Trace invocations and parsed values to stderr")
	flags.StringVar(&opts.saveBaseline, "save-baseline", "", "Save the counters as a named baseline")
	flags.StringVar(&opts.compare, "compare", "", "Compare the counters against a named baseline")
	flags.StringVar(&opts.baselineDir, "baseline-dir", "", "Baseline directory (default ~/.btrfs_exporter/baselines)")
	return cmd
}

func (a *app) runCollect(cmd *cobra.Command, args []string, opts *collectOptions) error {
	format, err := output.ParseFormat(opts.format)
	if err != nil {
		return err
	}
	if err := a.prepare(args); err != nil {
		return err
	}
	a.checkMountpoints()

	var prior *baseline.Baseline
	if opts.compare != "" {
		if prior, err = baseline.Load(opts.compare, opts.baselineDir); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bc := btrfs.New(a.cfg.CollectorOptions(), nil, a.logger)
	if opts.trace {
		bc.SetTraceLogger(debug.NewTraceLogger(cmd.ErrOrStderr()))
	}
	var collector collectors.Collector = bc
	var timed *debug.TimedCollector
	if opts.timing {
		timed = debug.NewTimedCollector(bc)
		collector = timed
	}

	result := collectors.NewCoordinator(collector, a.cfg.Concurrency, a.logger).Run(ctx, a.cfg.Mountpoints)
	report := output.NewReport(result)

	out := cmd.OutOrStdout()
	if err := output.NewFormatter(format, out).Render(report); err != nil {
		return err
	}
	if timed != nil {
		debug.TimingReport(cmd.ErrOrStderr(), timed.Timings())
	}

	if opts.saveBaseline != "" {
		b := baseline.New(opts.saveBaseline, a.cfg.Mountpoints, result.Stats)
		if err := b.Save(opts.baselineDir); err != nil {
			return err
		}
		a.logger.WithField("baseline", b.Name).Info("Baseline saved")
	}

	code := report.Summary.ExitCode()
	if prior != nil {
		comparisons := baseline.Compare(prior, result.Stats)
		if format == output.FormatTable {
			fmt.Fprintln(out)
			baseline.RenderComparison(out, prior, comparisons)
		}
		if baseline.Regressions(comparisons) > 0 {
			code = exitRegression
		}
	}

	if code != 0 {
		return exitCode(code)
	}
	return nil
}
