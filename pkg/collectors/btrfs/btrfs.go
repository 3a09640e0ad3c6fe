// Package btrfs collects per-device error counters by running `btrfs device stats`.
package btrfs

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/danpilch/btrfs_exporter/pkg/collectors"
	"github.com/danpilch/btrfs_exporter/pkg/debug"
	"github.com/danpilch/btrfs_exporter/pkg/stats"
)

const (
	DefaultBtrfsPath = "/usr/bin/btrfs"
	DefaultSudoPath  = "/usr/bin/sudo"
	DefaultTimeout   = 30 * time.Second
)

// ErrTimeout is returned when the device stats command does not finish in time.
var ErrTimeout = errors.New("device stats timed out")

// CommandError is returned when the device stats command cannot be started or
// exits with a non-zero status.
type CommandError struct {
	Args     []string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// Options configures how the device stats command is invoked.
type Options struct {
	BtrfsPath string
	SudoPath  string
	UseSudo   bool
	Timeout   time.Duration
}

// DefaultOptions returns the stock invocation: sudo btrfs with a 30s timeout.
func DefaultOptions() Options {
	return Options{
		BtrfsPath: DefaultBtrfsPath,
		SudoPath:  DefaultSudoPath,
		UseSudo:   true,
		Timeout:   DefaultTimeout,
	}
}

// Collector runs `btrfs device stats` for one mountpoint at a time.
type Collector struct {
	opts   Options
	runner Runner
	logger *logrus.Logger
	trace  *debug.TraceLogger
}

// New creates a btrfs collector. A nil runner uses ExecRunner.
func New(opts Options, runner Runner, logger *logrus.Logger) *Collector {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Collector{
		opts:   opts,
		runner: runner,
		logger: logger,
	}
}

// SetTraceLogger enables step-by-step tracing of invocations and parsed values.
func (c *Collector) SetTraceLogger(t *debug.TraceLogger) {
	c.trace = t
}

// Name returns the collector name.
func (c *Collector) Name() string {
	return "btrfs"
}

// Command returns the argument vector used for the mountpoint.
func (c *Collector) Command(mountpoint string) []string {
	args := make([]string, 0, 5)
	if c.opts.UseSudo {
		args = append(args, c.opts.SudoPath)
	}
	return append(args, c.opts.BtrfsPath, "device", "stats", mountpoint)
}

// Collect runs device stats for the mountpoint and parses its output. Failures
// and timeouts are logged and returned in the outcome with an empty StatSet.
func (c *Collector) Collect(ctx context.Context, mountpoint string) collectors.Outcome {
	log := c.logger.WithField("mountpoint", mountpoint)
	args := c.Command(mountpoint)

	runCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	log.WithField("command", args).Debug("Running device stats")
	c.traceStep(mountpoint, "exec", strings.Join(args, " "))

	start := time.Now()
	stdout, stderr, err := c.runner.Run(runCtx, args)
	elapsed := time.Since(start)

	if err != nil {
		out := collectors.Failed(mountpoint, c.classify(ctx, runCtx, args, stderr, err))
		out.Duration = elapsed
		c.logFailure(log, out.Err, elapsed)
		return out
	}

	set, parseErr := stats.Parse(string(stdout))
	lineErrs := multierr.Errors(parseErr)
	for _, e := range lineErrs {
		log.WithError(e).Warn("Skipping malformed device stats line")
	}
	if c.trace != nil {
		for _, k := range set.Keys() {
			c.trace.LogValue(mountpoint, k, fmt.Sprintf("%v", set[k]), set[k])
		}
	}

	log.WithFields(logrus.Fields{
		"stats":    len(set),
		"duration": elapsed,
	}).Debug("Device stats collected")

	return collectors.Outcome{
		Mountpoint:  mountpoint,
		Stats:       set,
		ParseErrors: len(lineErrs),
		Duration:    elapsed,
	}
}

// classify turns a runner error into ErrTimeout, a cancellation, or a *CommandError.
func (c *Collector) classify(parent, runCtx context.Context, args []string, stderr []byte, err error) error {
	if parent.Err() != nil {
		return fmt.Errorf("device stats cancelled: %w", parent.Err())
	}
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("killed after %v: %w", c.opts.Timeout, ErrTimeout)
	}

	cmdErr := &CommandError{
		Args:     args,
		ExitCode: -1,
		Stderr:   strings.TrimSpace(string(stderr)),
		Err:      err,
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		cmdErr.ExitCode = exitErr.ExitCode()
	}
	return cmdErr
}

func (c *Collector) logFailure(log *logrus.Entry, err error, elapsed time.Duration) {
	log = log.WithField("duration", elapsed)

	var cmdErr *CommandError
	switch {
	case errors.Is(err, ErrTimeout):
		log.WithField("timeout", c.opts.Timeout).Error("Device stats timed out")
	case errors.As(err, &cmdErr):
		log.WithFields(logrus.Fields{
			"exit_code": cmdErr.ExitCode,
			"stderr":    cmdErr.Stderr,
			"error":     cmdErr.Err,
		}).Error("Device stats failed")
	default:
		log.WithError(err).Warn("Device stats interrupted")
	}
}

func (c *Collector) traceStep(mountpoint, step, detail string) {
	if c.trace != nil {
		c.trace.Log(mountpoint, step, detail)
	}
}
