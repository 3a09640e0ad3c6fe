package debug

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/danpilch/btrfs_exporter/pkg/collectors"
)

var (
	debugTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	debugHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Padding(0, 1)
	debugDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	debugFail   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// CollectorTiming records the duration of one mountpoint collection.
type CollectorTiming struct {
	Mountpoint string
	Duration   time.Duration
	Failed     bool
}

// TimedCollector wraps a collectors.Collector to record per-mountpoint durations.
type TimedCollector struct {
	inner collectors.Collector

	mu      sync.Mutex
	timings map[string]CollectorTiming
}

// NewTimedCollector wraps a collector with timing instrumentation.
func NewTimedCollector(c collectors.Collector) *TimedCollector {
	return &TimedCollector{
		inner:   c,
		timings: make(map[string]CollectorTiming),
	}
}

// Name returns the wrapped collector's name.
func (t *TimedCollector) Name() string {
	return t.inner.Name()
}

// Collect runs the wrapped collector and records its duration.
func (t *TimedCollector) Collect(ctx context.Context, mountpoint string) collectors.Outcome {
	start := time.Now()
	out := t.inner.Collect(ctx, mountpoint)

	t.mu.Lock()
	t.timings[mountpoint] = CollectorTiming{
		Mountpoint: mountpoint,
		Duration:   time.Since(start),
		Failed:     !out.OK(),
	}
	t.mu.Unlock()

	return out
}

// Timings returns the recorded timings sorted by mountpoint.
func (t *TimedCollector) Timings() []CollectorTiming {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]CollectorTiming, 0, len(t.timings))
	for _, timing := range t.timings {
		out = append(out, timing)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Mountpoint < out[j].Mountpoint
	})
	return out
}

// TimingReport prints a styled timing summary. The slowest mountpoint bounds the
// cycle, since mountpoints are collected concurrently.
func TimingReport(w io.Writer, timings []CollectorTiming) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, debugTitle.Render("Collector Timing Report"))
	fmt.Fprintln(w, debugDim.Render(strings.Repeat("═", 50)))
	fmt.Fprintf(w, "  %s  %s\n",
		debugHeader.Render("MOUNTPOINT                "),
		debugHeader.Render("DURATION    "))
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 50)))

	var slowest time.Duration
	for _, t := range timings {
		line := fmt.Sprintf("  %-28s %v", t.Mountpoint, t.Duration)
		if t.Failed {
			line += " " + debugFail.Render("FAILED")
		}
		fmt.Fprintln(w, line)
		if t.Duration > slowest {
			slowest = t.Duration
		}
	}
	fmt.Fprintln(w, "  "+debugDim.Render(strings.Repeat("─", 50)))
	fmt.Fprintf(w, "  %-28s %v\n",
		lipgloss.NewStyle().Bold(true).Render("SLOWEST"), slowest)
}
