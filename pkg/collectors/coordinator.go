package collectors

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/danpilch/btrfs_exporter/pkg/stats"
)

const tracerName = "github.com/danpilch/btrfs_exporter/pkg/collectors"

// Coordinator runs a Collector against every mountpoint concurrently.
type Coordinator struct {
	collector Collector
	limit     int
	logger    *logrus.Logger
	tracer    trace.Tracer
}

// Result is the merged output of one collection cycle.
type Result struct {
	Stats    stats.StatSet
	Outcomes []Outcome
}

// Failed returns the number of mountpoints whose collection failed.
func (r Result) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}

// NewCoordinator creates a coordinator. limit caps the number of concurrent
// collections; zero or less means one goroutine per mountpoint.
func NewCoordinator(collector Collector, limit int, logger *logrus.Logger) *Coordinator {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Coordinator{
		collector: collector,
		limit:     limit,
		logger:    logger,
		tracer:    otel.Tracer(tracerName),
	}
}

// Run collects every mountpoint and merges the results. It returns only after
// every collection has finished or timed out. Failed mountpoints contribute an
// empty fragment. Fragments are merged in mountpoint order, so on a key collision
// the later mountpoint wins.
func (c *Coordinator) Run(ctx context.Context, mountpoints []string) Result {
	ctx, span := c.tracer.Start(ctx, "collect",
		trace.WithAttributes(attribute.Int("mountpoints", len(mountpoints))))
	defer span.End()

	outcomes := make([]Outcome, len(mountpoints))

	var g errgroup.Group
	if c.limit > 0 {
		g.SetLimit(c.limit)
	}
	for i, mp := range mountpoints {
		g.Go(func() error {
			outcomes[i] = c.collectOne(ctx, mp)
			return nil
		})
	}
	_ = g.Wait()

	merged := make(stats.StatSet)
	for _, o := range outcomes {
		merged.Merge(o.Stats)
	}

	result := Result{Stats: merged, Outcomes: outcomes}
	if failed := result.Failed(); failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d mountpoints failed", failed, len(mountpoints)))
	}
	return result
}

func (c *Coordinator) collectOne(ctx context.Context, mountpoint string) (out Outcome) {
	ctx, span := c.tracer.Start(ctx, "collect.mountpoint",
		trace.WithAttributes(attribute.String("mountpoint", mountpoint)))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithFields(logrus.Fields{
				"collector":  c.collector.Name(),
				"mountpoint": mountpoint,
				"panic":      r,
			}).Error("Collector panicked")
			out = Failed(mountpoint, fmt.Errorf("collector %s panicked: %v", c.collector.Name(), r))
		}
		if out.Duration == 0 {
			out.Duration = time.Since(start)
		}
		if out.Err != nil {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Err.Error())
		}
	}()

	c.logger.WithFields(logrus.Fields{
		"collector":  c.collector.Name(),
		"mountpoint": mountpoint,
	}).Debug("Running collector")

	out = c.collector.Collect(ctx, mountpoint)
	if out.Mountpoint == "" {
		out.Mountpoint = mountpoint
	}
	if out.Stats == nil {
		out.Stats = stats.StatSet{}
	}
	return out
}
