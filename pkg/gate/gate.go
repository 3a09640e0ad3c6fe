// Package gate ties collection cycles to scrape requests: every request to the
// metrics endpoint runs one collect and publish cycle before the response is written.
package gate

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/danpilch/btrfs_exporter/pkg/collectors"
	"github.com/danpilch/btrfs_exporter/pkg/publish"
)

// State is the phase of the current collection cycle.
type State int32

const (
	Idle State = iota
	Collecting
	Publishing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Publishing:
		return "publishing"
	default:
		return "unknown"
	}
}

// Gate serializes collection cycles and serves the metrics gathered at the end
// of each one. Concurrent scrapes queue behind the running cycle, so every
// response reflects a cycle that started after its request arrived.
type Gate struct {
	mountpoints []string
	coordinator *collectors.Coordinator
	publisher   *publish.Publisher
	gatherer    prometheus.Gatherer
	opts        promhttp.HandlerOpts
	logger      *logrus.Logger
	tracer      trace.Tracer

	mu    sync.Mutex
	state atomic.Int32
}

// New creates a gate over the given mountpoints. gatherer must expose the gauges
// the publisher writes to.
func New(
	mountpoints []string,
	coordinator *collectors.Coordinator,
	publisher *publish.Publisher,
	gatherer prometheus.Gatherer,
	logger *logrus.Logger,
) *Gate {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Gate{
		mountpoints: mountpoints,
		coordinator: coordinator,
		publisher:   publisher,
		gatherer:    gatherer,
		opts: promhttp.HandlerOpts{
			ErrorHandling: promhttp.ContinueOnError,
			ErrorLog:      logger.WithField("component", "promhttp"),
		},
		logger: logger,
		tracer: otel.Tracer("github.com/danpilch/btrfs_exporter/pkg/gate"),
	}
}

// State returns the phase the gate is currently in.
func (g *Gate) State() State {
	return State(g.state.Load())
}

// ServeHTTP runs one cycle and writes the resulting metrics.
func (g *Gate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	gatherer := prometheus.GathererFunc(func() ([]*dto.MetricFamily, error) {
		return g.Cycle(r.Context())
	})
	promhttp.HandlerFor(gatherer, g.opts).ServeHTTP(w, r)
}

// Cycle collects every mountpoint, publishes the merged counters, and returns a
// snapshot of the registry taken before the next cycle may start.
func (g *Gate) Cycle(ctx context.Context) ([]*dto.MetricFamily, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	defer g.state.Store(int32(Idle))

	ctx, span := g.tracer.Start(ctx, "scrape")
	defer span.End()

	start := time.Now()

	g.state.Store(int32(Collecting))
	result := g.coordinator.Run(ctx, g.mountpoints)

	g.state.Store(int32(Publishing))
	report := g.publisher.Publish(result.Stats)
	g.publisher.Observe(result.Outcomes)

	span.SetAttributes(
		attribute.Int("stats", len(result.Stats)),
		attribute.Int("failed_mountpoints", result.Failed()),
	)
	g.logger.WithFields(logrus.Fields{
		"stats":    len(result.Stats),
		"updated":  report.Updated,
		"unknown":  report.Unknown,
		"failed":   result.Failed(),
		"duration": time.Since(start),
	}).Infof("%d btrfs stats collected and served", len(result.Stats))

	return g.gatherer.Gather()
}
