package publish

import (
	"github.com/sirupsen/logrus"

	"github.com/danpilch/btrfs_exporter/pkg/collectors"
	"github.com/danpilch/btrfs_exporter/pkg/stats"
)

// Report summarizes one Publish call.
type Report struct {
	Updated   int
	Unknown   int
	Malformed int
}

// Publisher writes collected counters into the schema gauges.
type Publisher struct {
	schema  *Schema
	metrics *ExporterMetrics
	logger  *logrus.Logger
}

// NewPublisher creates a publisher. metrics may be nil.
func NewPublisher(schema *Schema, metrics *ExporterMetrics, logger *logrus.Logger) *Publisher {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}
	return &Publisher{
		schema:  schema,
		metrics: metrics,
		logger:  logger,
	}
}

// Publish sets one gauge sample per StatSet entry. Values replace whatever the
// gauge held before. Stat names outside the schema are logged and skipped.
// Devices absent from set keep their previous values.
func (p *Publisher) Publish(set stats.StatSet) Report {
	var r Report
	known := p.schema.Names()

	for _, key := range set.Keys() {
		device, stat, ok := stats.Split(key, known...)
		if !ok {
			p.logger.WithField("key", key).Warn("Skipping stat with malformed key")
			r.Malformed++
			continue
		}

		gauge, ok := p.schema.Gauge(stat)
		if !ok {
			p.logger.WithFields(logrus.Fields{
				"device": device,
				"stat":   stat,
			}).Warn("Stat not handled")
			r.Unknown++
			if p.metrics != nil {
				p.metrics.UnknownStats.Inc()
			}
			continue
		}

		gauge.WithLabelValues(device).Set(set[key])
		r.Updated++
	}
	return r
}

// Observe records per-mountpoint collection health in the exporter metrics.
func (p *Publisher) Observe(outcomes []collectors.Outcome) {
	if p.metrics == nil {
		return
	}
	for _, o := range outcomes {
		success := 0.0
		if o.OK() {
			success = 1
		}
		p.metrics.CollectionSuccess.WithLabelValues(o.Mountpoint).Set(success)
		p.metrics.CollectionDuration.WithLabelValues(o.Mountpoint).Set(o.Duration.Seconds())
		if o.ParseErrors > 0 {
			p.metrics.ParseErrors.WithLabelValues(o.Mountpoint).Add(float64(o.ParseErrors))
		}
	}
	p.metrics.Scrapes.Inc()
}
