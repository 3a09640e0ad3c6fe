package publish

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const exporterSubsystem = "exporter"

// ExporterMetrics describes the exporter's own collection health.
type ExporterMetrics struct {
	CollectionSuccess  *prometheus.GaugeVec
	CollectionDuration *prometheus.GaugeVec
	ParseErrors        *prometheus.CounterVec
	UnknownStats       prometheus.Counter
	Scrapes            prometheus.Counter
}

// NewExporterMetrics creates the self-metrics and registers them with reg.
func NewExporterMetrics(reg prometheus.Registerer) (*ExporterMetrics, error) {
	m := &ExporterMetrics{
		CollectionSuccess: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: exporterSubsystem,
				Name:      "collection_success",
				Help:      "Whether the last device stats collection for the mountpoint succeeded (1=yes, 0=no)",
			},
			[]string{"mountpoint"},
		),
		CollectionDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: exporterSubsystem,
				Name:      "collection_duration_seconds",
				Help:      "Wall time of the last device stats invocation for the mountpoint",
			},
			[]string{"mountpoint"},
		),
		ParseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: exporterSubsystem,
				Name:      "parse_errors_total",
				Help:      "Malformed device stats lines skipped, by mountpoint",
			},
			[]string{"mountpoint"},
		),
		UnknownStats: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: exporterSubsystem,
				Name:      "unknown_stats_total",
				Help:      "Device stats skipped because their name has no gauge",
			},
		),
		Scrapes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: exporterSubsystem,
				Name:      "scrapes_total",
				Help:      "Completed scrape-triggered collection cycles",
			},
		),
	}

	for _, c := range []prometheus.Collector{
		m.CollectionSuccess,
		m.CollectionDuration,
		m.ParseErrors,
		m.UnknownStats,
		m.Scrapes,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register exporter metrics: %w", err)
		}
	}
	return m, nil
}
