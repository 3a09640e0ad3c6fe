// Package publish maps collected device counters onto Prometheus gauges.
package publish

import (
	"fmt"
	"sort"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace   = "btrfs"
	deviceLabel = "device"
)

// Stat names reported by `btrfs device stats`.
const (
	CorruptionErrs = "corruption_errs"
	FlushIOErrs    = "flush_io_errs"
	GenerationErrs = "generation_errs"
	ReadIOErrs     = "read_io_errs"
	WriteIOErrs    = "write_io_errs"
)

var statHelp = map[string]string{
	CorruptionErrs: "BTRFS Corruption Errors: checksum or metadata mismatches detected on the device",
	FlushIOErrs:    "BTRFS Flush IO Errors: failed cache flushes to the device",
	GenerationErrs: "BTRFS Generation Errors: blocks with an unexpected generation number",
	ReadIOErrs:     "BTRFS Read IO Errors: failed reads from the device",
	WriteIOErrs:    "BTRFS Write IO Errors: failed writes to the device",
}

// StatNames returns every stat name that has a gauge, in sorted order.
func StatNames() []string {
	names := make([]string, 0, len(statHelp))
	for name := range statHelp {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Schema binds each recognized stat name to one gauge labelled by device.
// It is built once at startup and only read afterwards.
type Schema struct {
	gauges map[string]*prometheus.GaugeVec
	names  []string
}

// NewSchema creates the btrfs_<stat> gauges and registers them with reg.
func NewSchema(reg prometheus.Registerer) (*Schema, error) {
	s := &Schema{
		gauges: make(map[string]*prometheus.GaugeVec, len(statHelp)),
		names:  StatNames(),
	}
	for _, name := range s.names {
		g := prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      name,
				Help:      statHelp[name],
			},
			[]string{deviceLabel},
		)
		if err := reg.Register(g); err != nil {
			return nil, fmt.Errorf("register %s_%s: %w", namespace, name, err)
		}
		s.gauges[name] = g
	}
	return s, nil
}

// Gauge returns the gauge bound to the stat name.
func (s *Schema) Gauge(stat string) (*prometheus.GaugeVec, bool) {
	g, ok := s.gauges[stat]
	return g, ok
}

// Names returns the recognized stat names in sorted order.
func (s *Schema) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}
