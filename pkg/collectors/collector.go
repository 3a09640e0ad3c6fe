// Package collectors defines the per-mountpoint collector contract and the
// coordinator that fans collection out across mountpoints.
package collectors

import (
	"context"
	"time"

	"github.com/danpilch/btrfs_exporter/pkg/stats"
)

// Collector gathers device error counters for a single mountpoint.
//
// Collect must not panic and must not return an error: every failure is reported
// through the Outcome so that one mountpoint can never break another.
type Collector interface {
	// Name returns the name of the collector (e.g., "btrfs").
	Name() string

	// Collect runs one collection for the mountpoint.
	Collect(ctx context.Context, mountpoint string) Outcome
}

// Outcome is the result of collecting one mountpoint.
type Outcome struct {
	Mountpoint  string
	Stats       stats.StatSet
	ParseErrors int
	Duration    time.Duration
	Err         error
}

// OK reports whether the collection succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Failed returns an outcome carrying err and an empty StatSet.
func Failed(mountpoint string, err error) Outcome {
	return Outcome{
		Mountpoint: mountpoint,
		Stats:      stats.StatSet{},
		Err:        err,
	}
}
