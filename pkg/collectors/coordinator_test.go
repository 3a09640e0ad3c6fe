package collectors

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/btrfs_exporter/pkg/stats"
)

// fakeCollector returns canned outcomes per mountpoint.
type fakeCollector struct {
	results map[string]stats.StatSet
	errs    map[string]error
	delay   map[string]time.Duration
	panics  map[string]bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (f *fakeCollector) Name() string { return "fake" }

func (f *fakeCollector) Collect(ctx context.Context, mountpoint string) Outcome {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}

	if f.panics[mountpoint] {
		panic("boom")
	}
	if d := f.delay[mountpoint]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return Failed(mountpoint, ctx.Err())
		}
	}
	if err := f.errs[mountpoint]; err != nil {
		return Failed(mountpoint, err)
	}
	return Outcome{Mountpoint: mountpoint, Stats: f.results[mountpoint]}
}

func TestCoordinatorMergesAllFragments(t *testing.T) {
	fc := &fakeCollector{results: map[string]stats.StatSet{
		"/mnt/a": {"sdb_write_io_errs": 0, "sdb_read_io_errs": 1},
		"/mnt/b": {"sdc_write_io_errs": 69},
		"/mnt/c": {},
	}}

	res := NewCoordinator(fc, 0, nil).Run(context.Background(), []string{"/mnt/a", "/mnt/b", "/mnt/c"})

	assert.Equal(t, stats.StatSet{
		"sdb_write_io_errs": 0,
		"sdb_read_io_errs":  1,
		"sdc_write_io_errs": 69,
	}, res.Stats)
	require.Len(t, res.Outcomes, 3)
	assert.Equal(t, "/mnt/b", res.Outcomes[1].Mountpoint)
	assert.Zero(t, res.Failed())
}

func TestCoordinatorToleratesFailures(t *testing.T) {
	fc := &fakeCollector{
		results: map[string]stats.StatSet{"/mnt/a": {"sdb_write_io_errs": 2}},
		errs:    map[string]error{"/mnt/b": errors.New("exit status 1")},
		panics:  map[string]bool{"/mnt/c": true},
	}

	res := NewCoordinator(fc, 0, nil).Run(context.Background(), []string{"/mnt/a", "/mnt/b", "/mnt/c"})

	assert.Equal(t, stats.StatSet{"sdb_write_io_errs": 2}, res.Stats)
	assert.Equal(t, 2, res.Failed())
	assert.True(t, res.Outcomes[0].OK())
	assert.EqualError(t, res.Outcomes[1].Err, "exit status 1")
	assert.ErrorContains(t, res.Outcomes[2].Err, "panicked")
	assert.NotNil(t, res.Outcomes[2].Stats)
}

func TestCoordinatorRunsConcurrently(t *testing.T) {
	mountpoints := []string{"/mnt/a", "/mnt/b", "/mnt/c", "/mnt/d"}
	delay := make(map[string]time.Duration)
	for _, mp := range mountpoints {
		delay[mp] = 200 * time.Millisecond
	}
	fc := &fakeCollector{delay: delay}

	start := time.Now()
	res := NewCoordinator(fc, 0, nil).Run(context.Background(), mountpoints)
	elapsed := time.Since(start)

	assert.Zero(t, res.Failed())
	assert.Less(t, elapsed, 600*time.Millisecond)
	assert.EqualValues(t, 4, fc.maxInFlight.Load())
}

func TestCoordinatorLimit(t *testing.T) {
	mountpoints := []string{"/mnt/a", "/mnt/b", "/mnt/c", "/mnt/d"}
	delay := make(map[string]time.Duration)
	for _, mp := range mountpoints {
		delay[mp] = 20 * time.Millisecond
	}
	fc := &fakeCollector{delay: delay}

	res := NewCoordinator(fc, 2, nil).Run(context.Background(), mountpoints)

	assert.Zero(t, res.Failed())
	assert.LessOrEqual(t, fc.maxInFlight.Load(), int32(2))
}

func TestCoordinatorNoMountpoints(t *testing.T) {
	res := NewCoordinator(&fakeCollector{}, 0, nil).Run(context.Background(), nil)
	assert.Empty(t, res.Stats)
	assert.Empty(t, res.Outcomes)
}
