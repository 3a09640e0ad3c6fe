package publish

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/btrfs_exporter/pkg/collectors"
	"github.com/danpilch/btrfs_exporter/pkg/stats"
)

func newTestPublisher(t *testing.T) (*Publisher, *Schema, *ExporterMetrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	schema, err := NewSchema(reg)
	require.NoError(t, err)
	metrics, err := NewExporterMetrics(reg)
	require.NoError(t, err)
	return NewPublisher(schema, metrics, nil), schema, metrics, reg
}

func gaugeValue(t *testing.T, s *Schema, stat, device string) float64 {
	t.Helper()
	g, ok := s.Gauge(stat)
	require.True(t, ok)
	return testutil.ToFloat64(g.WithLabelValues(device))
}

func TestSchemaNames(t *testing.T) {
	s, err := NewSchema(prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, []string{
		CorruptionErrs, FlushIOErrs, GenerationErrs, ReadIOErrs, WriteIOErrs,
	}, s.Names())
}

func TestSchemaDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewSchema(reg)
	require.NoError(t, err)
	_, err = NewSchema(reg)
	assert.Error(t, err)
}

func TestPublish(t *testing.T) {
	p, schema, _, reg := newTestPublisher(t)

	r := p.Publish(stats.StatSet{
		"sdb_write_io_errs":   0,
		"sdb_read_io_errs":    2,
		"sdc_write_io_errs":   69,
		"sdc_corruption_errs": 5,
	})

	assert.Equal(t, Report{Updated: 4}, r)
	assert.Equal(t, 69.0, gaugeValue(t, schema, WriteIOErrs, "sdc"))
	assert.Equal(t, 2.0, gaugeValue(t, schema, ReadIOErrs, "sdb"))

	expected := `
# HELP btrfs_write_io_errs BTRFS Write IO Errors: failed writes to the device
# TYPE btrfs_write_io_errs gauge
btrfs_write_io_errs{device="sdb"} 0
btrfs_write_io_errs{device="sdc"} 69
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "btrfs_write_io_errs"))
}

func TestPublishReplacesValues(t *testing.T) {
	p, schema, _, _ := newTestPublisher(t)

	p.Publish(stats.StatSet{"sdb_flush_io_errs": 10})
	p.Publish(stats.StatSet{"sdb_flush_io_errs": 3})

	assert.Equal(t, 3.0, gaugeValue(t, schema, FlushIOErrs, "sdb"))
}

func TestPublishUnknownStat(t *testing.T) {
	p, schema, metrics, _ := newTestPublisher(t)

	var r Report
	assert.NotPanics(t, func() {
		r = p.Publish(stats.StatSet{"sdb_unknown_stat": 1, "sdb_write_io_errs": 0})
	})

	assert.Equal(t, Report{Updated: 1, Unknown: 1}, r)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UnknownStats))
	for _, name := range schema.Names() {
		g, _ := schema.Gauge(name)
		want := 0
		if name == WriteIOErrs {
			want = 1
		}
		assert.Equal(t, want, testutil.CollectAndCount(g), name)
	}
}

func TestPublishMalformedKey(t *testing.T) {
	p, _, _, _ := newTestPublisher(t)
	r := p.Publish(stats.StatSet{"novalue": 1})
	assert.Equal(t, Report{Malformed: 1}, r)
}

func TestPublishDeviceWithSeparator(t *testing.T) {
	p, schema, _, _ := newTestPublisher(t)
	p.Publish(stats.StatSet{"dm_0_generation_errs": 4})
	assert.Equal(t, 4.0, gaugeValue(t, schema, GenerationErrs, "dm_0"))
}

func TestPublishKeepsAbsentDevices(t *testing.T) {
	p, schema, _, _ := newTestPublisher(t)

	p.Publish(stats.StatSet{"sdb_write_io_errs": 7, "sdc_write_io_errs": 1})
	p.Publish(stats.StatSet{"sdc_write_io_errs": 2})

	assert.Equal(t, 7.0, gaugeValue(t, schema, WriteIOErrs, "sdb"))
	assert.Equal(t, 2.0, gaugeValue(t, schema, WriteIOErrs, "sdc"))
}

func TestObserve(t *testing.T) {
	p, _, metrics, _ := newTestPublisher(t)

	p.Observe([]collectors.Outcome{
		{Mountpoint: "/mnt/a", Duration: 1500 * time.Millisecond, ParseErrors: 2},
		{Mountpoint: "/mnt/b", Err: errors.New("exit status 1")},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CollectionSuccess.WithLabelValues("/mnt/a")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CollectionSuccess.WithLabelValues("/mnt/b")))
	assert.Equal(t, 1.5, testutil.ToFloat64(metrics.CollectionDuration.WithLabelValues("/mnt/a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.ParseErrors.WithLabelValues("/mnt/a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Scrapes))
}
