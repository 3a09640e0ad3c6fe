package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestSplitMountpoints(t *testing.T) {
	assert.Equal(t, []string{"/mnt/a", "/mnt/b"}, SplitMountpoints("/mnt/a,/mnt/b"))
	assert.Equal(t, []string{"/mnt/a", "/mnt/b"}, SplitMountpoints(" /mnt/a , ,/mnt/b,/mnt/a,"))
	assert.Empty(t, SplitMountpoints(""))
	assert.Equal(t, []string{"/"}, SplitMountpoints("/"))
}

func TestDefaultValidate(t *testing.T) {
	cfg := Default()
	cfg.Mountpoints = []string{"/"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "[::]:9899", cfg.Addr())

	opts := cfg.CollectorOptions()
	assert.True(t, opts.UseSudo)
	assert.Equal(t, 30*time.Second, opts.Timeout)
}

func TestValidateReportsAllErrors(t *testing.T) {
	cfg := &Config{
		Port:        70000,
		MetricsPath: "metrics",
		Timeout:     0,
		Concurrency: -1,
		LogLevel:    "loud",
		LogFormat:   "xml",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 9)
}

func TestFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BTRFS_EXPORTER_MOUNTPOINTS", "/data,/backup")
	t.Setenv("BTRFS_EXPORTER_PORT", "9100")
	t.Setenv("BTRFS_EXPORTER_TIMEOUT", "5s")
	t.Setenv("BTRFS_EXPORTER_NO_SUDO", "true")
	t.Setenv("BTRFS_EXPORTER_CONCURRENCY", "2")
	t.Setenv("BTRFS_EXPORTER_LOG_FORMAT", "json")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"/data", "/backup"}, cfg.Mountpoints)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.True(t, cfg.NoSudo)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, LogFormatJSON, cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	require.NoError(t, cfg.Validate())
}

func TestFromEnvInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BTRFS_EXPORTER_PORT", "ninety")
	t.Setenv("BTRFS_EXPORTER_TIMEOUT", "soon")

	_, err := FromEnv()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorContains(t, err, "BTRFS_EXPORTER_PORT")
}

func TestFromEnvDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("BTRFS_EXPORTER_MOUNTPOINTS=/srv\nBTRFS_EXPORTER_PORT=9200\n"), 0o644))
	t.Setenv("BTRFS_EXPORTER_PORT", "9300")
	t.Cleanup(func() { os.Unsetenv("BTRFS_EXPORTER_MOUNTPOINTS") })

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"/srv"}, cfg.Mountpoints)
	assert.Equal(t, 9300, cfg.Port)
}
