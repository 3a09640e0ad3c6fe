package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/danpilch/btrfs_exporter/pkg/collectors"
	"github.com/danpilch/btrfs_exporter/pkg/collectors/btrfs"
	"github.com/danpilch/btrfs_exporter/pkg/debug"
	"github.com/danpilch/btrfs_exporter/pkg/gate"
	"github.com/danpilch/btrfs_exporter/pkg/publish"
)

const shutdownTimeout = 5 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve [mountpoints]",
		Short: "Serve device error counters over HTTP",
		Long: `Serve the btrfs device error counters for Prometheus.

Every scrape runs one collection cycle across all mountpoints. A mountpoint
that fails or times out keeps its previously published values.

Example:
  btrfs-exporter serve /,/home
  btrfs-exporter serve /data --port 9899 --no-sudo`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.runServe,
	}
	a.addServeFlags(cmd.Flags())
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, args []string) error {
	if err := a.prepare(args); err != nil {
		return err
	}
	a.checkMountpoints()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.PprofAddr != "" {
		stopPprof, err := debug.StartPprofServer(a.cfg.PprofAddr, a.logger)
		if err != nil {
			return err
		}
		defer stopPprof()
	}

	srv, err := a.newServer(ctx)
	if err != nil {
		return err
	}
	errCh, err := srv.Start()
	if err != nil {
		return err
	}

	a.logger.WithFields(logrus.Fields{
		"mountpoints": a.cfg.Mountpoints,
		"timeout":     a.cfg.Timeout,
		"sudo":        !a.cfg.NoSudo,
	}).Info("btrfs exporter started")

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("metrics server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newServer wires the registry, schema, collector and gate into a metrics server.
func (a *app) newServer(ctx context.Context) (*gate.Server, error) {
	reg := prometheus.NewRegistry()
	schema, err := publish.NewSchema(reg)
	if err != nil {
		return nil, err
	}
	metrics, err := publish.NewExporterMetrics(reg)
	if err != nil {
		return nil, err
	}

	collector := btrfs.New(a.cfg.CollectorOptions(), nil, a.logger)
	coordinator := collectors.NewCoordinator(collector, a.cfg.Concurrency, a.logger)
	g := gate.New(a.cfg.Mountpoints, coordinator, publish.NewPublisher(schema, metrics, a.logger), reg, a.logger)

	return gate.NewServer(ctx, a.cfg.Addr(), a.cfg.MetricsPath, g, a.logger), nil
}
