package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/liftgrid/liftgrid/internal/config"
	"github.com/liftgrid/liftgrid/internal/dispatch"
	"github.com/liftgrid/liftgrid/internal/logx"
	"github.com/liftgrid/liftgrid/internal/metrics"
	metricsprom "github.com/liftgrid/liftgrid/internal/metrics/prometheus"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the dispatcher's TCP server",
	Long: `Start the dispatcher: listen for car registrations and passenger
calls, track the fleet, and schedule stops.

Examples:
  # Start with defaults
  dispatcher start

  # Start with environment variable overrides
  LIFTGRID_DISPATCHER_ADDR=0.0.0.0:3000 dispatcher start`,
	RunE: runStart,
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}

	if err := logx.Init(logx.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	reg := metrics.InitRegistry(cfg.Metrics.Enabled)

	var recorder dispatch.Metrics
	var metricsSrv *http.Server
	if reg != nil {
		recorder = metricsprom.New(reg)

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logx.Error("metrics server error", logx.Err(err))
			}
		}()
		logx.Info("metrics enabled", "addr", cfg.Metrics.Addr)
	} else {
		logx.Info("metrics disabled")
	}

	d := dispatch.New(cfg.DispatcherAddr, recorder)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- d.ListenAndServe(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logx.Info("dispatcher listening", "addr", cfg.DispatcherAddr)

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logx.Info("shutdown signal received")
		cancel()
		if metricsSrv != nil {
			if err := metricsSrv.Shutdown(context.Background()); err != nil {
				logx.Error("metrics server shutdown error", logx.Err(err))
			}
		}
		if err := <-serverDone; err != nil {
			logx.Error("dispatcher shutdown error", logx.Err(err))
			return err
		}
		logx.Info("dispatcher stopped")

	case err := <-serverDone:
		signal.Stop(sigChan)
		if metricsSrv != nil {
			if shutdownErr := metricsSrv.Shutdown(context.Background()); shutdownErr != nil {
				logx.Error("metrics server shutdown error", logx.Err(shutdownErr))
			}
		}
		if err != nil {
			logx.Error("dispatcher error", logx.Err(err))
			return err
		}
		logx.Info("dispatcher stopped")
	}

	return nil
}
