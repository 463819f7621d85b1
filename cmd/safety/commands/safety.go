package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/liftgrid/liftgrid/internal/carstate"
	"github.com/liftgrid/liftgrid/internal/config"
	"github.com/liftgrid/liftgrid/internal/floor"
	"github.com/liftgrid/liftgrid/internal/logx"
	"github.com/liftgrid/liftgrid/internal/safetymon"
)

func runSafety(cmd *cobra.Command, args []string) error {
	name := args[0]

	lowestLabel, err := cmd.Flags().GetString("lowest")
	if err != nil {
		return err
	}
	highestLabel, err := cmd.Flags().GetString("highest")
	if err != nil {
		return err
	}

	lowestFloor, err := floor.Parse(lowestLabel)
	if err != nil {
		return fmt.Errorf("invalid lowest floor %q: %w", lowestLabel, err)
	}
	highestFloor, err := floor.Parse(highestLabel)
	if err != nil {
		return fmt.Errorf("invalid highest floor %q: %w", highestLabel, err)
	}

	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return err
	}
	if err := logx.Init(logx.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	region, err := carstate.Open(name)
	if err != nil {
		return fmt.Errorf("failed to attach to shared state region for %s: %w", name, err)
	}
	defer region.Close()

	monitor := safetymon.New(region, lowestFloor.Axis, highestFloor.Axis)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	monitorDone := make(chan error, 1)
	go func() { monitorDone <- monitor.Run(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logx.Info("safety monitor started", logx.Car(name))

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logx.Info("shutdown signal received", logx.Car(name))
		cancel()
		<-monitorDone
		logx.Info("safety monitor stopped", logx.Car(name))

	case err := <-monitorDone:
		if err != nil {
			logx.Error("safety monitor error", logx.Car(name), logx.Err(err))
			return err
		}
	}

	return nil
}
