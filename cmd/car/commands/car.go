package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/liftgrid/liftgrid/internal/agent"
	"github.com/liftgrid/liftgrid/internal/carfsm"
	"github.com/liftgrid/liftgrid/internal/carstate"
	"github.com/liftgrid/liftgrid/internal/config"
	"github.com/liftgrid/liftgrid/internal/floor"
	"github.com/liftgrid/liftgrid/internal/logx"
)

func runCar(cmd *cobra.Command, args []string) error {
	name := args[0]
	lowestLabel := args[1]
	highestLabel := args[2]

	delayMs, err := strconv.Atoi(args[3])
	if err != nil || delayMs < 0 {
		return fmt.Errorf("invalid delay_ms %q", args[3])
	}
	delay := time.Duration(delayMs) * time.Millisecond

	lowest, err := floor.Parse(lowestLabel)
	if err != nil {
		return fmt.Errorf("invalid lowest floor %q: %w", lowestLabel, err)
	}
	highest, err := floor.Parse(highestLabel)
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

	region, err := carstate.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create shared state region for %s: %w", name, err)
	}
	defer region.Unlink()

	if err := carfsm.Init(region, lowestLabel); err != nil {
		return fmt.Errorf("failed to initialize car state: %w", err)
	}

	machine := carfsm.New(region, lowest.Axis, highest.Axis, delay)
	ag := agent.New(region, name, lowestLabel, highestLabel, cfg.DispatcherAddr, delay)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fsmDone := make(chan error, 1)
	agentDone := make(chan error, 1)
	go func() { fsmDone <- machine.Run(ctx) }()
	go func() { agentDone <- ag.Run(ctx) }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logx.Info("car started", logx.Car(name), logx.LowestFloor(lowestLabel), logx.HighestFloor(highestLabel))

	select {
	case <-sigChan:
		signal.Stop(sigChan)
		logx.Info("shutdown signal received", logx.Car(name))
		cancel()
		<-fsmDone
		<-agentDone
		logx.Info("car stopped", logx.Car(name))

	case err := <-fsmDone:
		cancel()
		<-agentDone
		if err != nil {
			logx.Error("car state machine error", logx.Car(name), logx.Err(err))
			return err
		}

	case err := <-agentDone:
		cancel()
		<-fsmDone
		if err != nil {
			logx.Error("car agent error", logx.Car(name), logx.Err(err))
			return err
		}
	}

	return nil
}
