// Package commands implements the car process's CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "car <name> <lowest> <highest> <delay_ms>",
	Short: "Run one elevator car: state machine, safety region, and dispatcher agent",
	Long: `car owns a single elevator's process-shared state region and runs
its door/floor state machine alongside the network agent that reports
status to the dispatcher and carries its FLOOR directives.

name is the car's identifier (used to find its dispatcher connection and
shared-memory region). lowest and highest are floor labels such as "B2"
or "10". delay_ms is the per-state door/motion timing.`,
	Args: cobra.ExactArgs(4),
	RunE: runCar,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: none, use env vars and defaults)")
	rootCmd.AddCommand(versionCmd)
}

func GetConfigFile() string {
	return cfgFile
}
