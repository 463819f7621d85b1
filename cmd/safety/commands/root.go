// Package commands implements the safety monitor's CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
	lowest  string
	highest string
)

var rootCmd = &cobra.Command{
	Use:   "safety <car>",
	Short: "Run the safety monitor for one elevator car",
	Long: `safety attaches to an already-running car's shared state region
and races its state machine: validating invariants, servicing the
safety heartbeat, and forcing failsafe transitions on door obstruction,
emergency stop, overload, or corrupted state.

car must already have a shared region created by a running "car"
process. Its floor range is supplied via --lowest/--highest since the
safety monitor attaches rather than creates.`,
	Args: cobra.ExactArgs(1),
	RunE: runSafety,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: none, use env vars and defaults)")
	rootCmd.Flags().StringVar(&lowest, "lowest", "", "lowest floor label serviced by this car (required)")
	rootCmd.Flags().StringVar(&highest, "highest", "", "highest floor label serviced by this car (required)")
	_ = rootCmd.MarkFlagRequired("lowest")
	_ = rootCmd.MarkFlagRequired("highest")
	rootCmd.AddCommand(versionCmd)
}

func GetConfigFile() string {
	return cfgFile
}
