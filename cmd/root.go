package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tl",
	Short: "TimeLedger – clock-in/clock-out attendance for a small crew",
	Long: `tl records when each worker clocks in and out and derives daily and
weekly hours from those records. Configuration lives in ~/.tl/config.json
(override the directory with TL_HOME).`,
	SilenceUsage: true,
}

// Execute is the entry point called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(inCmd)
	rootCmd.AddCommand(outCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(hoursCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resetCmd)
}
