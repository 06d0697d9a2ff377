// Package main provides the entry point for the State of the Parties snapshot fetcher.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "fetcher",
	Short: "Fetch monthly State of the Parties snapshots",
	Long: "Fetches the UK Parliament State of the Parties snapshot for the 1st of every month " +
		"in a fixed date range and writes each one to <output-dir>/YYYY-MM-DD.json.",
	SilenceUsage: true,
	RunE:         runFetch,
}

func init() {
	addRangeFlags(rootCmd)
	rootCmd.AddCommand(scheduleCmd)
	addRangeFlags(scheduleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
