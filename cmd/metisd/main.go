// Command metisd is the thin runnable entry point around the sync,
// hydration, dehydration, and projection core: a one-shot sync CLI, a
// debounced watch daemon, and a read-only cache inspection command.
// It is intentionally minimal — front-ends that consume this core in
// a product UI are out of scope (see SPEC_FULL.md §1).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "metisd",
	Short: "Metis multi-workspace document sync daemon",
	Long: `metisd runs the Metis sync core as a standalone process: one-shot
sync cycles, a debounced file-watcher daemon, and a read-only
projection-cache inspection command.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("metis-dir", ".metis", "path to the .metis workspace directory")
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cacheCmd)
}
