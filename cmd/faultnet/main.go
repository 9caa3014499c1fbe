// Command faultnet explores randomly generated fault scenarios against a
// last-writer-wins replicated map running on the simulated network.
//
//	faultnet explore --seed 42 --scenarios 500 --parallel 8 --metrics
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "faultnet",
		Short:         "Deterministic network fault injection for replicated protocols",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newExploreCmd())
	return root
}
