package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hunse/nengo/internal/config"
)

var version = "0.1.0-dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		cfg = config.Default()
	}

	rootCmd := &cobra.Command{
		Use:   "nengo",
		Short: "Neural engineering simulator",
		Long: `nengo builds and runs spiking neural models described by scenario files.

A scenario declares input nodes, neuron ensembles, the connections between
them, and probes to record. Running one produces deterministic probe data
that can be saved to a local database and exported as CSV.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("db", cfg.Storage.Dir, "Run database directory")
	rootCmd.PersistentFlags().String("log-level", cfg.Logging.Level, "Log verbosity: info, debug, or trace")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newRunsCmd(),
		newExportCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
			} else {
				fmt.Printf("nengo version %s\n", version)
			}
		},
	}
}
