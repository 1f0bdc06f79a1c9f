package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hunse/nengo/internal/store"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Export a saved run's probe data as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbDir, _ := cmd.Flags().GetString("db")
			probe, _ := cmd.Flags().GetString("probe")
			outPath, _ := cmd.Flags().GetString("output")

			var runID int64
			if _, err := fmt.Sscanf(args[0], "%d", &runID); err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}

			st, err := store.Open(dbDir)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			if _, err := st.GetRun(ctx, runID); err != nil {
				return err
			}

			if probe == "" {
				probes, err := st.Probes(ctx, runID)
				if err != nil {
					return err
				}
				if len(probes) == 1 {
					probe = probes[0]
				} else {
					return fmt.Errorf("run %d has probes [%s]; pick one with --probe",
						runID, strings.Join(probes, ", "))
				}
			}

			samples, err := st.Samples(ctx, runID, probe)
			if err != nil {
				return err
			}

			out := os.Stdout
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return fmt.Errorf("create %s: %w", outPath, err)
				}
				defer f.Close()
				out = f
			}
			return store.ExportCSV(out, probe, samples)
		},
	}
	cmd.Flags().String("probe", "", "Probe target to export")
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	return cmd
}
