package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hunse/nengo/internal/logging"
	"github.com/hunse/nengo/internal/scenario"
	"github.com/hunse/nengo/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario and report its probe data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			save, _ := cmd.Flags().GetBool("save")
			dbDir, _ := cmd.Flags().GetString("db")
			logLevel, _ := cmd.Flags().GetString("log-level")

			spec, err := scenario.Load(args[0])
			if err != nil {
				return err
			}

			logger := logging.NewLogger(logLevel, os.Stderr)
			res, err := scenario.Run(spec, scenario.WithLogger(logger))
			if err != nil {
				return err
			}

			var runID int64
			if save {
				st, err := store.Open(dbDir)
				if err != nil {
					return err
				}
				defer st.Close()
				runID, err = st.SaveResult(context.Background(), res)
				if err != nil {
					return fmt.Errorf("save run: %w", err)
				}
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(runSummary(res, runID))
			}

			fmt.Printf("scenario %s: %d steps in %s (dt=%g, seed=%d)\n",
				res.Name, res.Steps, res.Elapsed.Round(0), res.DT, res.Seed)
			for _, pr := range res.Probes {
				if len(pr.Data) == 0 {
					fmt.Printf("  probe %s: no samples\n", pr.Target)
					continue
				}
				last := pr.Data[len(pr.Data)-1]
				fmt.Printf("  probe %s: %d samples x %d dims, final %v\n",
					pr.Target, len(pr.Times), len(last), last)
			}
			if save {
				fmt.Printf("saved as run %d\n", runID)
			}
			return nil
		},
	}
	cmd.Flags().Bool("save", false, "Save the run to the database")
	return cmd
}

type probeSummary struct {
	Target  string    `json:"target"`
	Samples int       `json:"samples"`
	Dims    int       `json:"dims"`
	Final   []float64 `json:"final,omitempty"`
}

func runSummary(res *scenario.Result, runID int64) map[string]any {
	probes := make([]probeSummary, 0, len(res.Probes))
	for _, pr := range res.Probes {
		ps := probeSummary{Target: pr.Target, Samples: len(pr.Times)}
		if len(pr.Data) > 0 {
			ps.Dims = len(pr.Data[0])
			ps.Final = pr.Data[len(pr.Data)-1]
		}
		probes = append(probes, ps)
	}
	out := map[string]any{
		"name":       res.Name,
		"seed":       res.Seed,
		"dt":         res.DT,
		"steps":      res.Steps,
		"elapsed_ms": float64(res.Elapsed.Microseconds()) / 1000,
		"probes":     probes,
	}
	if runID > 0 {
		out["run_id"] = runID
	}
	return out
}

func newRunsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "runs",
		Short: "List saved runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dbDir, _ := cmd.Flags().GetString("db")

			st, err := store.Open(dbDir)
			if err != nil {
				return err
			}
			defer st.Close()

			runs, err := st.ListRuns(context.Background())
			if err != nil {
				return err
			}

			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Println("no saved runs")
				return nil
			}
			for _, r := range runs {
				fmt.Printf("%4d  %-20s seed=%-6d steps=%-8d %s\n",
					r.ID, r.Name, r.Seed, r.Steps, r.CreatedAt.Local().Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}
