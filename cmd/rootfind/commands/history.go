package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/rootfind/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
		Long: `Inspect solves recorded in the history store.

Every solve and compare run through the CLI or the HTTP API is recorded
with its request and full iteration trace while the store is enabled.`,
	}

	cmd.AddCommand(newHistoryListCommand())
	cmd.AddCommand(newHistoryShowCommand())
	cmd.AddCommand(newHistoryStatsCommand())
	cmd.AddCommand(newHistoryPruneCommand())

	return cmd
}

func newHistoryListCommand() *cobra.Command {
	var (
		filter  stores.RunFilter
		success bool
		failed  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded runs, newest first",
		Example: `  rootfind history list --limit 10
  rootfind history list --method newton --failed`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), appOptions{requireStore: true})
			if err != nil {
				return err
			}
			defer a.close()

			switch {
			case success:
				filter.Success = &success
			case failed:
				ok := false
				filter.Success = &ok
			}

			runs, err := a.store.ListRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), runs, func(w io.Writer) error {
				fmt.Fprintln(w, "ID\tCREATED\tMETHOD\tFUNCTION\tSUCCESS\tROOT\tITERATIONS")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%s\t%d\n",
						r.ID, r.CreatedAt.Format(time.RFC3339), r.Method, r.Function, r.Success, formatFloat(r.Root), r.Iterations)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&filter.Limit, "limit", 20, "maximum number of runs")
	cmd.Flags().IntVar(&filter.Offset, "offset", 0, "runs to skip")
	cmd.Flags().StringVarP(&filter.Method, "method", "m", "", "only runs of this method")
	cmd.Flags().StringVarP(&filter.Function, "function", "f", "", "only runs on this function")
	cmd.Flags().BoolVar(&success, "success", false, "only successful runs")
	cmd.Flags().BoolVar(&failed, "failed", false, "only failed runs")
	cmd.MarkFlagsMutuallyExclusive("success", "failed")

	return cmd
}

type runDetail struct {
	Run        *stores.Run        `json:"run" yaml:"run"`
	Iterations []stores.Iteration `json:"iterations" yaml:"iterations"`
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run with its iteration trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), appOptions{requireStore: true})
			if err != nil {
				return err
			}
			defer a.close()

			run, err := a.store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			iterations, err := a.store.GetIterations(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			detail := runDetail{Run: run, Iterations: iterations}
			return render(cmd.OutOrStdout(), detail, func(w io.Writer) error {
				return writeRun(w, detail)
			})
		},
	}
}

func writeRun(w io.Writer, d runDetail) error {
	r := d.Run
	fmt.Fprintf(w, "Run:\t%s\n", r.ID)
	fmt.Fprintf(w, "Created:\t%s\n", r.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Method:\t%s\n", r.Method)
	fmt.Fprintf(w, "Function:\t%s\n", r.Function)
	fmt.Fprintf(w, "Success:\t%t\n", r.Success)
	fmt.Fprintf(w, "Root:\t%s\n", formatFloat(r.Root))
	fmt.Fprintf(w, "f(root):\t%s\n", formatFloat(r.FRoot))
	fmt.Fprintf(w, "Iterations:\t%d\n", r.Iterations)
	if r.Warning != nil {
		fmt.Fprintf(w, "Warning:\t%s\n", *r.Warning)
	}
	if r.Error != nil {
		fmt.Fprintf(w, "Error:\t%s\n", *r.Error)
	}
	fmt.Fprintf(w, "Duration:\t%s\n", r.Duration)
	fmt.Fprintf(w, "Request:\t%s\n", r.Request)

	if len(d.Iterations) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "ITER\tERROR\tRECORD")
	for _, it := range d.Iterations {
		// Records are stored compact; re-encode to drop the redundant fields.
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(it.Record), &rec); err != nil {
			return fmt.Errorf("iteration %d: %w", it.Iteration, err)
		}
		delete(rec, "iteration")
		delete(rec, "error")
		compact, _ := json.Marshal(rec)
		fmt.Fprintf(w, "%d\t%.4e\t%s\n", it.Iteration, it.Error, compact)
	}
	return nil
}

func newHistoryStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Aggregate runs per method and function",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), appOptions{requireStore: true})
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), stats, func(w io.Writer) error {
				fmt.Fprintln(w, "METHOD\tFUNCTION\tRUNS\tSUCCESSES\tAVG ITERATIONS")
				for _, s := range stats {
					fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\n", s.Method, s.Function, s.Runs, s.Successes, s.AvgIterations)
				}
				return nil
			})
		},
	}
}

func newHistoryPruneCommand() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete runs older than a duration",
		Example: `  # Keep one week of history
  rootfind history prune --older-than 168h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}
			a, err := openApp(cmd.Context(), appOptions{requireStore: true})
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.store.PruneRuns(cmd.Context(), time.Now().UTC().Add(-olderThan))
			if err != nil {
				return err
			}
			log.Info().Int64("runs", n).Dur("older_than", olderThan).Msg("Pruned runs")
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d runs\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "age threshold, e.g. 720h")
	_ = cmd.MarkFlagRequired("older-than")

	return cmd
}
