package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/rootfind/pkg/scenario"
)

func newScriptCommand() *cobra.Command {
	var (
		timeout  time.Duration
		maxSteps uint64
		vars     map[string]string
	)

	cmd := &cobra.Command{
		Use:   "script FILE",
		Short: "Run a Starlark scenario script",
		Long: `Run a Starlark script that drives the solver.

Scripts can call solve(), compare(), functions() and methods(). Values
passed with --set are predeclared as string globals. Every
public global left by the script is reported as output.`,
		Example: `  rootfind script sweep.star
  rootfind script sweep.star --set function=exponential -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{withStore: true})
			if err != nil {
				return err
			}
			defer a.close()

			runner := scenario.NewRunner(a.engine,
				scenario.WithTimeout(timeout),
				scenario.WithMaxSteps(maxSteps),
				scenario.WithLogger(a.tel.Logger),
			)

			input := make(map[string]interface{}, len(vars))
			for k, v := range vars {
				input[k] = v
			}

			res, err := runner.RunFile(a.tel.WithContext(ctx), args[0], input)
			if res != nil {
				if rerr := render(cmd.OutOrStdout(), res, func(w io.Writer) error {
					return writeScriptResult(w, res)
				}); rerr != nil {
					return rerr
				}
			}
			return err
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", scenario.DefaultTimeout, "maximum script run time")
	cmd.Flags().Uint64Var(&maxSteps, "max-steps", 0, "maximum Starlark execution steps (0 for unlimited)")
	cmd.Flags().StringToStringVar(&vars, "set", nil, "script input as key=value pairs")

	return cmd
}

func writeScriptResult(w io.Writer, res *scenario.Result) error {
	for _, line := range res.Printed {
		fmt.Fprintln(w, line)
	}
	if len(res.Printed) > 0 {
		fmt.Fprintln(w)
	}

	keys := make([]string, 0, len(res.Output))
	for k := range res.Output {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := json.Marshal(res.Output[k])
		if err != nil {
			return fmt.Errorf("output %s: %w", k, err)
		}
		fmt.Fprintf(w, "%s\t%s\n", k, v)
	}

	fmt.Fprintf(w, "\nSolves:\t%d\n", res.Solves)
	fmt.Fprintf(w, "Elapsed:\t%s\n", res.ExecutionTime)
	if res.Error != "" {
		fmt.Fprintf(w, "Error:\t%s\n", res.Error)
	}
	return nil
}
