package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/openfroyo/rootfind/pkg/config"
	"github.com/openfroyo/rootfind/pkg/engine"
	"github.com/openfroyo/rootfind/pkg/solver"
)

// requestFlags binds the numeric fields of a SolveRequest. A field is only
// set when its flag was given, so absent flags fall back to defaults.
type requestFlags struct {
	method   string
	function string

	tol      float64
	maxIter  int
	a, b     float64
	x0, x1   float64
	plotXMin float64
	plotXMax float64
	samples  int
	plot     bool
}

func (rf *requestFlags) register(fs *pflag.FlagSet, withMethod bool) {
	if withMethod {
		fs.StringVarP(&rf.method, "method", "m", "", "solver method: bisection, newton, secant")
	}
	fs.StringVarP(&rf.function, "function", "f", "", "function: polynomial, exponential, trigonometric")
	fs.Float64Var(&rf.tol, "tol", 0, "convergence tolerance")
	fs.IntVar(&rf.maxIter, "max-iter", 0, "iteration cap")
	fs.Float64Var(&rf.a, "a", 0, "bisection bracket start")
	fs.Float64Var(&rf.b, "b", 0, "bisection bracket end")
	fs.Float64Var(&rf.x0, "x0", 0, "initial guess (newton, secant)")
	fs.Float64Var(&rf.x1, "x1", 0, "second initial guess (secant)")
	fs.Float64Var(&rf.plotXMin, "plot-xmin", 0, "plot domain start")
	fs.Float64Var(&rf.plotXMax, "plot-xmax", 0, "plot domain end")
	fs.IntVar(&rf.samples, "samples", 0, "plot sample count")
	fs.BoolVar(&rf.plot, "plot", false, "include plot points in the output")
}

func (rf *requestFlags) request(fs *pflag.FlagSet) engine.SolveRequest {
	req := engine.SolveRequest{Method: rf.method, FunctionType: rf.function}

	floats := []struct {
		name string
		val  float64
		dst  **float64
	}{
		{"tol", rf.tol, &req.Tolerance},
		{"a", rf.a, &req.A},
		{"b", rf.b, &req.B},
		{"x0", rf.x0, &req.X0},
		{"x1", rf.x1, &req.X1},
		{"plot-xmin", rf.plotXMin, &req.PlotXMin},
		{"plot-xmax", rf.plotXMax, &req.PlotXMax},
	}
	for _, f := range floats {
		if fs.Changed(f.name) {
			*f.dst = engine.Float(f.val)
		}
	}
	if fs.Changed("max-iter") {
		req.MaxIterations = engine.Int(rf.maxIter)
	}
	if fs.Changed("samples") {
		req.SampleCount = engine.Int(rf.samples)
	}
	return req
}

// trim drops plot points unless they were asked for.
func (rf *requestFlags) trim(env *engine.Envelope) {
	if !rf.plot {
		env.FunctionPoints = nil
	}
}

func newSolveCommand() *cobra.Command {
	var (
		rf        requestFlags
		batchFile string
	)

	cmd := &cobra.Command{
		Use:   "solve",
		Short: "Find a root with one method",
		Long: `Run one solver on one of the registered functions.

Absent parameters take the function's defaults. A method that fails
mathematically (invalid bracket, zero derivative, degenerate secant) is
reported in the result, not as a command failure.`,
		Example: `  # Newton-Raphson on the cubic with defaults
  rootfind solve -m newton -f polynomial

  # Bisection on a custom bracket, tight tolerance
  rootfind solve -m bisection -f exponential --a 0 --b 1 --tol 1e-10

  # Run every request in a batch file
  rootfind solve --file requests.yaml -o json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{withStore: true})
			if err != nil {
				return err
			}
			defer a.close()

			reqs := []engine.SolveRequest{rf.request(cmd.Flags())}
			if batchFile != "" {
				if reqs, err = config.NewLoader().LoadRequests(batchFile); err != nil {
					return err
				}
				log.Info().Str("file", batchFile).Int("requests", len(reqs)).Msg("Running batch")
			}

			envs := make([]*engine.Envelope, 0, len(reqs))
			for _, req := range reqs {
				env, err := a.engine.Solve(ctx, req)
				if err != nil {
					return fmt.Errorf("%s on %s: %w", req.Method, req.FunctionType, err)
				}
				rf.trim(env)
				envs = append(envs, env)
			}

			out := cmd.OutOrStdout()
			if batchFile == "" {
				return render(out, envs[0], func(w io.Writer) error { return writeEnvelope(w, envs[0]) })
			}
			return render(out, envs, func(w io.Writer) error {
				fmt.Fprintln(w, "METHOD\tFUNCTION\tSUCCESS\tROOT\tITERATIONS\tERROR")
				for _, env := range envs {
					fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%d\t%s\n",
						env.Method, env.FunctionType, env.Success, formatFloat(env.Root), env.Iterations, env.Error)
				}
				return nil
			})
		},
	}

	rf.register(cmd.Flags(), true)
	cmd.Flags().StringVar(&batchFile, "file", "", "batch file of requests (.cue, .yaml, .json)")
	cmd.MarkFlagsMutuallyExclusive("file", "method")

	return cmd
}

func newCompareCommand() *cobra.Command {
	var rf requestFlags

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Run every method on the same inputs",
		Long: `Run bisection, Newton-Raphson and secant on one function with shared
tolerance, iteration cap and seeds, and report them side by side.`,
		Example: `  rootfind compare -f trigonometric
  rootfind compare -f polynomial --tol 1e-12 -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{withStore: true})
			if err != nil {
				return err
			}
			defer a.close()

			cmp, err := a.engine.Compare(ctx, rf.request(cmd.Flags()))
			if err != nil {
				return err
			}
			for _, env := range cmp.Methods {
				rf.trim(env)
			}
			return render(cmd.OutOrStdout(), cmp, func(w io.Writer) error { return writeComparison(w, cmp) })
		},
	}

	rf.register(cmd.Flags(), false)
	_ = cmd.MarkFlagRequired("function")

	return cmd
}

func newSampleCommand() *cobra.Command {
	var (
		function string
		xMin     float64
		xMax     float64
		count    int
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Sample a function for plotting",
		Example: `  rootfind sample -f polynomial --xmin -1 --xmax 3 --count 40`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.close()

			var lo, hi *float64
			if cmd.Flags().Changed("xmin") {
				lo = engine.Float(xMin)
			}
			if cmd.Flags().Changed("xmax") {
				hi = engine.Float(xMax)
			}

			points, err := a.engine.Sample(a.tel.WithContext(cmd.Context()), function, lo, hi, count)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), points, func(w io.Writer) error {
				return writePoints(w, points)
			})
		},
	}

	cmd.Flags().StringVarP(&function, "function", "f", "", "function to sample")
	cmd.Flags().Float64Var(&xMin, "xmin", 0, "domain start")
	cmd.Flags().Float64Var(&xMax, "xmax", 0, "domain end")
	cmd.Flags().IntVar(&count, "count", 0, "number of intervals")
	_ = cmd.MarkFlagRequired("function")

	return cmd
}

func writePoints(w io.Writer, points []solver.PlotPoint) error {
	fmt.Fprintln(w, "X\tF(X)")
	for _, p := range points {
		fmt.Fprintf(w, "%.6g\t%.6g\n", p.X, p.Y)
	}
	return nil
}
