package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/openfroyo/rootfind/pkg/engine"
	"github.com/openfroyo/rootfind/pkg/solver"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

func checkOutputFormat(format string) error {
	switch format {
	case formatTable, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unsupported output format %q (want table, json or yaml)", format)
}

// render writes v in the selected output format. table draws the
// human-readable form onto a tabwriter.
func render(w io.Writer, v interface{}, table func(w io.Writer) error) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := table(tw); err != nil {
		return err
	}
	return tw.Flush()
}

func formatFloat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.10g", *v)
}

func writeEnvelope(w io.Writer, env *engine.Envelope) error {
	fmt.Fprintf(w, "Method:\t%s\n", env.Method)
	fmt.Fprintf(w, "Function:\t%s\n", env.FunctionType)
	fmt.Fprintf(w, "Success:\t%t\n", env.Success)
	if env.Success {
		fmt.Fprintf(w, "Root:\t%s\n", formatFloat(env.Root))
		fmt.Fprintf(w, "f(root):\t%s\n", formatFloat(env.FRoot))
	}
	fmt.Fprintf(w, "Iterations:\t%d\n", env.Iterations)
	if env.Warning != "" {
		fmt.Fprintf(w, "Warning:\t%s\n", env.Warning)
	}
	if env.Error != "" {
		fmt.Fprintf(w, "Error:\t%s\n", env.Error)
	}
	for _, n := range env.Notices {
		fmt.Fprintf(w, "Notice:\t%s\n", n)
	}
	if env.RunID != "" {
		fmt.Fprintf(w, "Run:\t%s\n", env.RunID)
	}
	if len(env.FunctionPoints) > 0 {
		fmt.Fprintf(w, "Plot points:\t%d\n", len(env.FunctionPoints))
	}

	if len(env.IterationsData) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	writeSteps(w, env.IterationsData)
	return nil
}

func writeSteps(w io.Writer, steps []solver.Step) {
	switch steps[0].(type) {
	case solver.BisectionStep:
		fmt.Fprintln(w, "ITER\tA\tB\tC\tF(C)\tERROR")
	case solver.NewtonStep:
		fmt.Fprintln(w, "ITER\tX\tF(X)\tF'(X)\tX_NEW\tERROR")
	case solver.SecantStep:
		fmt.Fprintln(w, "ITER\tX0\tX1\tF(X0)\tF(X1)\tX2\tERROR")
	}

	for _, step := range steps {
		switch s := step.(type) {
		case solver.BisectionStep:
			fmt.Fprintf(w, "%d\t%.8g\t%.8g\t%.8g\t%.4e\t%.4e\n", s.Iteration, s.A, s.B, s.C, s.FC, s.Error)
		case solver.NewtonStep:
			fmt.Fprintf(w, "%d\t%.8g\t%.4e\t%.8g\t%.8g\t%.4e\n", s.Iteration, s.X, s.FX, s.DFX, s.XNew, s.Error)
		case solver.SecantStep:
			fmt.Fprintf(w, "%d\t%.8g\t%.8g\t%.4e\t%.4e\t%.8g\t%.4e\n", s.Iteration, s.X0, s.X1, s.FX0, s.FX1, s.X2, s.Error)
		}
	}
}

func writeComparison(w io.Writer, cmp *engine.Comparison) error {
	fmt.Fprintf(w, "Function:\t%s\n\n", cmp.FunctionType)
	fmt.Fprintln(w, "METHOD\tSUCCESS\tROOT\tF(ROOT)\tITERATIONS\tNOTE")
	for _, env := range cmp.Ordered() {
		note := env.Error
		if note == "" {
			note = env.Warning
		}
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%d\t%s\n",
			env.Method, env.Success, formatFloat(env.Root), formatFloat(env.FRoot), env.Iterations, note)
	}
	return nil
}

func joinOrDash(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return strings.Join(items, ", ")
}
