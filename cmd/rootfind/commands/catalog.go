package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openfroyo/rootfind/pkg/functions"
	"github.com/openfroyo/rootfind/pkg/solver"
)

func newFunctionsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "functions",
		Short: "List the registered functions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			specs := functions.All()
			return render(cmd.OutOrStdout(), specs, func(w io.Writer) error {
				fmt.Fprintln(w, "ID\tFORMULA\tDERIVATIVE\tROOT≈\tBRACKET\tX0\tX1\tPLOT")
				for _, s := range specs {
					d := s.Defaults
					fmt.Fprintf(w, "%s\t%s\t%s\t%g\t[%g, %g]\t%g\t%g\t[%g, %g]\n",
						s.ID, s.Formula, s.Derivative, s.ApproxRoot, d.A, d.B, d.X0, d.X1, d.PlotXMin, d.PlotXMax)
				}
				return nil
			})
		},
	}
}

func newMethodsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "methods",
		Short: "List the solver methods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos := solver.AllInfo()
			return render(cmd.OutOrStdout(), infos, func(w io.Writer) error {
				fmt.Fprintln(w, "ID\tNAME\tUPDATE\tCONVERGENCE\tSEEDS")
				for _, m := range infos {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
						m.Method, m.Name, m.Formula, m.Convergence, strings.Join(m.Seeds, ", "))
				}
				return nil
			})
		},
	}
}
