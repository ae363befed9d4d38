package commands

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath   string
	verbose      bool
	outputFormat string
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rootfind",
		Short: "rootfind - iterative root finding for real functions",
		Long: `rootfind computes roots of single-variable real functions with bisection,
Newton-Raphson and secant iteration, and reports per-iteration diagnostics.

Features:
  - Typed configuration via CUE or YAML
  - Admission policies via OPA/rego
  - Run history in SQLite
  - Scenario scripts via Starlark
  - JSON HTTP API with Prometheus metrics`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return checkOutputFormat(outputFormat)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (.cue, .yaml, .json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", formatTable, "output format: table, json, yaml")

	rootCmd.AddCommand(newServeCommand(version))
	rootCmd.AddCommand(newSolveCommand())
	rootCmd.AddCommand(newCompareCommand())
	rootCmd.AddCommand(newSampleCommand())
	rootCmd.AddCommand(newFunctionsCommand())
	rootCmd.AddCommand(newMethodsCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newPoliciesCommand())
	rootCmd.AddCommand(newScriptCommand())
	rootCmd.AddCommand(newValidateCommand())

	return rootCmd
}
