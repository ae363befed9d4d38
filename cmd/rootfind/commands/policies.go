package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newPoliciesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policies",
		Short: "Inspect admission policies",
		Long: `Inspect the admission policies applied before every solve.

Built-in policies enforce the limits from the policy section of the
configuration. Additional Rego policies are loaded from policy.paths.`,
	}

	cmd.AddCommand(newPoliciesListCommand())
	cmd.AddCommand(newPoliciesShowCommand())

	return cmd
}

func newPoliciesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List loaded policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.close()
			if a.policy == nil {
				return errors.New("policies are disabled in the configuration")
			}

			policies := a.policy.ListPolicies()
			return render(cmd.OutOrStdout(), policies, func(w io.Writer) error {
				fmt.Fprintln(w, "NAME\tSEVERITY\tENABLED\tSOURCE\tDESCRIPTION")
				for _, p := range policies {
					fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\n", p.Name, p.Severity, p.Enabled, p.Source, p.Description)
				}
				return nil
			})
		},
	}
}

func newPoliciesShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Print a policy with its Rego source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), appOptions{})
			if err != nil {
				return err
			}
			defer a.close()
			if a.policy == nil {
				return errors.New("policies are disabled in the configuration")
			}

			p, err := a.policy.GetPolicy(args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), p, func(w io.Writer) error {
				fmt.Fprintf(w, "Name:\t%s\n", p.Name)
				fmt.Fprintf(w, "Severity:\t%s\n", p.Severity)
				fmt.Fprintf(w, "Enabled:\t%t\n", p.Enabled)
				fmt.Fprintf(w, "Source:\t%s\n", p.Source)
				fmt.Fprintf(w, "Tags:\t%s\n", joinOrDash(p.Tags))
				fmt.Fprintf(w, "\n%s\n", strings.ReplaceAll(p.Rego, "\t", "    "))
				return nil
			})
		},
	}
}
