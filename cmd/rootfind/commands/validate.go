package commands

import (
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/rootfind/pkg/config"
	"github.com/openfroyo/rootfind/pkg/policy"
)

type validationReport struct {
	Config   string   `json:"config" yaml:"config"`
	Valid    bool     `json:"valid" yaml:"valid"`
	Errors   []string `json:"errors,omitempty" yaml:"errors,omitempty"`
	Policies int      `json:"policies" yaml:"policies"`
	Requests int      `json:"requests,omitempty" yaml:"requests,omitempty"`
}

func newValidateCommand() *cobra.Command {
	var requestsFile string

	cmd := &cobra.Command{
		Use:   "validate [config]",
		Short: "Validate configuration, policies and request files",
		Long: `Validate a configuration file without running anything.

This command checks:
  - CUE or YAML syntax
  - Conformance with the configuration schema
  - Struct constraints and durations
  - That every policy under policy.paths compiles
  - Optionally, a batch request file against the request schema`,
		Example: `  # Validate the built-in defaults plus environment overrides
  rootfind validate

  # Validate a config file and a batch of requests
  rootfind validate rootfind.cue --requests batch.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := configPath
			if len(args) > 0 {
				path = args[0]
			}
			log.Debug().Str("path", path).Str("requests", requestsFile).Msg("Validating configuration")

			report := validationReport{Config: path, Valid: true}
			if report.Config == "" {
				report.Config = "(defaults)"
			}

			loader := config.NewLoader()
			cfg, err := loader.Load(path)
			if err != nil {
				report.fail(err)
			}

			if cfg != nil && cfg.Policy.Enabled {
				pe, err := policy.NewEngine(zerolog.Nop(), policy.WithLimits(cfg.Policy.Limits))
				if err != nil {
					report.fail(err)
				} else {
					if len(cfg.Policy.Paths) > 0 {
						if err := pe.LoadPolicies(cmd.Context(), cfg.Policy.Paths); err != nil {
							report.fail(err)
						}
					}
					report.Policies = len(pe.ListPolicies())
					_ = pe.Close()
				}
			}

			if requestsFile != "" {
				reqs, err := loader.LoadRequests(requestsFile)
				if err != nil {
					report.fail(err)
				}
				report.Requests = len(reqs)
			}

			if err := render(cmd.OutOrStdout(), report, func(w io.Writer) error {
				status := "valid"
				if !report.Valid {
					status = "invalid"
				}
				fmt.Fprintf(w, "Config:\t%s\n", report.Config)
				fmt.Fprintf(w, "Status:\t%s\n", status)
				fmt.Fprintf(w, "Policies:\t%d\n", report.Policies)
				if requestsFile != "" {
					fmt.Fprintf(w, "Requests:\t%d\n", report.Requests)
				}
				for _, e := range report.Errors {
					fmt.Fprintf(w, "  - %s\n", e)
				}
				return nil
			}); err != nil {
				return err
			}

			if !report.Valid {
				return errors.New("validation failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&requestsFile, "requests", "", "batch request file to validate")

	return cmd
}

// fail records err, expanding a LoadError into one line per finding.
func (r *validationReport) fail(err error) {
	r.Valid = false

	var le *config.LoadError
	if errors.As(err, &le) && len(le.Errors) > 0 {
		for _, ve := range le.Errors {
			r.Errors = append(r.Errors, ve.String())
		}
		return
	}
	r.Errors = append(r.Errors, err.Error())
}
