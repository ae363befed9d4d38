package commands

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/openfroyo/rootfind/pkg/server"
	"github.com/openfroyo/rootfind/pkg/telemetry"
)

func newServeCommand(version string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON HTTP API",
		Long: `Serve the solver over HTTP until interrupted.

Endpoints:
  POST /api/solve, POST /api/compare
  GET  /api/functions, /api/methods, /api/sample
  GET  /api/runs, /api/runs/{id}, /api/stats
  GET  /healthz, /metrics

With policy.watch enabled, policy files are reloaded as they change.`,
		Example: `  rootfind serve
  rootfind serve --addr 127.0.0.1:9090 -c rootfind.cue`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, appOptions{version: version, withStore: true})
			if err != nil {
				return err
			}
			defer a.close()

			cfg := a.cfg
			if addr == "" {
				addr = cfg.Server.Address
			}
			read, write, shutdown, err := cfg.Server.Durations()
			if err != nil {
				return err
			}

			a.tel.Events.Subscribe(func(e telemetry.Event) {
				log.Warn().Str("type", e.Type).Str("source", e.Source).Msg(e.Message)
			}, telemetry.FilterByLevel(telemetry.EventLevelWarning))
			a.tel.Events.Subscribe(func(e telemetry.Event) {
				log.Info().Str("type", e.Type).Msg(e.Message)
			}, telemetry.FilterByType(telemetry.EventTypePolicyReloaded))

			if a.policy != nil && cfg.Policy.Watch && len(cfg.Policy.Paths) > 0 {
				if err := a.policy.Watch(ctx, cfg.Policy.Paths); err != nil {
					return fmt.Errorf("failed to watch policies: %w", err)
				}
			}

			opts := server.Options{Engine: a.engine, Telemetry: a.tel}
			if a.store != nil {
				opts.History = a.store
			}

			log.Info().
				Str("addr", addr).
				Str("config", cfg.Source).
				Bool("history", a.store != nil).
				Msg("Starting rootfind API")

			return server.New(opts).ListenAndServe(a.tel.WithContext(ctx), addr, server.Timeouts{
				Read:     read,
				Write:    write,
				Shutdown: shutdown,
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.address)")

	return cmd
}
