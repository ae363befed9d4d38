package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openfroyo/rootfind/pkg/config"
	"github.com/openfroyo/rootfind/pkg/engine"
	"github.com/openfroyo/rootfind/pkg/policy"
	"github.com/openfroyo/rootfind/pkg/stores"
	"github.com/openfroyo/rootfind/pkg/telemetry"
)

// app holds the collaborators a command runs against.
type app struct {
	cfg    *config.Config
	tel    *telemetry.Telemetry
	store  *stores.SQLiteStore
	policy *policy.Engine
	engine *engine.Engine
}

type appOptions struct {
	version string

	// withStore opens the history store when the configuration enables it.
	withStore bool

	// requireStore fails instead of running without history.
	requireStore bool
}

// openApp wires configuration, telemetry, the history store, the policy
// engine and the solve engine.
func openApp(ctx context.Context, opts appOptions) (_ *app, err error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	telCfg := cfg.Telemetry.Build(opts.version)
	if verbose {
		telCfg.Logging.Level = "debug"
	}
	tel, err := telemetry.NewTelemetry(telCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	a := &app{cfg: cfg, tel: tel}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if opts.withStore || opts.requireStore {
		if !cfg.Store.Enabled {
			if opts.requireStore {
				return nil, errors.New("history store is disabled in the configuration")
			}
		} else if a.store, err = openStore(ctx, cfg.Store); err != nil {
			return nil, err
		}
	}

	if cfg.Policy.Enabled {
		a.policy, err = policy.NewEngine(*tel.Logger.NewComponentLogger("policy").Zerolog(),
			policy.WithLimits(cfg.Policy.Limits),
			policy.WithEvents(tel.Events),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create policy engine: %w", err)
		}
		if len(cfg.Policy.Paths) > 0 {
			if err = a.policy.LoadPolicies(ctx, cfg.Policy.Paths); err != nil {
				return nil, fmt.Errorf("failed to load policies: %w", err)
			}
		}
	}

	engOpts := engine.Options{
		Telemetry: tel,
		Defaults: engine.Defaults{
			Tolerance:     cfg.Solver.DefaultTolerance,
			MaxIterations: cfg.Solver.DefaultMaxIterations,
			SampleCount:   cfg.Solver.SampleCount,
		},
	}
	if a.policy != nil {
		engOpts.Admitter = a.policy
	}
	if a.store != nil {
		engOpts.History = a.store
	}
	a.engine = engine.New(engOpts)

	log.Debug().
		Str("config", cfg.Source).
		Bool("store", a.store != nil).
		Bool("policy", a.policy != nil).
		Msg("Application wired")

	return a, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (*stores.SQLiteStore, error) {
	store, err := stores.NewSQLiteStore(stores.Config{Path: cfg.Path})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate history store: %w", err)
	}

	if cfg.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -cfg.RetentionDays)
		n, err := store.PruneRuns(ctx, cutoff)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to apply retention: %w", err)
		}
		if n > 0 {
			log.Info().Int64("runs", n).Int("retention_days", cfg.RetentionDays).Msg("Pruned expired runs")
		}
	}
	return store, nil
}

func (a *app) close() {
	if a.policy != nil {
		_ = a.policy.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close history store")
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to shut down telemetry")
	}
}
