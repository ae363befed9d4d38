package telemetry_test

import (
	"context"
	"fmt"

	"github.com/openfroyo/rootfind/pkg/telemetry"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = "1.0.0"
	cfg.Logging.Output = "discard"

	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())
	telemetry.FromContext(ctx).Info("rootfind started")

	fmt.Println(tel.Config.ServiceName)
	// Output: rootfind
}

// Example_solveTracking shows how a solver invocation is instrumented.
func Example_solveTracking() {
	tel := telemetry.Nop()

	_, track := tel.TrackSolve(context.Background(), "bisection", "polynomial")
	track.Finish(telemetry.OutcomeConverged, 20, nil)

	families, _ := tel.Metrics.Registry().Gather()
	for _, mf := range families {
		if mf.GetName() == "rootfind_solves_total" {
			fmt.Println(mf.GetMetric()[0].GetCounter().GetValue())
		}
	}
	// Output: 1
}

// Example_eventFiltering subscribes to warnings and above.
func Example_eventFiltering() {
	tel := telemetry.Nop()

	tel.Events.Subscribe(func(e telemetry.Event) {
		fmt.Println(e.Type, e.Message)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	_ = tel.Events.PublishSolve("", "newton", "polynomial", true, 4, "")
	_ = tel.Events.PublishSolve("", "secant", "polynomial", false, 0, "degenerate secant")

	// Output: solve.failed secant on polynomial failed: degenerate secant
}
