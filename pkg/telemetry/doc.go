// Package telemetry provides observability instrumentation for the
// root-finding engine.
//
// It integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus) and an in-process event publisher.
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceVersion = version
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx = tel.WithContext(ctx)
//
// # Solves
//
// Each solver invocation is wrapped in a tracker that opens a span named
// "solve.<method>", increments the active gauge, and on Finish records the
// outcome counter, the duration histogram and, for successful outcomes, the
// iteration histogram:
//
//	ctx, track := tel.TrackSolve(ctx, "newton", "polynomial")
//	res := s.Solve(f, opts)
//	track.Finish(telemetry.OutcomeConverged, res.Iterations, nil)
//
// # Metrics
//
// All metrics live on a private registry exposed through Metrics.Handler,
// which the HTTP API mounts at MetricsConfig.Path:
//
//	rootfind_solves_total{method,function,outcome}
//	rootfind_solve_duration_seconds{method}
//	rootfind_solve_iterations{method}
//	rootfind_plot_points_dropped_total{function}
//	rootfind_errors_by_class_total{class}
//	rootfind_errors_by_code_total{code}
//	rootfind_policy_violations_total{policy,severity}
//	rootfind_history_writes_total{status}
//	rootfind_http_requests_total{route,code}
//	rootfind_active_solves
//
// # Events
//
// The publisher stamps events with a UUID and timestamp and delivers them to
// subscribers, optionally from a background goroutine:
//
//	tel.Events.Subscribe(func(e telemetry.Event) {
//	    fmt.Println(e.Type, e.Message)
//	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))
package telemetry
