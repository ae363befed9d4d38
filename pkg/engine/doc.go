// Package engine is the solve orchestrator.
//
// A request flows through four stages:
//
//  1. Validate - method and function identifiers, tolerance and cap
//     (go-playground/validator), then defaults from the function table
//  2. Admit - optional admission policy (see package policy)
//  3. Solve - dispatch to the bisection, Newton or secant solver
//  4. Record - plot samples on success, telemetry, optional run history
//
// Validation and admission failures are returned as *EngineError values of
// class configuration or policy and never reach a solver. Mathematical
// failures (an invalid bracket, a vanishing derivative, a degenerate secant)
// are data: Solve returns an Envelope with Success false and a message.
//
//	eng := engine.New(engine.Options{Telemetry: tel, History: store})
//	env, err := eng.Solve(ctx, engine.SolveRequest{
//	    Method:       "newton",
//	    FunctionType: "polynomial",
//	    X0:           engine.Float(1.5),
//	})
//
// Compare runs the three methods on the same inputs concurrently.
package engine
