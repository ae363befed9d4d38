// Package solver implements the bisection, Newton-Raphson and secant root
// finders and the plot sampler they share a function contract with.
//
// Every solver is a pure, bounded loop. A solve either converges (the step
// error or the residual |f(x)| drops below the tolerance), stops early on a
// mathematical failure (ErrInvalidBracket, ErrSingularDerivative,
// ErrDegenerateSecant), or reaches its iteration cap and still reports a
// best-effort root annotated with a warning.
//
// Solvers never panic or return Go errors for mathematical failures; the
// failure is data carried in Result.Err so that callers can render it.
package solver
