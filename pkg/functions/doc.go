// Package functions is the registry of test functions the solvers operate on.
//
// The set is closed: polynomial, exponential and trigonometric. Each entry
// carries a hand-coded evaluator and derivative together with the default
// seeds and plot domain a caller should start from when the function is
// selected.
package functions
