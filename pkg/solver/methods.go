package solver

import "fmt"

// Seeds carries the starting values for every method. Each method reads only
// the fields it needs: A and B for bisection, X0 for Newton, X0 and X1 for
// secant.
type Seeds struct {
	A  float64
	B  float64
	X0 float64
	X1 float64
}

// New returns the solver for m initialised from seeds.
func New(m Method, seeds Seeds) (Solver, error) {
	switch m {
	case MethodBisection:
		return Bisection{A: seeds.A, B: seeds.B}, nil
	case MethodNewton:
		return Newton{X0: seeds.X0}, nil
	case MethodSecant:
		return Secant{X0: seeds.X0, X1: seeds.X1}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
}

// MethodInfo describes a method for display.
type MethodInfo struct {
	Method      Method   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Formula     string   `json:"formula" yaml:"formula"`
	Convergence string   `json:"convergence" yaml:"convergence"`
	Seeds       []string `json:"seeds" yaml:"seeds"`
	Description string   `json:"description" yaml:"description"`
}

var methodInfo = map[Method]MethodInfo{
	MethodBisection: {
		Method:      MethodBisection,
		Name:        "Bisection Method",
		Formula:     "c = (a + b) / 2",
		Convergence: "linear",
		Seeds:       []string{"a", "b"},
		Description: "Repeatedly halves an interval whose endpoints have opposite signs. Always converges for a valid bracket.",
	},
	MethodNewton: {
		Method:      MethodNewton,
		Name:        "Newton-Raphson Method",
		Formula:     "xₙ₊₁ = xₙ - f(xₙ)/f'(xₙ)",
		Convergence: "quadratic",
		Seeds:       []string{"x0"},
		Description: "Follows the tangent line to its zero. Fast near a simple root, needs the derivative and may diverge from a poor guess.",
	},
	MethodSecant: {
		Method:      MethodSecant,
		Name:        "Secant Method",
		Formula:     "xₙ₊₁ = xₙ - f(xₙ)(xₙ - xₙ₋₁)/(f(xₙ) - f(xₙ₋₁))",
		Convergence: "superlinear (≈1.618)",
		Seeds:       []string{"x0", "x1"},
		Description: "Approximates the derivative with a finite difference through the two latest iterates.",
	},
}

// Info returns display metadata for m.
func Info(m Method) (MethodInfo, bool) {
	info, ok := methodInfo[m]
	return info, ok
}

// AllInfo returns metadata for every method in display order.
func AllInfo() []MethodInfo {
	out := make([]MethodInfo, 0, len(methodInfo))
	for _, m := range Methods() {
		out = append(out, methodInfo[m])
	}
	return out
}
