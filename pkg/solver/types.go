package solver

import (
	"errors"
	"fmt"
)

// Func is a real function of one variable.
type Func interface {
	Eval(x float64) float64
}

// Differentiable is a Func with a known derivative.
type Differentiable interface {
	Func
	Deriv(x float64) float64
}

// FuncOf adapts plain closures to Differentiable. deriv may be nil.
type FuncOf struct {
	F  func(float64) float64
	DF func(float64) float64
}

func (f FuncOf) Eval(x float64) float64 { return f.F(x) }

func (f FuncOf) Deriv(x float64) float64 {
	if f.DF == nil {
		panic("solver: FuncOf has no derivative")
	}
	return f.DF(x)
}

// Method identifies an iteration scheme.
type Method string

const (
	MethodBisection Method = "bisection"
	MethodNewton    Method = "newton"
	MethodSecant    Method = "secant"
)

// Methods lists the supported methods in display order.
func Methods() []Method {
	return []Method{MethodBisection, MethodNewton, MethodSecant}
}

// ParseMethod validates a method identifier.
func ParseMethod(s string) (Method, error) {
	for _, m := range Methods() {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Numerical guard used by Newton and secant before dividing.
const vanishingThreshold = 1e-12

// WarningCapReached annotates a result returned after exhausting the cap.
const WarningCapReached = "Maximum iterations reached"

var (
	ErrUnknownMethod      = errors.New("unknown method")
	ErrInvalidBracket     = errors.New("invalid bracket")
	ErrSingularDerivative = errors.New("singular derivative")
	ErrDegenerateSecant   = errors.New("degenerate secant")
	ErrNoDerivative       = errors.New("function has no derivative")
	ErrNonFinite          = errors.New("non-finite value")
)

// Options bound a single solve.
type Options struct {
	// Tolerance is compared against both the step error and |f(x)|.
	Tolerance float64

	// MaxIterations is the hard cap on loop iterations.
	MaxIterations int
}

// Solver is the capability shared by the three methods. Seeds live on the
// concrete type.
type Solver interface {
	Method() Method
	Solve(f Func, opts Options) *Result
}

// Result is the outcome of one solver invocation.
type Result struct {
	Method  Method
	Success bool

	// Root and FRoot are meaningful only when Success is true.
	Root  float64
	FRoot float64

	Iterations int

	// Errors parallels Steps, one error magnitude per iteration.
	Errors []float64
	Steps  []Step

	// Warning is set when the cap was reached without meeting tolerance.
	Warning string

	// Err is set when Success is false.
	Err error
}

// CapReached reports whether the result was returned on cap exhaustion.
func (r *Result) CapReached() bool {
	return r.Success && r.Warning != ""
}

func (r *Result) record(s Step) {
	r.Steps = append(r.Steps, s)
	r.Errors = append(r.Errors, s.StepError())
}

func (r *Result) converged(root, froot float64, iterations int) *Result {
	r.Success = true
	r.Root = root
	r.FRoot = froot
	r.Iterations = iterations
	return r
}

func (r *Result) capped(root, froot float64, iterations int) *Result {
	r.converged(root, froot, iterations)
	r.Warning = WarningCapReached
	return r
}

// failed drops any partial trace: a mathematical failure terminates the
// whole solve.
func (r *Result) failed(err error) *Result {
	return &Result{Method: r.Method, Err: err}
}
