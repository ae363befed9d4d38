package solver_test

import (
	"math"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/openfroyo/rootfind/pkg/functions"
	"github.com/openfroyo/rootfind/pkg/solver"
)

var defaultOpts = solver.Options{Tolerance: 1e-6, MaxIterations: 100}

func TestBisection_ConvergesOnEveryFunction(t *testing.T) {
	for _, spec := range functions.All() {
		t.Run(string(spec.ID), func(t *testing.T) {
			d := spec.Defaults
			res := solver.Bisection{A: d.A, B: d.B}.Solve(spec, defaultOpts)

			require.True(t, res.Success, "unexpected failure: %v", res.Err)
			require.NoError(t, res.Err)
			require.Less(t, math.Abs(spec.Eval(res.Root)), 1e-4)
			require.InDelta(t, spec.ApproxRoot, res.Root, 1e-3)
			require.Empty(t, res.Warning)
			require.Len(t, res.Steps, res.Iterations)
			require.Len(t, res.Errors, res.Iterations)
		})
	}
}

func TestBisection_InvalidBracket(t *testing.T) {
	brackets := map[functions.ID][2]float64{
		functions.Polynomial:    {2, 3},
		functions.Exponential:   {0, 0.5},
		functions.Trigonometric: {1, 2},
	}

	for id, ab := range brackets {
		t.Run(string(id), func(t *testing.T) {
			spec := functions.MustLookup(id)
			res := solver.Bisection{A: ab[0], B: ab[1]}.Solve(spec, defaultOpts)

			require.False(t, res.Success)
			require.ErrorIs(t, res.Err, solver.ErrInvalidBracket)
			require.Contains(t, res.Err.Error(), "opposite signs")
			require.Empty(t, res.Steps)
		})
	}
}

func TestBisection_EndpointRootStaysBracketed(t *testing.T) {
	f := solver.FuncOf{F: func(x float64) float64 { return x - 1 }}
	opts := solver.Options{Tolerance: 1e-9, MaxIterations: 100}

	left := solver.Bisection{A: 1, B: 3}.Solve(f, opts)
	require.True(t, left.Success)
	require.InDelta(t, 1.0, left.Root, 1e-8)

	right := solver.Bisection{A: -1, B: 1}.Solve(f, opts)
	require.True(t, right.Success)
	require.InDelta(t, 1.0, right.Root, 1e-8)

	// f(a) is exactly zero here; narrowing towards b would lose the root.
	trig := functions.MustLookup(functions.Trigonometric)
	a := 0.7390851332151607
	require.Zero(t, trig.Eval(a))
	res := solver.Bisection{A: a, B: 1}.Solve(trig, solver.Options{Tolerance: 1e-6, MaxIterations: 100})
	require.True(t, res.Success)
	require.InDelta(t, a, res.Root, 1e-5)
}

func TestBisection_EqualEndpoints(t *testing.T) {
	f := solver.FuncOf{F: func(x float64) float64 { return x - 1 }}
	opts := solver.Options{Tolerance: 1e-9, MaxIterations: 100}

	res := solver.Bisection{A: 2, B: 2}.Solve(f, opts)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, solver.ErrInvalidBracket)

	res = solver.Bisection{A: 1, B: 1}.Solve(f, opts)
	require.True(t, res.Success)
	require.Equal(t, 1.0, res.Root)
	require.Equal(t, 1, res.Iterations)
}

func TestBisection_TrigonometricTightTolerance(t *testing.T) {
	spec := functions.MustLookup(functions.Trigonometric)
	res := solver.Bisection{A: 0, B: 1}.Solve(spec, solver.Options{Tolerance: 1e-8, MaxIterations: 100})

	require.True(t, res.Success)
	require.InDelta(t, 0.7391, res.Root, 1e-4)
}

func TestBisection_GoldenTrace(t *testing.T) {
	spec := functions.MustLookup(functions.Polynomial)
	res := solver.Bisection{A: 1, B: 2}.Solve(spec, solver.Options{Tolerance: 0.1, MaxIterations: 100})
	require.True(t, res.Success)

	g := goldie.New(t)
	g.AssertJson(t, "bisection_polynomial_trace", snapshot(res))
}

func TestNewton_Polynomial(t *testing.T) {
	spec := functions.MustLookup(functions.Polynomial)
	res := solver.Newton{X0: 1.5}.Solve(spec, defaultOpts)

	require.True(t, res.Success)
	require.Less(t, res.Iterations, 10)
	require.InDelta(t, 1.5214, res.Root, 1e-4)
	require.Less(t, math.Abs(res.FRoot), 1e-6)
	// f_root is recomputed at the returned root.
	require.Equal(t, spec.Eval(res.Root), res.FRoot)
}

func TestNewton_SingularDerivative(t *testing.T) {
	f := solver.FuncOf{
		F:  func(x float64) float64 { return x*x + 1 },
		DF: func(x float64) float64 { return 2 * x },
	}
	res := solver.Newton{X0: 0}.Solve(f, defaultOpts)

	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, solver.ErrSingularDerivative)
	require.Empty(t, res.Steps)
	require.Empty(t, res.Errors)

	trig := functions.MustLookup(functions.Trigonometric)
	res = solver.Newton{X0: -math.Pi / 2}.Solve(trig, defaultOpts)
	require.ErrorIs(t, res.Err, solver.ErrSingularDerivative)
}

type evalOnly func(float64) float64

func (f evalOnly) Eval(x float64) float64 { return f(x) }

func TestNewton_RequiresDerivative(t *testing.T) {
	res := solver.Newton{X0: 1}.Solve(evalOnly(func(x float64) float64 { return x }), defaultOpts)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, solver.ErrNoDerivative)
}

func TestSecant_Polynomial(t *testing.T) {
	spec := functions.MustLookup(functions.Polynomial)
	res := solver.Secant{X0: 1.5, X1: 2}.Solve(spec, defaultOpts)

	require.True(t, res.Success)
	require.LessOrEqual(t, res.Iterations, defaultOpts.MaxIterations)
	require.InDelta(t, 1.5214, res.Root, 1e-4)
	require.Less(t, math.Abs(res.FRoot), 1e-5)
	require.Empty(t, res.Warning)
}

func TestSecant_DegenerateDenominator(t *testing.T) {
	spec := functions.MustLookup(functions.Polynomial)

	// f(-1) == f(1) == -2
	res := solver.Secant{X0: -1, X1: 1}.Solve(spec, defaultOpts)
	require.False(t, res.Success)
	require.ErrorIs(t, res.Err, solver.ErrDegenerateSecant)
	require.Empty(t, res.Steps)

	res = solver.Secant{X0: 1.5, X1: 1.5}.Solve(spec, defaultOpts)
	require.ErrorIs(t, res.Err, solver.ErrDegenerateSecant)
}

func TestIterationCap(t *testing.T) {
	spec := functions.MustLookup(functions.Polynomial)
	opts := solver.Options{Tolerance: 0, MaxIterations: 1}

	solvers := []solver.Solver{
		solver.Bisection{A: 1, B: 2},
		solver.Newton{X0: 1.5},
		solver.Secant{X0: 1.5, X1: 2},
	}

	for _, s := range solvers {
		t.Run(string(s.Method()), func(t *testing.T) {
			res := s.Solve(spec, opts)

			require.True(t, res.Success)
			require.Equal(t, 1, res.Iterations)
			require.NotEmpty(t, res.Warning)
			require.True(t, res.CapReached())
			require.Len(t, res.Steps, 1)
			require.Equal(t, spec.Eval(res.Root), res.FRoot)
		})
	}
}

func TestBisection_CapReturnsFinalMidpoint(t *testing.T) {
	spec := functions.MustLookup(functions.Polynomial)
	res := solver.Bisection{A: 1, B: 2}.Solve(spec, solver.Options{Tolerance: 0, MaxIterations: 1})

	// [1, 2] narrows to [1.5, 2] after the first step.
	require.Equal(t, 1.75, res.Root)
}

func TestErrorSequences(t *testing.T) {
	for _, spec := range functions.All() {
		d := spec.Defaults
		solvers := []solver.Solver{
			solver.Bisection{A: d.A, B: d.B},
			solver.Newton{X0: d.X0},
			solver.Secant{X0: d.X0, X1: d.X1},
		}
		for _, s := range solvers {
			t.Run(string(spec.ID)+"/"+string(s.Method()), func(t *testing.T) {
				res := s.Solve(spec, defaultOpts)
				require.True(t, res.Success, "unexpected failure: %v", res.Err)

				for i, e := range res.Errors {
					require.GreaterOrEqual(t, e, 0.0)
					require.Equal(t, i+1, res.Steps[i].StepIndex())
					require.Equal(t, e, res.Steps[i].StepError())
				}
				if n := len(res.Errors); n > 1 {
					require.Less(t, res.Errors[n-1], res.Errors[0])
				}
			})
		}
	}
}

func TestSolveIsIdempotent(t *testing.T) {
	spec := functions.MustLookup(functions.Exponential)
	solvers := []solver.Solver{
		solver.Bisection{A: 1, B: 2},
		solver.Newton{X0: 1.5},
		solver.Secant{X0: 1.5, X1: 2},
	}

	for _, s := range solvers {
		first := s.Solve(spec, defaultOpts)
		second := s.Solve(spec, defaultOpts)
		require.Equal(t, first.Steps, second.Steps)
		require.Equal(t, first.Errors, second.Errors)
		require.Equal(t, first.Root, second.Root)
	}
}

func TestNew(t *testing.T) {
	seeds := solver.Seeds{A: 1, B: 2, X0: 1.5, X1: 2}
	for _, m := range solver.Methods() {
		s, err := solver.New(m, seeds)
		require.NoError(t, err)
		require.Equal(t, m, s.Method())

		info, ok := solver.Info(m)
		require.True(t, ok)
		require.NotEmpty(t, info.Formula)
	}

	_, err := solver.New("regula-falsi", seeds)
	require.ErrorIs(t, err, solver.ErrUnknownMethod)

	_, err = solver.ParseMethod("Newton")
	require.ErrorIs(t, err, solver.ErrUnknownMethod)
}

type traceSnapshot struct {
	Method     solver.Method `json:"method"`
	Root       float64       `json:"root"`
	FRoot      float64       `json:"f_root"`
	Iterations int           `json:"iterations"`
	Errors     []float64     `json:"errors"`
	Steps      []solver.Step `json:"steps"`
}

func snapshot(res *solver.Result) traceSnapshot {
	return traceSnapshot{
		Method:     res.Method,
		Root:       res.Root,
		FRoot:      res.FRoot,
		Iterations: res.Iterations,
		Errors:     res.Errors,
		Steps:      res.Steps,
	}
}
