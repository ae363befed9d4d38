package solver

import (
	"fmt"
	"math"
)

// Secant replaces the derivative with the slope through the two latest
// iterates, starting from X0 and X1.
type Secant struct {
	X0 float64
	X1 float64
}

func (Secant) Method() Method { return MethodSecant }

// Solve runs the secant iteration. A denominator f(x1)-f(x0) below 1e-12 in
// magnitude ends the solve with ErrDegenerateSecant.
func (s Secant) Solve(f Func, opts Options) *Result {
	res := &Result{Method: MethodSecant}
	x0, x1 := s.X0, s.X1

	for n := 0; n < opts.MaxIterations; n++ {
		fx0 := f.Eval(x0)
		fx1 := f.Eval(x1)

		if math.Abs(fx1-fx0) < vanishingThreshold {
			return res.failed(fmt.Errorf(
				"%w: function values too close, division by zero risk at x0=%g, x1=%g",
				ErrDegenerateSecant, x0, x1))
		}

		x2 := x1 - fx1*(x1-x0)/(fx1-fx0)
		if !finite(fx0, fx1, x2) {
			return res.failed(fmt.Errorf("%w: iterate diverged from x0=%g, x1=%g", ErrNonFinite, x0, x1))
		}
		errMag := math.Abs(x2 - x1)

		res.record(SecantStep{
			Iteration: n + 1,
			X0:        x0,
			X1:        x1,
			FX0:       fx0,
			FX1:       fx1,
			X2:        x2,
			Error:     errMag,
		})

		if errMag < opts.Tolerance || math.Abs(fx1) < opts.Tolerance {
			return res.converged(x2, f.Eval(x2), n+1)
		}

		x0, x1 = x1, x2
	}

	return res.capped(x1, f.Eval(x1), opts.MaxIterations)
}
