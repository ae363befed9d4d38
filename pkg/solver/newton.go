package solver

import (
	"fmt"
	"math"
)

// Newton is the Newton-Raphson method started from X0. The function must
// implement Differentiable.
type Newton struct {
	X0 float64
}

func (Newton) Method() Method { return MethodNewton }

// Solve runs the tangent iteration. A derivative below 1e-12 in magnitude
// ends the solve with ErrSingularDerivative and no partial trace.
func (s Newton) Solve(f Func, opts Options) *Result {
	res := &Result{Method: MethodNewton}

	d, ok := f.(Differentiable)
	if !ok {
		return res.failed(ErrNoDerivative)
	}

	x := s.X0
	for n := 0; n < opts.MaxIterations; n++ {
		fx := f.Eval(x)
		dfx := d.Deriv(x)

		if math.Abs(dfx) < vanishingThreshold {
			return res.failed(fmt.Errorf(
				"%w: derivative too close to zero at x = %g, method may diverge",
				ErrSingularDerivative, x))
		}

		xNew := x - fx/dfx
		if !finite(fx, dfx, xNew) {
			return res.failed(fmt.Errorf("%w: iterate diverged from x = %g", ErrNonFinite, x))
		}
		errMag := math.Abs(xNew - x)

		res.record(NewtonStep{
			Iteration: n + 1,
			X:         x,
			FX:        fx,
			DFX:       dfx,
			XNew:      xNew,
			Error:     errMag,
		})

		if errMag < opts.Tolerance || math.Abs(fx) < opts.Tolerance {
			// f_root is evaluated at the new point, not reused from fx.
			return res.converged(xNew, f.Eval(xNew), n+1)
		}

		x = xNew
	}

	return res.capped(x, f.Eval(x), opts.MaxIterations)
}
