package solver

import (
	"fmt"
	"math"
)

// Bisection halves a sign-changing bracket [A, B] until the half-width or the
// residual at the midpoint drops below the tolerance.
type Bisection struct {
	A float64
	B float64
}

func (Bisection) Method() Method { return MethodBisection }

// Solve runs the bisection loop. f(a)·f(b) = 0 is accepted since an endpoint
// may already be a root.
func (s Bisection) Solve(f Func, opts Options) *Result {
	res := &Result{Method: MethodBisection}
	a, b := s.A, s.B

	fa, fb := f.Eval(a), f.Eval(b)
	if !finite(fa, fb) {
		return res.failed(fmt.Errorf("%w: f(a)=%g, f(b)=%g", ErrNonFinite, fa, fb))
	}
	if fa*fb > 0 {
		return res.failed(fmt.Errorf(
			"%w: f(a) and f(b) must have opposite signs, the interval [%g, %g] must contain a root",
			ErrInvalidBracket, a, b))
	}

	for n := 0; n < opts.MaxIterations; n++ {
		c := (a + b) / 2
		fc := f.Eval(c)
		if !finite(fc) {
			return res.failed(fmt.Errorf("%w: f(%g)=%g", ErrNonFinite, c, fc))
		}
		// Half-width of the interval before narrowing.
		errMag := math.Abs(b-a) / 2

		res.record(BisectionStep{
			Iteration: n + 1,
			A:         a,
			B:         b,
			C:         c,
			FC:        fc,
			Error:     errMag,
		})

		if errMag < opts.Tolerance || math.Abs(fc) < opts.Tolerance {
			return res.converged(c, fc, n+1)
		}

		// An exact root at a keeps a inside the bracket.
		if fa*fc < 0 || fa == 0 {
			b = c
		} else {
			a, fa = c, fc
		}
	}

	c := (a + b) / 2
	return res.capped(c, f.Eval(c), opts.MaxIterations)
}
