package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/openfroyo/rootfind/pkg/solver"
	"github.com/openfroyo/rootfind/pkg/telemetry"
)

// Compare runs every method on the same function, tolerance, cap and seeds.
// The Method field of base is ignored. Shared fields are validated up front
// and fail the whole comparison; a method whose admission is denied gets a
// failure envelope instead.
func (e *Engine) Compare(ctx context.Context, base SolveRequest) (*Comparison, error) {
	shared := base
	shared.Method = string(solver.MethodNewton)
	if _, err := e.prepare(shared); err != nil {
		e.reject(base, err)
		return nil, err
	}

	op := telemetry.StartOperation(e.tel.WithContext(ctx), "compare",
		telemetry.AttrFunction.String(base.FunctionType))

	methods := solver.Methods()
	results := make([]*Envelope, len(methods))

	g, gctx := errgroup.WithContext(op.Ctx)
	for i, m := range methods {
		req := base
		req.Method = string(m)

		g.Go(func() error {
			env, err := e.Solve(gctx, req)
			if err != nil {
				if IsInternal(err) {
					return err
				}
				env = &Envelope{
					Success:      false,
					Error:        Reason(err),
					Method:       req.Method,
					FunctionType: req.FunctionType,
				}
			}
			results[i] = env
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		op.End(err)
		return nil, err
	}
	op.End(nil)

	cmp := &Comparison{
		FunctionType: base.FunctionType,
		Methods:      make(map[string]*Envelope, len(methods)),
	}
	succeeded := 0
	for i, m := range methods {
		cmp.Methods[string(m)] = results[i]
		if results[i].Success {
			succeeded++
		}
	}
	_ = e.tel.Events.PublishCompare(base.FunctionType, succeeded, len(methods))

	return cmp, nil
}
