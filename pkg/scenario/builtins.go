package scenario

import (
	"context"
	"fmt"

	"go.starlark.net/starlark"

	"github.com/openfroyo/rootfind/pkg/engine"
	"github.com/openfroyo/rootfind/pkg/functions"
	"github.com/openfroyo/rootfind/pkg/solver"
)

const contextKey = "context"

func threadContext(thread *starlark.Thread) context.Context {
	if ctx, ok := thread.Local(contextKey).(context.Context); ok {
		return ctx
	}
	return context.Background()
}

// builtins returns the functions scripts can call. Counters land on res.
func (r *Runner) builtins(res *Result) starlark.StringDict {
	return starlark.StringDict{
		"solve":     starlark.NewBuiltin("solve", r.solveBuiltin(res)),
		"compare":   starlark.NewBuiltin("compare", r.compareBuiltin(res)),
		"functions": starlark.NewBuiltin("functions", functionsBuiltin),
		"methods":   starlark.NewBuiltin("methods", methodsBuiltin),
	}
}

// unpackRequest reads solve(method, function, **options) and
// compare(function, **options) arguments.
func unpackRequest(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple, withMethod bool) (engine.SolveRequest, error) {
	var req engine.SolveRequest
	var tol, a, bb, x0, x1, plotMin, plotMax, maxIter, samples starlark.Value

	pairs := []interface{}{}
	if withMethod {
		pairs = append(pairs, "method", &req.Method)
	}
	pairs = append(pairs,
		"function", &req.FunctionType,
		"tolerance?", &tol,
		"max_iterations?", &maxIter,
		"a?", &a,
		"b?", &bb,
		"x0?", &x0,
		"x1?", &x1,
		"plot_x_min?", &plotMin,
		"plot_x_max?", &plotMax,
		"sample_count?", &samples,
	)
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, pairs...); err != nil {
		return req, err
	}

	var err error
	floats := []struct {
		name string
		v    starlark.Value
		dst  **float64
	}{
		{"tolerance", tol, &req.Tolerance},
		{"a", a, &req.A},
		{"b", bb, &req.B},
		{"x0", x0, &req.X0},
		{"x1", x1, &req.X1},
		{"plot_x_min", plotMin, &req.PlotXMin},
		{"plot_x_max", plotMax, &req.PlotXMax},
	}
	for _, f := range floats {
		if *f.dst, err = optFloat(f.name, f.v); err != nil {
			return req, err
		}
	}
	if req.MaxIterations, err = optInt("max_iterations", maxIter); err != nil {
		return req, err
	}
	if req.SampleCount, err = optInt("sample_count", samples); err != nil {
		return req, err
	}
	return req, nil
}

// rejection describes a request refused by validation or policy. Scripts
// see it as a failed result rather than an exception.
func rejection(err error) (starlark.Value, error) {
	if engine.IsInternal(err) || engine.ClassOf(err) == "" {
		return nil, err
	}
	return toStarlarkValue(map[string]interface{}{
		"success":  false,
		"rejected": true,
		"class":    string(engine.ClassOf(err)),
		"code":     engine.CodeOf(err),
		"error":    engine.Reason(err),
	})
}

func (r *Runner) solveBuiltin(res *Result) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		req, err := unpackRequest(b, args, kwargs, true)
		if err != nil {
			return nil, err
		}

		res.Solves++
		env, err := r.engine.Solve(threadContext(thread), req)
		if err != nil {
			return rejection(err)
		}
		return toStarlarkJSON(env)
	}
}

func (r *Runner) compareBuiltin(res *Result) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		req, err := unpackRequest(b, args, kwargs, false)
		if err != nil {
			return nil, err
		}

		res.Solves++
		cmp, err := r.engine.Compare(threadContext(thread), req)
		if err != nil {
			return rejection(err)
		}
		return toStarlarkJSON(cmp.Methods)
	}
}

func functionsBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	return toStarlarkJSON(functions.All())
}

func methodsBuiltin(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if err := starlark.UnpackArgs(b.Name(), args, kwargs); err != nil {
		return nil, err
	}
	names := make([]string, 0, 3)
	for _, m := range solver.Methods() {
		names = append(names, string(m))
	}
	v, err := toStarlarkValue(names)
	if err != nil {
		return nil, fmt.Errorf("methods: %w", err)
	}
	return v, nil
}
