package engine

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/openfroyo/rootfind/pkg/functions"
	"github.com/openfroyo/rootfind/pkg/solver"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns the first validator failure into a configuration
// error that names the field in its JSON spelling.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return NewConfigurationError("invalid request", err)
	}

	fe := verrs[0]
	field := fe.Field()
	switch {
	case field == "method" && fe.Tag() == "oneof":
		return NewConfigurationError(fmt.Sprintf("unknown method %q", fe.Value()), solver.ErrUnknownMethod).
			WithCode(ErrCodeUnknownMethod).WithField(field)
	case field == "functionType" && fe.Tag() == "oneof":
		return NewConfigurationError(fmt.Sprintf("unknown function %q", fe.Value()), functions.ErrUnknownFunction).
			WithCode(ErrCodeUnknownFunction).WithField(field)
	case fe.Tag() == "required":
		return NewConfigurationError(field+" is required", nil).WithField(field)
	case fe.Tag() == "gt":
		return NewConfigurationError(field+" must be greater than "+fe.Param(), nil).WithField(field)
	default:
		return NewConfigurationError(fmt.Sprintf("%s failed %s validation", field, fe.Tag()), nil).WithField(field)
	}
}

// prepare validates req and applies defaults. Every error it returns is a
// configuration error.
func (e *Engine) prepare(req SolveRequest) (*resolved, error) {
	if err := e.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	method, err := solver.ParseMethod(req.Method)
	if err != nil {
		return nil, NewConfigurationError("unknown method", err).WithCode(ErrCodeUnknownMethod).WithField("method")
	}
	fn, err := functions.Lookup(req.FunctionType)
	if err != nil {
		return nil, NewConfigurationError("unknown function", err).WithCode(ErrCodeUnknownFunction).WithField("functionType")
	}

	d := fn.Defaults
	r := req
	fill(&r.A, d.A)
	fill(&r.B, d.B)
	fill(&r.X0, d.X0)
	fill(&r.X1, d.X1)
	fill(&r.PlotXMin, d.PlotXMin)
	fill(&r.PlotXMax, d.PlotXMax)
	fill(&r.Tolerance, e.defaults.Tolerance)
	fill(&r.MaxIterations, e.defaults.MaxIterations)
	fill(&r.SampleCount, e.defaults.SampleCount)

	for _, f := range []struct {
		name string
		v    float64
	}{
		{"tolerance", *r.Tolerance},
		{"a", *r.A}, {"b", *r.B},
		{"x0", *r.X0}, {"x1", *r.X1},
		{"plotXMin", *r.PlotXMin}, {"plotXMax", *r.PlotXMax},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return nil, NewConfigurationError(f.name+" must be a finite number", nil).WithField(f.name)
		}
	}

	if *r.PlotXMin >= *r.PlotXMax {
		return nil, NewConfigurationError("plotXMin must be less than plotXMax", nil).WithField("plotXMin")
	}

	s, err := solver.New(method, solver.Seeds{A: *r.A, B: *r.B, X0: *r.X0, X1: *r.X1})
	if err != nil {
		return nil, NewInternalError("failed to build solver", err)
	}

	return &resolved{
		req:    r,
		method: method,
		fn:     fn,
		solver: s,
		opts: solver.Options{
			Tolerance:     *r.Tolerance,
			MaxIterations: *r.MaxIterations,
		},
		plotMin: *r.PlotXMin,
		plotMax: *r.PlotXMax,
		samples: *r.SampleCount,
	}, nil
}

func fill[T any](p **T, def T) {
	if *p == nil {
		v := def
		*p = &v
	}
}
