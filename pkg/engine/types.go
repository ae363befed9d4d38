package engine

import (
	"github.com/openfroyo/rootfind/pkg/functions"
	"github.com/openfroyo/rootfind/pkg/solver"
)

// SolveRequest is one call into the orchestrator. Pointer fields are
// optional: an absent value is filled from the engine defaults or from the
// function's defaults table, while an explicit value is validated as given.
type SolveRequest struct {
	Method       string `json:"method" yaml:"method" validate:"required,oneof=bisection newton secant"`
	FunctionType string `json:"functionType" yaml:"functionType" validate:"required,oneof=polynomial exponential trigonometric"`

	Tolerance     *float64 `json:"tolerance,omitempty" yaml:"tolerance,omitempty" validate:"omitempty,gt=0"`
	MaxIterations *int     `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty" validate:"omitempty,gt=0"`

	A  *float64 `json:"a,omitempty" yaml:"a,omitempty"`
	B  *float64 `json:"b,omitempty" yaml:"b,omitempty"`
	X0 *float64 `json:"x0,omitempty" yaml:"x0,omitempty"`
	X1 *float64 `json:"x1,omitempty" yaml:"x1,omitempty"`

	PlotXMin    *float64 `json:"plotXMin,omitempty" yaml:"plotXMin,omitempty"`
	PlotXMax    *float64 `json:"plotXMax,omitempty" yaml:"plotXMax,omitempty"`
	SampleCount *int     `json:"sampleCount,omitempty" yaml:"sampleCount,omitempty" validate:"omitempty,gt=0"`
}

// Float returns a pointer to v, for building requests in code.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v, for building requests in code.
func Int(v int) *int { return &v }

// Envelope is the uniform response of a solve. Mathematical failures are
// reported with Success false and Error set; they are not Go errors.
type Envelope struct {
	Success bool `json:"success" yaml:"success"`

	Root           *float64           `json:"root,omitempty" yaml:"root,omitempty"`
	Iterations     int                `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	FRoot          *float64           `json:"f_root,omitempty" yaml:"f_root,omitempty"`
	Errors         []float64          `json:"errors,omitempty" yaml:"errors,omitempty"`
	IterationsData []solver.Step      `json:"iterations_data,omitempty" yaml:"iterations_data,omitempty"`
	FunctionPoints []solver.PlotPoint `json:"functionPoints,omitempty" yaml:"functionPoints,omitempty"`

	Warning string `json:"warning,omitempty" yaml:"warning,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`

	// Notices carries warning-severity admission policy messages.
	Notices []string `json:"notices,omitempty" yaml:"notices,omitempty"`

	Method       string `json:"method" yaml:"method"`
	FunctionType string `json:"functionType" yaml:"functionType"`
	RunID        string `json:"run_id,omitempty" yaml:"run_id,omitempty"`
}

// Comparison holds one envelope per method for the same inputs.
type Comparison struct {
	FunctionType string               `json:"functionType" yaml:"functionType"`
	Methods      map[string]*Envelope `json:"methods" yaml:"methods"`
}

// Ordered returns the envelopes in method display order.
func (c *Comparison) Ordered() []*Envelope {
	out := make([]*Envelope, 0, len(c.Methods))
	for _, m := range solver.Methods() {
		if env, ok := c.Methods[string(m)]; ok {
			out = append(out, env)
		}
	}
	return out
}

// Defaults are the engine-wide values used when a request omits them.
type Defaults struct {
	Tolerance     float64
	MaxIterations int
	SampleCount   int
}

// DefaultDefaults returns the built-in engine defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		Tolerance:     1e-6,
		MaxIterations: 100,
		SampleCount:   solver.DefaultSampleCount,
	}
}

// resolved is a validated request with every default applied.
type resolved struct {
	req    SolveRequest
	method solver.Method
	fn     *functions.Spec
	solver solver.Solver
	opts   solver.Options

	plotMin float64
	plotMax float64
	samples int
}

// policyInput is the document admission policies see as input.
func (r *resolved) policyInput() map[string]interface{} {
	return map[string]interface{}{
		"method":        string(r.method),
		"functionType":  string(r.fn.ID),
		"tolerance":     r.opts.Tolerance,
		"maxIterations": r.opts.MaxIterations,
		"a":             *r.req.A,
		"b":             *r.req.B,
		"x0":            *r.req.X0,
		"x1":            *r.req.X1,
		"plotXMin":      r.plotMin,
		"plotXMax":      r.plotMax,
		"sampleCount":   r.samples,
	}
}
