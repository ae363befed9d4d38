package policy

import (
	"time"

	"github.com/openfroyo/rootfind/pkg/engine"
)

// Severity represents the severity level of a policy violation.
type Severity string

const (
	// SeverityWarning is surfaced to the caller but does not block a solve.
	SeverityWarning Severity = "warning"

	// SeverityError rejects the request.
	SeverityError Severity = "error"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityWarning || s == SeverityError
}

// Policy represents an admission rule with its Rego code.
type Policy struct {
	// Name is the unique name of the policy.
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description.
	Description string `json:"description" yaml:"description"`

	// Rego contains the policy source. It must define a deny set.
	Rego string `json:"rego" yaml:"rego"`

	// Severity is used for violations that do not carry their own.
	Severity Severity `json:"severity" yaml:"severity"`

	// Enabled indicates if the policy is evaluated.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Builtin marks policies compiled into the binary.
	Builtin bool `json:"builtin" yaml:"-"`

	// Source is the file the policy was loaded from.
	Source string `json:"source,omitempty" yaml:"-"`

	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`

	LoadedAt time.Time `json:"loaded_at" yaml:"-"`
}

// Limits is the data document the built-in policies read as
// data.rootfind.limits.
type Limits struct {
	MaxIterations  int     `json:"maxIterations" yaml:"maxIterations"`
	MaxSampleCount int     `json:"maxSampleCount" yaml:"maxSampleCount"`
	MinTolerance   float64 `json:"minTolerance" yaml:"minTolerance"`
	MaxPlotSpan    float64 `json:"maxPlotSpan" yaml:"maxPlotSpan"`
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxIterations:  10000,
		MaxSampleCount: 5000,
		MinTolerance:   1e-12,
		MaxPlotSpan:    1000,
	}
}

// Result is the outcome of evaluating every enabled policy.
type Result struct {
	// Allowed is false when any violation has error severity.
	Allowed bool `json:"allowed"`

	Violations []engine.Violation `json:"violations,omitempty"`

	// EvaluatedPolicies lists the names of policies that were evaluated.
	EvaluatedPolicies []string `json:"evaluated_policies"`

	Duration time.Duration `json:"duration"`
}

// Errors returns the error-severity violations.
func (r *Result) Errors() []engine.Violation {
	var out []engine.Violation
	for _, v := range r.Violations {
		if v.Severity == string(SeverityError) {
			out = append(out, v)
		}
	}
	return out
}
