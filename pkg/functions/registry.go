package functions

import (
	"errors"
	"fmt"
	"math"
)

// ID identifies one of the supported test functions.
type ID string

const (
	Polynomial    ID = "polynomial"
	Exponential   ID = "exponential"
	Trigonometric ID = "trigonometric"
)

// ErrUnknownFunction is returned when an identifier is not in the registry.
var ErrUnknownFunction = errors.New("unknown function")

// Spec describes a registered function. The evaluator and derivative are fixed
// at process start and never change.
type Spec struct {
	ID          ID       `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Formula     string   `json:"formula" yaml:"formula"`
	Derivative  string   `json:"derivative" yaml:"derivative"`
	Description string   `json:"description" yaml:"description"`
	ApproxRoot  float64  `json:"approxRoot" yaml:"approxRoot"`
	Defaults    Defaults `json:"defaults" yaml:"defaults"`

	eval  func(float64) float64
	deriv func(float64) float64
}

// Eval returns f(x).
func (s *Spec) Eval(x float64) float64 {
	return s.eval(x)
}

// Deriv returns f'(x).
func (s *Spec) Deriv(x float64) float64 {
	return s.deriv(x)
}

// String returns the function identifier.
func (s *Spec) String() string {
	return string(s.ID)
}

var registry = []*Spec{
	{
		ID:          Polynomial,
		Name:        "Polynomial",
		Formula:     "f(x) = x³ - x - 2",
		Derivative:  "f'(x) = 3x² - 1",
		Description: "Classic cubic polynomial",
		ApproxRoot:  1.5214,
		Defaults: Defaults{
			A: 1, B: 2, X0: 1.5, X1: 2,
			PlotXMin: 0, PlotXMax: 3,
		},
		eval:  func(x float64) float64 { return x*x*x - x - 2 },
		deriv: func(x float64) float64 { return 3*x*x - 1 },
	},
	{
		ID:          Exponential,
		Name:        "Exponential",
		Formula:     "f(x) = eˣ - 3x",
		Derivative:  "f'(x) = eˣ - 3",
		Description: "Exponential function",
		ApproxRoot:  1.5121,
		Defaults: Defaults{
			A: 1, B: 2, X0: 1.5, X1: 2,
			PlotXMin: 0, PlotXMax: 3,
		},
		eval:  func(x float64) float64 { return math.Exp(x) - 3*x },
		deriv: func(x float64) float64 { return math.Exp(x) - 3 },
	},
	{
		ID:          Trigonometric,
		Name:        "Trigonometric",
		Formula:     "f(x) = cos(x) - x",
		Derivative:  "f'(x) = -sin(x) - 1",
		Description: "Transcendental equation",
		ApproxRoot:  0.7391,
		Defaults: Defaults{
			A: 0, B: 1, X0: 0.5, X1: 1,
			PlotXMin: -1, PlotXMax: 2,
		},
		eval:  func(x float64) float64 { return math.Cos(x) - x },
		deriv: func(x float64) float64 { return -math.Sin(x) - 1 },
	},
}

// Lookup returns the function registered under id.
func Lookup(id string) (*Spec, error) {
	for _, s := range registry {
		if string(s.ID) == id {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFunction, id)
}

// MustLookup is like Lookup but panics on an unknown identifier.
func MustLookup(id ID) *Spec {
	s, err := Lookup(string(id))
	if err != nil {
		panic(err)
	}
	return s
}

// All returns every registered spec in enumeration order.
func All() []*Spec {
	out := make([]*Spec, len(registry))
	copy(out, registry)
	return out
}

// IDs returns the registered identifiers in enumeration order.
func IDs() []ID {
	ids := make([]ID, len(registry))
	for i, s := range registry {
		ids[i] = s.ID
	}
	return ids
}

// Known reports whether id names a registered function.
func Known(id string) bool {
	_, err := Lookup(id)
	return err == nil
}
