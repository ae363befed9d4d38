package solver

// Step is one iteration record. Records are append-only and ordered by index.
type Step interface {
	StepIndex() int
	StepError() float64
}

// BisectionStep records one halving of the bracket.
type BisectionStep struct {
	Iteration int     `json:"iteration" yaml:"iteration"`
	A         float64 `json:"a" yaml:"a"`
	B         float64 `json:"b" yaml:"b"`
	C         float64 `json:"c" yaml:"c"`
	FC        float64 `json:"f_c" yaml:"f_c"`
	Error     float64 `json:"error" yaml:"error"`
}

func (s BisectionStep) StepIndex() int     { return s.Iteration }
func (s BisectionStep) StepError() float64 { return s.Error }

// NewtonStep records one tangent update.
type NewtonStep struct {
	Iteration int     `json:"iteration" yaml:"iteration"`
	X         float64 `json:"x" yaml:"x"`
	FX        float64 `json:"f_x" yaml:"f_x"`
	DFX       float64 `json:"df_x" yaml:"df_x"`
	XNew      float64 `json:"x_new" yaml:"x_new"`
	Error     float64 `json:"error" yaml:"error"`
}

func (s NewtonStep) StepIndex() int     { return s.Iteration }
func (s NewtonStep) StepError() float64 { return s.Error }

// SecantStep records one secant update.
type SecantStep struct {
	Iteration int     `json:"iteration" yaml:"iteration"`
	X0        float64 `json:"x0" yaml:"x0"`
	X1        float64 `json:"x1" yaml:"x1"`
	FX0       float64 `json:"f_x0" yaml:"f_x0"`
	FX1       float64 `json:"f_x1" yaml:"f_x1"`
	X2        float64 `json:"x2" yaml:"x2"`
	Error     float64 `json:"error" yaml:"error"`
}

func (s SecantStep) StepIndex() int     { return s.Iteration }
func (s SecantStep) StepError() float64 { return s.Error }
