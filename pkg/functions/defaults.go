package functions

// Defaults holds the recommended seeds and plot domain for a function. It is
// configuration data consulted when a caller omits seeds or switches function.
type Defaults struct {
	A        float64 `json:"a" yaml:"a"`
	B        float64 `json:"b" yaml:"b"`
	X0       float64 `json:"x0" yaml:"x0"`
	X1       float64 `json:"x1" yaml:"x1"`
	PlotXMin float64 `json:"plotXMin" yaml:"plotXMin"`
	PlotXMax float64 `json:"plotXMax" yaml:"plotXMax"`
}

// DefaultsFor returns the defaults row for id.
func DefaultsFor(id string) (Defaults, error) {
	s, err := Lookup(id)
	if err != nil {
		return Defaults{}, err
	}
	return s.Defaults, nil
}
