package solver

import (
	"iter"
	"math"
	"slices"
)

// DefaultSampleCount is the number of intervals the plot domain is split into.
const DefaultSampleCount = 200

// PlotPoint is one sample of the function for visualization.
type PlotPoint struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Sample returns count+1 evenly spaced samples of f over [xMin, xMax],
// inclusive of both ends. Points whose value is not finite, or whose
// evaluation panics, are dropped individually. The sequence is lazy and can
// be ranged over more than once.
func Sample(f Func, xMin, xMax float64, count int) iter.Seq[PlotPoint] {
	if count <= 0 {
		count = DefaultSampleCount
	}
	span := xMax - xMin

	return func(yield func(PlotPoint) bool) {
		for i := 0; i <= count; i++ {
			x := xMin + span*float64(i)/float64(count)
			y, ok := safeEval(f, x)
			if !ok {
				continue
			}
			if !yield(PlotPoint{X: x, Y: y}) {
				return
			}
		}
	}
}

// Collect materializes a sample sequence.
func Collect(seq iter.Seq[PlotPoint]) []PlotPoint {
	return slices.Collect(seq)
}

func safeEval(f Func, x float64) (y float64, ok bool) {
	defer func() {
		if recover() != nil {
			y, ok = 0, false
		}
	}()
	y = f.Eval(x)
	return y, finite(y)
}

func finite(vals ...float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
