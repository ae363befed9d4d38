package stores

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("not found")

// Run is one persisted solve
type Run struct {
	ID         string        `json:"id" yaml:"id"`
	Method     string        `json:"method" yaml:"method"`
	Function   string        `json:"function" yaml:"function"`
	Success    bool          `json:"success" yaml:"success"`
	Root       *float64      `json:"root,omitempty" yaml:"root,omitempty"`
	FRoot      *float64      `json:"f_root,omitempty" yaml:"f_root,omitempty"`
	Iterations int           `json:"iterations" yaml:"iterations"`
	Warning    *string       `json:"warning,omitempty" yaml:"warning,omitempty"`
	Error      *string       `json:"error,omitempty" yaml:"error,omitempty"`
	Request    string        `json:"request" yaml:"request"` // JSON blob
	Duration   time.Duration `json:"duration" yaml:"duration"`
	CreatedAt  time.Time     `json:"created_at" yaml:"created_at"`
}

// Iteration is one row of a run's trace
type Iteration struct {
	RunID     string  `json:"run_id" yaml:"run_id"`
	Iteration int     `json:"iteration" yaml:"iteration"`
	Error     float64 `json:"error" yaml:"error"`
	Record    string  `json:"record" yaml:"record"` // JSON blob
}

// RunFilter narrows ListRuns. Zero values match everything.
type RunFilter struct {
	Method   string
	Function string
	Success  *bool
	Limit    int
	Offset   int
}

// MethodStats aggregates runs per method and function
type MethodStats struct {
	Method        string  `json:"method" yaml:"method"`
	Function      string  `json:"function" yaml:"function"`
	Runs          int     `json:"runs" yaml:"runs"`
	Successes     int     `json:"successes" yaml:"successes"`
	AvgIterations float64 `json:"avg_iterations" yaml:"avg_iterations"`
}
