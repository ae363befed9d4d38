package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/openfroyo/rootfind/pkg/engine"
	"github.com/openfroyo/rootfind/pkg/telemetry"
)

// DefaultTimeout bounds a script run when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// ErrTimeout is returned when a script exceeds its time budget.
var ErrTimeout = errors.New("scenario timed out")

// Engine is the subset of the solve engine exposed to scripts.
type Engine interface {
	Solve(ctx context.Context, req engine.SolveRequest) (*engine.Envelope, error)
	Compare(ctx context.Context, req engine.SolveRequest) (*engine.Comparison, error)
}

// Result is the outcome of one script run.
type Result struct {
	Name string `json:"name"`

	// Output holds the script's public globals converted to Go values.
	Output map[string]interface{} `json:"output,omitempty"`

	// Printed collects print() calls in order.
	Printed []string `json:"printed,omitempty"`

	// Solves counts solve and compare calls made by the script.
	Solves int `json:"solves"`

	ExecutionTime time.Duration `json:"execution_time"`
	Error         string        `json:"error,omitempty"`
}

// Runner executes Starlark scenario scripts against an engine.
type Runner struct {
	engine   Engine
	timeout  time.Duration
	maxSteps uint64
	logger   *telemetry.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithTimeout sets the wall-clock budget per run.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithMaxSteps caps the number of Starlark execution steps. Zero means
// unlimited.
func WithMaxSteps(n uint64) Option {
	return func(r *Runner) { r.maxSteps = n }
}

// WithLogger sets the logger used for print output and run summaries.
func WithLogger(l *telemetry.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// NewRunner creates a scenario runner bound to eng.
func NewRunner(eng Engine, opts ...Option) *Runner {
	r := &Runner{
		engine:  eng,
		timeout: DefaultTimeout,
		logger:  telemetry.NopLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	return r
}

// RunFile reads and runs a script from disk.
func (r *Runner) RunFile(ctx context.Context, path string, input map[string]interface{}) (*Result, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return r.Run(ctx, filepath.Base(path), string(src), input)
}

// Run executes script. Input values are predeclared as globals. The
// returned Result is populated even when err is non-nil.
func (r *Runner) Run(ctx context.Context, name, script string, input map[string]interface{}) (*Result, error) {
	startTime := time.Now()
	res := &Result{Name: name}

	op := telemetry.StartOperation(ctx, "scenario.run", attribute.String("scenario", name))
	ctx, cancel := context.WithTimeout(op.Ctx, r.timeout)
	defer cancel()

	err := r.exec(ctx, name, script, input, res)
	res.ExecutionTime = time.Since(startTime)
	if err != nil {
		res.Error = err.Error()
	}
	op.End(err)

	ev := r.logger.Zerolog().Debug()
	if err != nil {
		ev = r.logger.Zerolog().Warn().Err(err)
	}
	ev.Str("scenario", name).
		Int("solves", res.Solves).
		Dur("elapsed", res.ExecutionTime).
		Msg("scenario finished")

	return res, err
}

func (r *Runner) exec(ctx context.Context, name, script string, input map[string]interface{}, res *Result) error {
	var mu sync.Mutex
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			mu.Lock()
			res.Printed = append(res.Printed, msg)
			mu.Unlock()
			r.logger.Zerolog().Info().Str("scenario", name).Msg(msg)
		},
	}
	thread.SetLocal(contextKey, ctx)
	if r.maxSteps > 0 {
		thread.SetMaxExecutionSteps(r.maxSteps)
	}

	stop := context.AfterFunc(ctx, func() {
		thread.Cancel(ctx.Err().Error())
	})
	defer stop()

	predeclared := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}
	for k, v := range r.builtins(res) {
		predeclared[k] = v
	}
	for key, val := range input {
		starlarkVal, err := toStarlarkValue(val)
		if err != nil {
			return fmt.Errorf("failed to convert input %s: %w", key, err)
		}
		predeclared[key] = starlarkVal
	}

	globals, err := starlark.ExecFile(thread, name, script, predeclared)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %v", ErrTimeout, r.timeout)
		}
		return fmt.Errorf("starlark execution failed: %w", err)
	}

	names := make([]string, 0, len(globals))
	for n := range globals {
		names = append(names, n)
	}
	sort.Strings(names)

	res.Output = make(map[string]interface{})
	for _, n := range names {
		if n[0] == '_' {
			continue
		}
		val := globals[n]
		if _, ok := val.(starlark.Callable); ok {
			continue
		}
		goVal, err := fromStarlarkValue(val)
		if err != nil {
			return fmt.Errorf("failed to convert output %s: %w", n, err)
		}
		res.Output[n] = goVal
	}

	return nil
}
