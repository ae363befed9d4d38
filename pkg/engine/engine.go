package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/openfroyo/rootfind/pkg/functions"
	"github.com/openfroyo/rootfind/pkg/solver"
	"github.com/openfroyo/rootfind/pkg/stores"
	"github.com/openfroyo/rootfind/pkg/telemetry"
)

// Options wire the engine's collaborators. Every field is optional.
type Options struct {
	Telemetry *telemetry.Telemetry
	Admitter  Admitter
	History   History
	Defaults  Defaults
}

// Engine validates, admits, dispatches and records solves. It is safe for
// concurrent use.
type Engine struct {
	tel      *telemetry.Telemetry
	log      *telemetry.Logger
	admitter Admitter
	history  History
	defaults Defaults
	validate *validator.Validate
}

// New creates an engine. Zero-valued defaults fall back to DefaultDefaults.
func New(opts Options) *Engine {
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.Nop()
	}

	d := opts.Defaults
	base := DefaultDefaults()
	if d.Tolerance <= 0 {
		d.Tolerance = base.Tolerance
	}
	if d.MaxIterations <= 0 {
		d.MaxIterations = base.MaxIterations
	}
	if d.SampleCount <= 0 {
		d.SampleCount = base.SampleCount
	}

	return &Engine{
		tel:      tel,
		log:      tel.Logger.NewComponentLogger("engine"),
		admitter: opts.Admitter,
		history:  opts.History,
		defaults: d,
		validate: newValidator(),
	}
}

// Solve runs one request through validation, admission, the solver and
// the plot sampler. A returned error is a configuration, policy or internal
// error; mathematical failures come back as an envelope with Success false.
func (e *Engine) Solve(ctx context.Context, req SolveRequest) (*Envelope, error) {
	r, err := e.prepare(req)
	if err != nil {
		e.reject(req, err)
		return nil, err
	}

	notices, err := e.admit(ctx, r.policyInput(), string(r.method), string(r.fn.ID))
	if err != nil {
		e.reject(req, err)
		return nil, err
	}

	env := e.execute(ctx, r)
	env.Notices = notices
	return env, nil
}

// Methods returns display metadata for every solver method.
func (e *Engine) Methods() []solver.MethodInfo {
	return solver.AllInfo()
}

// Functions returns the registered functions in enumeration order.
func (e *Engine) Functions() []*functions.Spec {
	return functions.All()
}

// Sample evaluates a registered function over a domain. Absent bounds and
// count come from the function defaults and the engine defaults. The domain
// and count pass the same admission policies as a solve's plot.
func (e *Engine) Sample(ctx context.Context, function string, xMin, xMax *float64, count int) ([]solver.PlotPoint, error) {
	req := SolveRequest{FunctionType: function}

	fn, err := functions.Lookup(function)
	if err != nil {
		err = NewConfigurationError("unknown function", err).WithCode(ErrCodeUnknownFunction).WithField("functionType")
		e.reject(req, err)
		return nil, err
	}
	fill(&xMin, fn.Defaults.PlotXMin)
	fill(&xMax, fn.Defaults.PlotXMax)
	if math.IsNaN(*xMin) || math.IsInf(*xMin, 0) || math.IsNaN(*xMax) || math.IsInf(*xMax, 0) {
		err := NewConfigurationError("plot bounds must be finite numbers", nil).WithField("plotXMin")
		e.reject(req, err)
		return nil, err
	}
	if *xMin >= *xMax {
		err := NewConfigurationError("plotXMin must be less than plotXMax", nil).WithField("plotXMin")
		e.reject(req, err)
		return nil, err
	}
	if count <= 0 {
		count = e.defaults.SampleCount
	}

	input := map[string]interface{}{
		"functionType": string(fn.ID),
		"plotXMin":     *xMin,
		"plotXMax":     *xMax,
		"sampleCount":  count,
	}
	if _, err := e.admit(ctx, input, "", string(fn.ID)); err != nil {
		e.reject(req, err)
		return nil, err
	}

	points := solver.Collect(solver.Sample(fn, *xMin, *xMax, count))
	e.tel.Metrics.RecordPlotDropped(function, count+1-len(points))
	return points, nil
}

// admit runs input through the admission policies and returns the warnings.
// method is empty for requests that do not name one.
func (e *Engine) admit(ctx context.Context, input map[string]interface{}, method, function string) ([]string, error) {
	if e.admitter == nil {
		return nil, nil
	}

	verdict, err := e.admitter.Admit(ctx, input)
	if err != nil {
		return nil, NewInternalError("failed to evaluate admission policy", err)
	}

	var notices, denials []string
	for _, v := range verdict.Violations {
		e.tel.Metrics.RecordPolicyViolation(v.Policy, v.Severity)
		_ = e.tel.Events.PublishPolicyViolation(v.Policy, v.Severity, v.Message)

		if v.Severity == SeverityError {
			denials = append(denials, v.Message)
			continue
		}
		notices = append(notices, v.Message)
		e.log.Zerolog().Warn().
			Str("policy", v.Policy).
			Str("method", method).
			Str("function", function).
			Msg(v.Message)
	}

	if !verdict.Allowed || len(denials) > 0 {
		var cause error
		if len(denials) > 0 {
			cause = errors.New(strings.Join(denials, "; "))
		}
		perr := NewPolicyError("request rejected by admission policy", cause)
		for _, v := range verdict.Violations {
			if v.Severity == SeverityError {
				perr = perr.WithDetail(v.Policy, v.Message)
			}
		}
		return nil, perr
	}
	return notices, nil
}

func (e *Engine) execute(ctx context.Context, r *resolved) *Envelope {
	ctx, track := e.tel.TrackSolve(ctx, string(r.method), string(r.fn.ID))

	res := r.solver.Solve(r.fn, r.opts)

	env := &Envelope{
		Success:      res.Success,
		Method:       string(r.method),
		FunctionType: string(r.fn.ID),
	}

	outcome := telemetry.OutcomeFailed
	if res.Success {
		outcome = telemetry.OutcomeConverged
		if res.CapReached() {
			outcome = telemetry.OutcomeCapReached
		}

		root, froot := res.Root, res.FRoot
		env.Root = &root
		env.FRoot = &froot
		env.Iterations = res.Iterations
		env.Errors = res.Errors
		env.IterationsData = res.Steps
		env.Warning = res.Warning

		env.FunctionPoints = solver.Collect(solver.Sample(r.fn, r.plotMin, r.plotMax, r.samples))
		e.tel.Metrics.RecordPlotDropped(string(r.fn.ID), r.samples+1-len(env.FunctionPoints))
	} else {
		env.Error = failureMessage(res.Err)
	}

	elapsed := track.Finish(outcome, res.Iterations, res.Err)

	env.RunID = e.record(ctx, r, res, elapsed)

	reason := ""
	if res.Err != nil {
		reason = env.Error
	}
	_ = e.tel.Events.PublishSolve(env.RunID, env.Method, env.FunctionType, res.Success, res.Iterations, reason)

	return env
}

// record persists the run and returns its id, or "" when no history is
// configured or the write failed. A failed write never fails the solve.
func (e *Engine) record(ctx context.Context, r *resolved, res *solver.Result, elapsed time.Duration) string {
	if e.history == nil {
		return ""
	}

	reqJSON, err := json.Marshal(r.req)
	if err != nil {
		e.log.WithError(err).Error("failed to encode request for history")
		e.tel.Metrics.RecordHistoryWrite("error")
		return ""
	}

	run := &stores.Run{
		ID:         uuid.New().String(),
		Method:     string(r.method),
		Function:   string(r.fn.ID),
		Success:    res.Success,
		Iterations: res.Iterations,
		Request:    string(reqJSON),
		Duration:   elapsed,
		CreatedAt:  time.Now().UTC(),
	}
	if res.Success {
		root, froot := res.Root, res.FRoot
		run.Root = &root
		run.FRoot = &froot
	}
	if res.Warning != "" {
		w := res.Warning
		run.Warning = &w
	}
	if res.Err != nil {
		msg := failureMessage(res.Err)
		run.Error = &msg
	}

	iterations := make([]stores.Iteration, 0, len(res.Steps))
	for _, step := range res.Steps {
		data, err := json.Marshal(step)
		if err != nil {
			e.log.WithError(err).Error("failed to encode iteration record")
			e.tel.Metrics.RecordHistoryWrite("error")
			return ""
		}
		iterations = append(iterations, stores.Iteration{
			RunID:     run.ID,
			Iteration: step.StepIndex(),
			Error:     step.StepError(),
			Record:    string(data),
		})
	}

	if err := e.history.CreateRun(ctx, run, iterations); err != nil {
		e.log.WithError(err).WithSolve(run.Method, run.Function).Error("failed to record run")
		e.tel.Metrics.RecordHistoryWrite("error")
		return ""
	}

	e.tel.Metrics.RecordHistoryWrite("ok")
	_ = e.tel.Events.PublishHistoryRecorded(run.ID, run.Method, run.Function)
	return run.ID
}

// reject records a request refused before reaching a solver.
func (e *Engine) reject(req SolveRequest, err error) {
	class, code := ClassOf(err), CodeOf(err)

	e.tel.Metrics.RecordRejected(req.Method, req.FunctionType)
	e.tel.Metrics.RecordError(string(class), code)
	_ = e.tel.Events.PublishRejected(req.Method, req.FunctionType, string(class), Reason(err))

	e.log.Zerolog().Info().
		Str("method", req.Method).
		Str("function", req.FunctionType).
		Str("class", string(class)).
		Str("code", code).
		Err(err).
		Msg("request rejected")
}

// failureMessage renders a solver failure for the envelope: the sentinel's
// context without the sentinel prefix.
func failureMessage(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		solver.ErrInvalidBracket,
		solver.ErrSingularDerivative,
		solver.ErrDegenerateSecant,
		solver.ErrNonFinite,
	} {
		if errors.Is(err, sentinel) {
			msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
			break
		}
	}
	return msg
}

// Reason renders err for a response body: the message and the underlying
// cause, without the class prefix.
func Reason(err error) string {
	var ee *EngineError
	if !errors.As(err, &ee) {
		return err.Error()
	}
	msg := ee.Message
	if ee.Err != nil {
		msg = fmt.Sprintf("%s: %s", msg, ee.Err.Error())
	}
	return msg
}
