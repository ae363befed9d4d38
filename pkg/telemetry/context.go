package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Telemetry bundles logging, tracing, metrics and events.
type Telemetry struct {
	Logger  *Logger
	Tracer  *Tracer
	Metrics *Metrics
	Events  *EventPublisher
	Config  *Config
}

type telemetryContextKey struct{}

// NewTelemetry creates a new telemetry instance from configuration.
func NewTelemetry(cfg *Config) (*Telemetry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	tracer, err := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)
	if err != nil {
		return nil, err
	}

	metrics, err := NewMetrics(cfg.Metrics)
	if err != nil {
		return nil, err
	}

	events, err := NewEventPublisher(cfg.Events)
	if err != nil {
		return nil, err
	}

	return &Telemetry{
		Logger:  logger,
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}, nil
}

// Nop returns telemetry that logs nowhere, does not trace, and publishes
// events synchronously. Metrics stay enabled on a private registry so callers
// can assert on them.
func Nop() *Telemetry {
	cfg := DefaultConfig()
	cfg.Logging.Output = "discard"
	cfg.Events.EnableAsync = false

	metrics, _ := NewMetrics(cfg.Metrics)
	events, _ := NewEventPublisher(cfg.Events)
	tracer, _ := NewTracer(cfg.Tracing, cfg.ServiceName, cfg.ServiceVersion, cfg.Environment)

	return &Telemetry{
		Logger:  NopLogger(),
		Tracer:  tracer,
		Metrics: metrics,
		Events:  events,
		Config:  cfg,
	}
}

// WithContext adds the telemetry instance and its logger to the context.
func (t *Telemetry) WithContext(ctx context.Context) context.Context {
	ctx = context.WithValue(ctx, telemetryContextKey{}, t)
	return t.Logger.WithContext(ctx)
}

// FromTelemetryContext retrieves the telemetry instance from the context.
func FromTelemetryContext(ctx context.Context) *Telemetry {
	if t, ok := ctx.Value(telemetryContextKey{}).(*Telemetry); ok {
		return t
	}
	return nil
}

// Shutdown stops events first, then the tracer.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.Events.Shutdown(ctx); err != nil {
		return err
	}
	return t.Tracer.Shutdown(ctx)
}

// InstrumentedContext carries the span, logger and timer of an operation.
type InstrumentedContext struct {
	Ctx    context.Context
	Span   trace.Span
	Logger *Logger
	Timer  *Timer
}

// StartOperation begins an instrumented operation using the telemetry found
// in ctx. Without telemetry only the logger and timer are populated.
func StartOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) *InstrumentedContext {
	tel := FromTelemetryContext(ctx)
	if tel == nil {
		return &InstrumentedContext{
			Ctx:    ctx,
			Logger: FromContext(ctx),
			Timer:  NewTimer(),
		}
	}

	spanCtx, span := tel.Tracer.StartSpan(ctx, operation, attrs...)
	logger := tel.Logger.WithField("operation", operation)
	if sc := span.SpanContext(); sc.IsValid() {
		logger = logger.WithField("trace_id", sc.TraceID().String())
	}

	return &InstrumentedContext{
		Ctx:    logger.WithContext(spanCtx),
		Span:   span,
		Logger: logger,
		Timer:  NewTimer(),
	}
}

// End finishes the operation, recording success or failure on the span.
func (ic *InstrumentedContext) End(err error) {
	if ic.Span == nil {
		return
	}
	if err != nil {
		RecordError(ic.Span, err)
	} else {
		RecordSuccess(ic.Span)
	}
	ic.Span.End()
}

// SolveTracker instruments a single solver invocation.
type SolveTracker struct {
	Logger *Logger

	tel      *Telemetry
	span     trace.Span
	timer    *Timer
	method   string
	function string
}

// TrackSolve opens a solve span and marks the solve active.
func (t *Telemetry) TrackSolve(ctx context.Context, method, function string) (context.Context, *SolveTracker) {
	ctx, span := t.Tracer.StartSolveSpan(ctx, method, function)
	t.Metrics.SolveStarted()

	return ctx, &SolveTracker{
		Logger:   t.Logger.WithSolve(method, function),
		tel:      t,
		span:     span,
		timer:    NewTimer(),
		method:   method,
		function: function,
	}
}

// Finish closes the span and records the outcome. It returns the elapsed
// wall time.
func (st *SolveTracker) Finish(outcome string, iterations int, err error) time.Duration {
	elapsed := st.timer.Duration()

	st.span.SetAttributes(
		AttrOutcome.String(outcome),
		AttrIterations.Int(iterations),
	)
	if err != nil {
		RecordError(st.span, err)
	} else {
		RecordSuccess(st.span)
	}
	st.span.End()

	st.tel.Metrics.RecordSolve(st.method, st.function, outcome, iterations, elapsed)

	ev := st.Logger.Zerolog().Debug().
		Str("outcome", outcome).
		Int("iterations", iterations).
		Dur("elapsed", elapsed)
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Msg("solve finished")

	return elapsed
}
