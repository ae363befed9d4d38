package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/openfroyo/rootfind/pkg/engine"
	"github.com/openfroyo/rootfind/pkg/policy"
	"github.com/openfroyo/rootfind/pkg/solver"
	"github.com/openfroyo/rootfind/pkg/stores"
	"github.com/openfroyo/rootfind/pkg/telemetry"
)

type fakeHistory struct {
	mu    sync.Mutex
	runs  []*stores.Run
	iters map[string][]stores.Iteration
	err   error
}

func (h *fakeHistory) CreateRun(_ context.Context, run *stores.Run, iterations []stores.Iteration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	if h.iters == nil {
		h.iters = make(map[string][]stores.Iteration)
	}
	h.runs = append(h.runs, run)
	h.iters[run.ID] = iterations
	return nil
}

type fakeAdmitter struct {
	verdict *engine.Admission
	err     error
	inputs  []map[string]interface{}
	mu      sync.Mutex
}

func (a *fakeAdmitter) Admit(_ context.Context, input map[string]interface{}) (*engine.Admission, error) {
	a.mu.Lock()
	a.inputs = append(a.inputs, input)
	a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	return a.verdict, nil
}

func request(method, function string) engine.SolveRequest {
	return engine.SolveRequest{Method: method, FunctionType: function}
}

func TestSolve_DefaultsForEveryMethodAndFunction(t *testing.T) {
	eng := engine.New(engine.Options{})

	for _, m := range []string{"bisection", "newton", "secant"} {
		for _, f := range []string{"polynomial", "exponential", "trigonometric"} {
			env, err := eng.Solve(context.Background(), request(m, f))
			if err != nil {
				t.Fatalf("%s/%s: unexpected error: %v", m, f, err)
			}
			if !env.Success {
				t.Fatalf("%s/%s: expected success, got error %q", m, f, env.Error)
			}
			if env.Root == nil || env.FRoot == nil {
				t.Fatalf("%s/%s: expected root and f_root", m, f)
			}
			if len(env.FunctionPoints) != solver.DefaultSampleCount+1 {
				t.Errorf("%s/%s: expected %d plot points, got %d", m, f, solver.DefaultSampleCount+1, len(env.FunctionPoints))
			}
			if len(env.Errors) != env.Iterations || len(env.IterationsData) != env.Iterations {
				t.Errorf("%s/%s: trace length mismatch", m, f)
			}
			if env.Method != m || env.FunctionType != f {
				t.Errorf("expected envelope to echo %s/%s, got %s/%s", m, f, env.Method, env.FunctionType)
			}
		}
	}
}

func TestSolve_ConfigurationErrors(t *testing.T) {
	eng := engine.New(engine.Options{})

	tests := []struct {
		name  string
		req   engine.SolveRequest
		code  string
		field string
	}{
		{"unknown method", request("regula-falsi", "polynomial"), engine.ErrCodeUnknownMethod, "method"},
		{"missing method", request("", "polynomial"), engine.ErrCodeValidation, "method"},
		{"unknown function", request("newton", "quartic"), engine.ErrCodeUnknownFunction, "functionType"},
		{"zero tolerance", func() engine.SolveRequest {
			r := request("newton", "polynomial")
			r.Tolerance = engine.Float(0)
			return r
		}(), engine.ErrCodeValidation, "tolerance"},
		{"negative tolerance", func() engine.SolveRequest {
			r := request("newton", "polynomial")
			r.Tolerance = engine.Float(-1e-3)
			return r
		}(), engine.ErrCodeValidation, "tolerance"},
		{"infinite tolerance", func() engine.SolveRequest {
			r := request("newton", "polynomial")
			r.Tolerance = engine.Float(math.Inf(1))
			return r
		}(), engine.ErrCodeValidation, "tolerance"},
		{"zero cap", func() engine.SolveRequest {
			r := request("secant", "polynomial")
			r.MaxIterations = engine.Int(0)
			return r
		}(), engine.ErrCodeValidation, "maxIterations"},
		{"equal bracket", func() engine.SolveRequest {
			r := request("bisection", "polynomial")
			r.A, r.B = engine.Float(1), engine.Float(1)
			return r
		}(), engine.ErrCodeValidation, "b"},
		{"equal secant seeds", func() engine.SolveRequest {
			r := request("secant", "polynomial")
			r.X0, r.X1 = engine.Float(2), engine.Float(2)
			return r
		}(), engine.ErrCodeValidation, "x1"},
		{"inverted plot domain", func() engine.SolveRequest {
			r := request("newton", "polynomial")
			r.PlotXMin, r.PlotXMax = engine.Float(3), engine.Float(0)
			return r
		}(), engine.ErrCodeValidation, "plotXMin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := eng.Solve(context.Background(), tt.req)
			if env != nil {
				t.Fatalf("expected no envelope, got %+v", env)
			}
			if !engine.IsConfiguration(err) {
				t.Fatalf("expected configuration error, got %v", err)
			}
			var ee *engine.EngineError
			if !errors.As(err, &ee) {
				t.Fatalf("expected *EngineError, got %T", err)
			}
			if ee.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, ee.Code)
			}
			if ee.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ee.Field)
			}
		})
	}
}

func TestSolve_MathFailuresAreEnvelopes(t *testing.T) {
	eng := engine.New(engine.Options{})

	tests := []struct {
		name string
		req  engine.SolveRequest
		want string
	}{
		{"invalid bracket", func() engine.SolveRequest {
			r := request("bisection", "trigonometric")
			r.A, r.B = engine.Float(1), engine.Float(2)
			return r
		}(), "opposite signs"},
		{"singular derivative", func() engine.SolveRequest {
			r := request("newton", "trigonometric")
			r.X0 = engine.Float(-math.Pi / 2)
			return r
		}(), "derivative too close to zero"},
		{"degenerate secant", func() engine.SolveRequest {
			r := request("secant", "polynomial")
			r.X0, r.X1 = engine.Float(-1), engine.Float(1)
			return r
		}(), "function values too close"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := eng.Solve(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if env.Success {
				t.Fatal("expected success=false")
			}
			if !strings.Contains(env.Error, tt.want) {
				t.Errorf("expected error containing %q, got %q", tt.want, env.Error)
			}
			if env.Root != nil || env.FunctionPoints != nil || env.IterationsData != nil {
				t.Error("expected no root, plot or trace on failure")
			}
		})
	}
}

func TestSolve_CapReached(t *testing.T) {
	eng := engine.New(engine.Options{})

	req := request("bisection", "polynomial")
	req.MaxIterations = engine.Int(3)
	req.Tolerance = engine.Float(1e-12)

	env, err := eng.Solve(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !env.Success || env.Warning != solver.WarningCapReached {
		t.Fatalf("expected capped success, got success=%v warning=%q", env.Success, env.Warning)
	}
	if env.Iterations != 3 {
		t.Errorf("expected 3 iterations, got %d", env.Iterations)
	}
}

func TestSolve_PlotDomainAndCount(t *testing.T) {
	eng := engine.New(engine.Options{Defaults: engine.Defaults{SampleCount: 10}})

	env, err := eng.Solve(context.Background(), request("newton", "trigonometric"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(env.FunctionPoints) != 11 {
		t.Fatalf("expected 11 points, got %d", len(env.FunctionPoints))
	}
	if env.FunctionPoints[0].X != -1 || env.FunctionPoints[10].X != 2 {
		t.Errorf("expected trigonometric domain [-1, 2], got [%v, %v]", env.FunctionPoints[0].X, env.FunctionPoints[10].X)
	}

	req := request("newton", "trigonometric")
	req.PlotXMin, req.PlotXMax, req.SampleCount = engine.Float(0), engine.Float(1), engine.Int(4)
	env, _ = eng.Solve(context.Background(), req)
	if len(env.FunctionPoints) != 5 || env.FunctionPoints[4].X != 1 {
		t.Errorf("expected 5 points ending at 1, got %v", env.FunctionPoints)
	}
}

func TestSolve_RecordsHistory(t *testing.T) {
	hist := &fakeHistory{}
	eng := engine.New(engine.Options{History: hist})

	env, err := eng.Solve(context.Background(), request("secant", "exponential"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if env.RunID == "" {
		t.Fatal("expected a run id")
	}
	if len(hist.runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(hist.runs))
	}

	run := hist.runs[0]
	if run.ID != env.RunID || run.Method != "secant" || run.Function != "exponential" || !run.Success {
		t.Errorf("unexpected run: %+v", run)
	}
	if run.Root == nil || *run.Root != *env.Root {
		t.Error("expected recorded root to match envelope")
	}

	iters := hist.iters[run.ID]
	if len(iters) != env.Iterations {
		t.Fatalf("expected %d iterations, got %d", env.Iterations, len(iters))
	}
	var rec map[string]interface{}
	if err := json.Unmarshal([]byte(iters[0].Record), &rec); err != nil {
		t.Fatalf("iteration record is not JSON: %v", err)
	}
	if _, ok := rec["x2"]; !ok {
		t.Errorf("expected secant record fields, got %v", rec)
	}

	var stored engine.SolveRequest
	if err := json.Unmarshal([]byte(run.Request), &stored); err != nil {
		t.Fatalf("request is not JSON: %v", err)
	}
	if stored.X1 == nil || *stored.X1 != 2 {
		t.Error("expected the stored request to carry filled defaults")
	}
}

func TestSolve_HistoryFailureDoesNotFailSolve(t *testing.T) {
	tel := telemetry.Nop()
	eng := engine.New(engine.Options{Telemetry: tel, History: &fakeHistory{err: errors.New("disk full")}})

	env, err := eng.Solve(context.Background(), request("newton", "polynomial"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !env.Success || env.RunID != "" {
		t.Errorf("expected success without run id, got success=%v run_id=%q", env.Success, env.RunID)
	}
}

func TestSolve_EqualSeedsReachSolver(t *testing.T) {
	eng := engine.New(engine.Options{})

	tests := []struct {
		name string
		req  engine.SolveRequest
		want string
	}{
		{
			name: "bisection",
			req:  engine.SolveRequest{Method: "bisection", FunctionType: "polynomial", A: engine.Float(2), B: engine.Float(2)},
			want: "opposite signs",
		},
		{
			name: "secant",
			req:  engine.SolveRequest{Method: "secant", FunctionType: "exponential", X0: engine.Float(1), X1: engine.Float(1)},
			want: "function values too close",
		},
	}
	for _, tt := range tests {
		env, err := eng.Solve(context.Background(), tt.req)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if env.Success || !strings.Contains(env.Error, tt.want) {
			t.Errorf("%s: expected failure containing %q, got %+v", tt.name, tt.want, env)
		}
	}
}

func TestSolve_Admission(t *testing.T) {
	t.Run("denied", func(t *testing.T) {
		adm := &fakeAdmitter{verdict: &engine.Admission{
			Allowed: false,
			Violations: []engine.Violation{
				{Policy: "iteration-budget", Message: "maxIterations 5000 exceeds the limit of 1000", Severity: engine.SeverityError},
			},
		}}
		hist := &fakeHistory{}
		eng := engine.New(engine.Options{Admitter: adm, History: hist})

		req := request("newton", "polynomial")
		req.MaxIterations = engine.Int(5000)
		_, err := eng.Solve(context.Background(), req)
		if !engine.IsPolicy(err) {
			t.Fatalf("expected policy error, got %v", err)
		}
		if !strings.Contains(engine.Reason(err), "exceeds the limit") {
			t.Errorf("expected violation message in reason, got %q", engine.Reason(err))
		}
		if len(hist.runs) != 0 {
			t.Error("expected rejected request not to be recorded")
		}

		input := adm.inputs[0]
		if input["maxIterations"] != 5000 || input["x0"] != 1.5 || input["sampleCount"] != solver.DefaultSampleCount {
			t.Errorf("unexpected policy input: %v", input)
		}
	})

	t.Run("warning", func(t *testing.T) {
		adm := &fakeAdmitter{verdict: &engine.Admission{
			Allowed: true,
			Violations: []engine.Violation{
				{Policy: "tolerance-floor", Message: "tolerance below 1e-15 may not be reachable", Severity: engine.SeverityWarning},
			},
		}}
		eng := engine.New(engine.Options{Admitter: adm})

		env, err := eng.Solve(context.Background(), request("newton", "polynomial"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(env.Notices) != 1 {
			t.Errorf("expected 1 notice, got %v", env.Notices)
		}
	})

	t.Run("evaluation error", func(t *testing.T) {
		eng := engine.New(engine.Options{Admitter: &fakeAdmitter{err: errors.New("rego failed")}})

		_, err := eng.Solve(context.Background(), request("newton", "polynomial"))
		if !engine.IsInternal(err) {
			t.Fatalf("expected internal error, got %v", err)
		}
	})
}

func TestSolve_PublishesEvents(t *testing.T) {
	tel := telemetry.Nop()
	var types []string
	tel.Events.Subscribe(func(e telemetry.Event) { types = append(types, e.Type) }, nil)

	eng := engine.New(engine.Options{Telemetry: tel})

	_, _ = eng.Solve(context.Background(), request("newton", "polynomial"))
	req := request("bisection", "polynomial")
	req.A, req.B = engine.Float(2), engine.Float(3)
	_, _ = eng.Solve(context.Background(), req)
	_, _ = eng.Solve(context.Background(), request("newton", "quartic"))

	want := []string{telemetry.EventTypeSolveCompleted, telemetry.EventTypeSolveFailed, telemetry.EventTypeSolveRejected}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("expected events %v, got %v", want, types)
	}
}

func TestCompare(t *testing.T) {
	hist := &fakeHistory{}
	eng := engine.New(engine.Options{History: hist})

	cmp, err := eng.Compare(context.Background(), engine.SolveRequest{FunctionType: "polynomial"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cmp.Methods) != 3 {
		t.Fatalf("expected 3 methods, got %d", len(cmp.Methods))
	}
	for _, m := range solver.Methods() {
		env := cmp.Methods[string(m)]
		if env == nil || !env.Success {
			t.Errorf("expected %s to succeed, got %+v", m, env)
			continue
		}
		if math.Abs(*env.Root-1.5214) > 1e-3 {
			t.Errorf("expected %s root near 1.5214, got %v", m, *env.Root)
		}
	}
	if len(hist.runs) != 3 {
		t.Errorf("expected 3 recorded runs, got %d", len(hist.runs))
	}
}

func TestCompare_PerMethodFailures(t *testing.T) {
	eng := engine.New(engine.Options{})

	base := engine.SolveRequest{
		FunctionType: "polynomial",
		A:            engine.Float(2),
		B:            engine.Float(2),
	}
	cmp, err := eng.Compare(context.Background(), base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bis := cmp.Methods["bisection"]
	if bis.Success || !strings.Contains(bis.Error, "opposite signs") {
		t.Errorf("expected bisection bracket failure, got %+v", bis)
	}
	if !cmp.Methods["newton"].Success || !cmp.Methods["secant"].Success {
		t.Error("expected newton and secant to succeed")
	}
}

func TestCompare_SharedValidation(t *testing.T) {
	eng := engine.New(engine.Options{})

	_, err := eng.Compare(context.Background(), engine.SolveRequest{FunctionType: "quartic"})
	if !engine.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSample(t *testing.T) {
	eng := engine.New(engine.Options{})

	points, err := eng.Sample(context.Background(), "polynomial", nil, nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 201 || points[0].X != 0 || points[200].X != 3 {
		t.Errorf("unexpected default sample: %d points", len(points))
	}

	if _, err := eng.Sample(context.Background(), "quartic", nil, nil, 0); !engine.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
	if _, err := eng.Sample(context.Background(), "polynomial", engine.Float(2), engine.Float(1), 0); !engine.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestSample_Admission(t *testing.T) {
	t.Run("input", func(t *testing.T) {
		adm := &fakeAdmitter{verdict: &engine.Admission{Allowed: true}}
		eng := engine.New(engine.Options{Admitter: adm})

		if _, err := eng.Sample(context.Background(), "exponential", nil, engine.Float(4), 8); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		input := adm.inputs[0]
		if input["functionType"] != "exponential" || input["plotXMin"] != 0.0 || input["plotXMax"] != 4.0 || input["sampleCount"] != 8 {
			t.Errorf("unexpected policy input: %v", input)
		}
	})

	t.Run("over budget", func(t *testing.T) {
		pol, err := policy.NewEngine(zerolog.Nop())
		if err != nil {
			t.Fatalf("failed to create policy engine: %v", err)
		}
		defer pol.Close()
		eng := engine.New(engine.Options{Admitter: pol})

		tests := []struct {
			name       string
			xMin, xMax float64
			count      int
			want       string
		}{
			{"sample count", 0, 3, 2_000_000, "sampleCount 2000000 exceeds the limit"},
			{"plot span", -1e12, 1e12, 10, "is wider than"},
		}
		for _, tt := range tests {
			_, err := eng.Sample(context.Background(), "polynomial", engine.Float(tt.xMin), engine.Float(tt.xMax), tt.count)
			if !engine.IsPolicy(err) {
				t.Fatalf("%s: expected policy error, got %v", tt.name, err)
			}
			if !strings.Contains(engine.Reason(err), tt.want) {
				t.Errorf("%s: expected %q in reason, got %q", tt.name, tt.want, engine.Reason(err))
			}
		}

		points, err := eng.Sample(context.Background(), "polynomial", nil, nil, 5000)
		if err != nil {
			t.Fatalf("expected the limit itself to be admitted, got %v", err)
		}
		if len(points) != 5001 {
			t.Errorf("expected 5001 points, got %d", len(points))
		}
	})

	t.Run("non-finite bound", func(t *testing.T) {
		eng := engine.New(engine.Options{})
		_, err := eng.Sample(context.Background(), "polynomial", engine.Float(math.Inf(-1)), nil, 0)
		if !engine.IsConfiguration(err) {
			t.Errorf("expected configuration error, got %v", err)
		}
	})
}

func TestMethodsAndFunctions(t *testing.T) {
	eng := engine.New(engine.Options{})
	if len(eng.Methods()) != 3 || len(eng.Functions()) != 3 {
		t.Errorf("expected 3 methods and 3 functions")
	}
}
