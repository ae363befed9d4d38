package config

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/openfroyo/rootfind/pkg/engine"
	"github.com/openfroyo/rootfind/pkg/functions"
	"github.com/openfroyo/rootfind/pkg/solver"
)

// Schema names registered by NewSchemaRegistry.
const (
	SchemaConfig  = "config"
	SchemaRequest = "request"
	SchemaBatch   = "batch"
)

// SchemaRegistry manages CUE schemas for validation. A cue.Context is not
// safe for concurrent use, so every operation holds the registry lock.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.Mutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	sr := &SchemaRegistry{
		ctx:     cuecontext.New(),
		schemas: make(map[string]cue.Value),
	}

	root := sr.ctx.CompileString(builtinSchemas(), cue.Filename("builtin.cue"))
	if err := root.Err(); err != nil {
		panic(fmt.Sprintf("built-in schemas do not compile: %v", err))
	}
	sr.schemas[SchemaConfig] = root.LookupPath(cue.ParsePath("#Config"))
	sr.schemas[SchemaRequest] = root.LookupPath(cue.ParsePath("#Request"))
	sr.schemas[SchemaBatch] = root.LookupPath(cue.ParsePath("#Batch"))

	return sr
}

// RegisterSchema compiles schema and registers its value under name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema, cue.Filename(name+".cue"))
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema encodes data and checks it against a named schema.
func (sr *SchemaRegistry) ValidateAgainstSchema(_ context.Context, schemaName string, data interface{}) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	schema, ok := sr.schemas[schemaName]
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	unified := schema.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &LoadError{Source: schemaName, Errors: convertCUEErrors(err)}
	}

	return nil
}

// ValidateRequest checks a solve request against the request schema.
func (sr *SchemaRegistry) ValidateRequest(ctx context.Context, req engine.SolveRequest) error {
	return sr.ValidateAgainstSchema(ctx, SchemaRequest, req)
}

// resolve unifies val with a named schema and decodes the result into out.
func (sr *SchemaRegistry) resolve(schemaName string, build func(*cue.Context) (cue.Value, error), out interface{}) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	schema, ok := sr.schemas[schemaName]
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	val, err := build(sr.ctx)
	if err != nil {
		return err
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return &LoadError{Errors: convertCUEErrors(err)}
	}
	if err := unified.Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", schemaName, err)
	}
	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func disjunction(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, " | ")
}

func builtinSchemas() string {
	var methods, fns []string
	for _, m := range solver.Methods() {
		methods = append(methods, string(m))
	}
	for _, id := range functions.IDs() {
		fns = append(fns, string(id))
	}
	return fmt.Sprintf(builtinSchemaTemplate, disjunction(methods), disjunction(fns))
}

// The request enums are filled in from the solver and function registries.
const builtinSchemaTemplate = `
#Duration: =~"^[0-9]+(ms|s|m|h)$"

#Config: {
	server: {
		address:         string | *":8080"
		readTimeout:     #Duration | *"10s"
		writeTimeout:    #Duration | *"30s"
		shutdownTimeout: #Duration | *"10s"
	}
	solver: {
		defaultTolerance:     number & >0 | *1e-6
		defaultMaxIterations: int & >0 | *100
		sampleCount:          int & >0 | *200
	}
	store: {
		enabled:       bool | *true
		path:          string | *"rootfind.db"
		retentionDays: int & >=0 | *0
	}
	policy: {
		enabled: bool | *true
		paths:   [...string] | *[]
		watch:   bool | *false
		limits: {
			maxIterations:  int & >=0 | *10000
			maxSampleCount: int & >=0 | *5000
			minTolerance:   number & >=0 | *1e-12
			maxPlotSpan:    number & >=0 | *1000
		}
	}
	telemetry: {
		environment: string | *"development"
		logging: {
			level:  "trace" | "debug" | *"info" | "warn" | "error"
			format: *"console" | "json"
			output: string | *"stderr"
		}
		tracing: {
			enabled:      bool | *false
			exporter:     *"none" | "stdout" | "otlp"
			endpoint:     string | *""
			samplingRate: number & >=0 & <=1 | *1.0
			insecure:     bool | *true
		}
		metrics: {
			enabled: bool | *true
			path:    string & =~"^/" | *"/metrics"
		}
	}
}

#Request: {
	method:         %s
	functionType:   %s
	tolerance?:     number & >0
	maxIterations?: int & >0
	a?:             number
	b?:             number
	x0?:            number
	x1?:            number
	plotXMin?:      number
	plotXMax?:      number
	sampleCount?:   int & >0
}

#Batch: {
	requests: [...#Request]
}
`
