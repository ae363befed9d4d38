package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/openfroyo/rootfind/pkg/engine"
)

// Environment variables that override file settings.
const (
	EnvAddress   = "ROOTFIND_ADDRESS"
	EnvStorePath = "ROOTFIND_STORE_PATH"
	EnvLogLevel  = "ROOTFIND_LOG_LEVEL"
)

// Loader reads configuration and request files written in CUE, JSON or
// YAML. Every document is unified with a built-in CUE schema, which also
// supplies defaults, and the decoded result is checked with struct tags.
type Loader struct {
	registry  *SchemaRegistry
	validator *validator.Validate
	getenv    func(string) string
}

// NewLoader creates a loader that reads overrides from the process
// environment.
func NewLoader() *Loader {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Loader{
		registry:  NewSchemaRegistry(),
		validator: v,
		getenv:    os.Getenv,
	}
}

// Registry returns the schema registry used by the loader.
func (l *Loader) Registry() *SchemaRegistry {
	return l.registry
}

// Load reads the configuration at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	return NewLoader().Load(path)
}

// Load reads the configuration at path. An empty path yields the defaults,
// still subject to environment overrides.
func (l *Loader) Load(path string) (*Config, error) {
	var (
		data   []byte
		format = "cue"
	)
	if path != "" {
		var err error
		if format, err = formatOf(path); err != nil {
			return nil, err
		}
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg, err := l.Parse(data, format, path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse resolves configuration from raw bytes in the given format.
func (l *Loader) Parse(data []byte, format, name string) (*Config, error) {
	var cfg Config
	err := l.registry.resolve(SchemaConfig, func(ctx *cue.Context) (cue.Value, error) {
		return compile(ctx, data, format, name)
	}, &cfg)
	if err != nil {
		return nil, withSource(err, name)
	}
	cfg.Source = name

	l.applyEnv(&cfg)

	if err := l.Validate(&cfg); err != nil {
		return nil, withSource(err, name)
	}
	return &cfg, nil
}

// Default returns the built-in defaults without reading the environment.
func Default() *Config {
	l := NewLoader()
	l.getenv = func(string) string { return "" }
	cfg, err := l.Parse(nil, "cue", "")
	if err != nil {
		panic(fmt.Sprintf("default configuration is invalid: %v", err))
	}
	return cfg
}

// Validate checks struct-level constraints that the schema does not cover.
func (l *Loader) Validate(cfg *Config) error {
	if err := l.validator.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		out := make([]ValidationError, 0, len(verrs))
		for _, fe := range verrs {
			path := strings.TrimPrefix(fe.Namespace(), "Config.")
			out = append(out, ValidationError{
				Path:    path,
				Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
			})
		}
		return &LoadError{Errors: out}
	}

	if _, _, _, err := cfg.Server.Durations(); err != nil {
		return &LoadError{Errors: []ValidationError{{Message: err.Error()}}}
	}
	return nil
}

func (l *Loader) applyEnv(cfg *Config) {
	if v := l.getenv(EnvAddress); v != "" {
		cfg.Server.Address = v
	}
	if v := l.getenv(EnvStorePath); v != "" {
		cfg.Store.Path = v
	}
	if v := l.getenv(EnvLogLevel); v != "" {
		cfg.Telemetry.Logging.Level = strings.ToLower(v)
	}
}

// LoadRequests reads a batch file of the form {requests: [...]}.
func (l *Loader) LoadRequests(path string) ([]engine.SolveRequest, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read requests: %w", err)
	}

	var batch struct {
		Requests []engine.SolveRequest `json:"requests"`
	}
	err = l.registry.resolve(SchemaBatch, func(ctx *cue.Context) (cue.Value, error) {
		return compile(ctx, data, format, path)
	}, &batch)
	if err != nil {
		return nil, withSource(err, path)
	}
	return batch.Requests, nil
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return "cue", nil
	case ".json":
		return "json", nil
	case ".yaml", ".yml":
		return "yaml", nil
	}
	return "", fmt.Errorf("unsupported config format %q", filepath.Ext(path))
}

// compile turns a document into a CUE value. JSON is valid CUE; YAML is
// decoded first and encoded.
func compile(ctx *cue.Context, data []byte, format, name string) (cue.Value, error) {
	switch format {
	case "cue", "json":
		val := ctx.CompileBytes(data, cue.Filename(name))
		if err := val.Err(); err != nil {
			return cue.Value{}, &LoadError{Errors: convertCUEErrors(err)}
		}
		return val, nil
	case "yaml":
		doc := map[string]interface{}{}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return cue.Value{}, &LoadError{Errors: []ValidationError{{File: name, Message: err.Error()}}}
		}
		val := ctx.Encode(doc)
		if err := val.Err(); err != nil {
			return cue.Value{}, fmt.Errorf("failed to encode yaml: %w", err)
		}
		return val, nil
	}
	return cue.Value{}, fmt.Errorf("unsupported format %q", format)
}

func withSource(err error, source string) error {
	var le *LoadError
	if errors.As(err, &le) && le.Source == "" {
		le.Source = source
	}
	return err
}

// convertCUEErrors flattens a CUE error into positioned entries.
func convertCUEErrors(err error) []ValidationError {
	var out []ValidationError

	for _, e := range cueerrors.Errors(err) {
		ve := ValidationError{
			Path:    strings.Join(e.Path(), "."),
			Message: strings.TrimSpace(cueerrors.Details(e, nil)),
		}
		if pos := cueerrors.Positions(e); len(pos) > 0 {
			ve.File = pos[0].Filename()
			ve.Line = pos[0].Line()
			ve.Column = pos[0].Column()
		}
		out = append(out, ve)
	}

	return out
}
