package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/openfroyo/rootfind/pkg/policy"
	"github.com/openfroyo/rootfind/pkg/telemetry"
)

// Config is the resolved service configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Solver    SolverConfig    `json:"solver" yaml:"solver"`
	Store     StoreConfig     `json:"store" yaml:"store"`
	Policy    PolicyConfig    `json:"policy" yaml:"policy"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`

	// Source is the file the configuration was read from, empty for defaults.
	Source string `json:"-" yaml:"-"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	// Address is the listen address, e.g. ":8080".
	Address string `json:"address" yaml:"address" validate:"required"`

	// Timeouts are Go duration strings such as "10s".
	ReadTimeout     string `json:"readTimeout" yaml:"readTimeout" validate:"required"`
	WriteTimeout    string `json:"writeTimeout" yaml:"writeTimeout" validate:"required"`
	ShutdownTimeout string `json:"shutdownTimeout" yaml:"shutdownTimeout" validate:"required"`
}

// Durations returns the parsed read, write and shutdown timeouts.
func (s ServerConfig) Durations() (read, write, shutdown time.Duration, err error) {
	if read, err = time.ParseDuration(s.ReadTimeout); err != nil {
		return 0, 0, 0, fmt.Errorf("server.readTimeout: %w", err)
	}
	if write, err = time.ParseDuration(s.WriteTimeout); err != nil {
		return 0, 0, 0, fmt.Errorf("server.writeTimeout: %w", err)
	}
	if shutdown, err = time.ParseDuration(s.ShutdownTimeout); err != nil {
		return 0, 0, 0, fmt.Errorf("server.shutdownTimeout: %w", err)
	}
	return read, write, shutdown, nil
}

// SolverConfig holds the defaults applied to requests that omit them.
type SolverConfig struct {
	DefaultTolerance     float64 `json:"defaultTolerance" yaml:"defaultTolerance" validate:"gt=0"`
	DefaultMaxIterations int     `json:"defaultMaxIterations" yaml:"defaultMaxIterations" validate:"gt=0"`
	SampleCount          int     `json:"sampleCount" yaml:"sampleCount" validate:"gt=0"`
}

// StoreConfig configures run history persistence.
type StoreConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file, or ":memory:".
	Path string `json:"path" yaml:"path" validate:"required_if=Enabled true"`

	// RetentionDays prunes older runs at startup. Zero keeps everything.
	RetentionDays int `json:"retentionDays" yaml:"retentionDays" validate:"gte=0"`
}

// PolicyConfig configures admission policies.
type PolicyConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Paths are extra .rego files or directories loaded on top of the
	// built-in policies.
	Paths []string `json:"paths" yaml:"paths"`

	// Watch reloads Paths when they change.
	Watch bool `json:"watch" yaml:"watch"`

	Limits policy.Limits `json:"limits" yaml:"limits"`
}

// TelemetryConfig is the file-facing subset of telemetry.Config.
type TelemetryConfig struct {
	Environment string         `json:"environment" yaml:"environment"`
	Logging     LoggingSection `json:"logging" yaml:"logging"`
	Tracing     TracingSection `json:"tracing" yaml:"tracing"`
	Metrics     MetricsSection `json:"metrics" yaml:"metrics"`
}

type LoggingSection struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"oneof=console json"`
	Output string `json:"output" yaml:"output" validate:"required"`
}

type TracingSection struct {
	Enabled      bool    `json:"enabled" yaml:"enabled"`
	Exporter     string  `json:"exporter" yaml:"exporter" validate:"oneof=none stdout otlp"`
	Endpoint     string  `json:"endpoint" yaml:"endpoint" validate:"required_if=Exporter otlp"`
	SamplingRate float64 `json:"samplingRate" yaml:"samplingRate" validate:"gte=0,lte=1"`
	Insecure     bool    `json:"insecure" yaml:"insecure"`
}

type MetricsSection struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path" validate:"required,startswith=/"`
}

// Build maps the file settings onto a full telemetry configuration.
func (t TelemetryConfig) Build(version string) *telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Environment = t.Environment

	cfg.Logging.Level = t.Logging.Level
	cfg.Logging.Format = t.Logging.Format
	cfg.Logging.Output = t.Logging.Output

	cfg.Tracing.Enabled = t.Tracing.Enabled
	cfg.Tracing.Exporter = t.Tracing.Exporter
	cfg.Tracing.Endpoint = t.Tracing.Endpoint
	cfg.Tracing.SamplingRate = t.Tracing.SamplingRate
	cfg.Tracing.Insecure = t.Tracing.Insecure

	cfg.Metrics.Enabled = t.Metrics.Enabled
	cfg.Metrics.Path = t.Metrics.Path

	return cfg
}

// ValidationError represents a validation error with location information.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the field path, e.g. "solver.defaultTolerance".
	Path string `json:"path,omitempty"`

	Message string `json:"message"`
}

func (v ValidationError) String() string {
	var b strings.Builder
	if v.File != "" {
		b.WriteString(v.File)
		if v.Line > 0 {
			fmt.Fprintf(&b, ":%d:%d", v.Line, v.Column)
		}
		b.WriteString(": ")
	}
	if v.Path != "" {
		b.WriteString(v.Path)
		b.WriteString(": ")
	}
	b.WriteString(v.Message)
	return b.String()
}

// LoadError collects every problem found while loading a file.
type LoadError struct {
	Source string
	Errors []ValidationError
}

func (e *LoadError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		msgs[i] = v.String()
	}
	src := e.Source
	if src == "" {
		src = "config"
	}
	return fmt.Sprintf("invalid %s: %s", src, strings.Join(msgs, "; "))
}
