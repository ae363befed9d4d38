package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/openfroyo/rootfind/pkg/engine"
	"github.com/openfroyo/rootfind/pkg/functions"
	"github.com/openfroyo/rootfind/pkg/solver"
	"github.com/openfroyo/rootfind/pkg/stores"
	"github.com/openfroyo/rootfind/pkg/telemetry"
)

// DefaultMaxBodyBytes bounds the size of a request body.
const DefaultMaxBodyBytes = 1 << 20

// Solver is the part of the engine the API serves.
type Solver interface {
	Solve(ctx context.Context, req engine.SolveRequest) (*engine.Envelope, error)
	Compare(ctx context.Context, req engine.SolveRequest) (*engine.Comparison, error)
	Methods() []solver.MethodInfo
	Functions() []*functions.Spec
	Sample(ctx context.Context, function string, xMin, xMax *float64, count int) ([]solver.PlotPoint, error)
}

// History is the read side of the run store.
type History interface {
	ListRuns(ctx context.Context, filter stores.RunFilter) ([]*stores.Run, error)
	GetRun(ctx context.Context, id string) (*stores.Run, error)
	GetIterations(ctx context.Context, runID string) ([]stores.Iteration, error)
	Stats(ctx context.Context) ([]stores.MethodStats, error)
	HealthCheck(ctx context.Context) error
}

// Options configure a Server. Engine is required; History may be nil when
// the store is disabled.
type Options struct {
	Engine       Solver
	History      History
	Telemetry    *telemetry.Telemetry
	MaxBodyBytes int64
}

// Timeouts bound the lifetime of connections and of a graceful shutdown.
type Timeouts struct {
	Read     time.Duration
	Write    time.Duration
	Shutdown time.Duration
}

// Server exposes the engine over JSON HTTP.
type Server struct {
	engine  Solver
	history History
	tel     *telemetry.Telemetry
	log     *telemetry.Logger
	maxBody int64
	mux     *http.ServeMux
}

// New builds a server and registers its routes.
func New(opts Options) *Server {
	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.Nop()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	s := &Server{
		engine:  opts.Engine,
		history: opts.History,
		tel:     tel,
		log:     tel.Logger.NewComponentLogger("server"),
		maxBody: maxBody,
		mux:     http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/solve", s.handleSolve)
	s.mux.HandleFunc("POST /api/compare", s.handleCompare)
	s.mux.HandleFunc("GET /api/functions", s.handleFunctions)
	s.mux.HandleFunc("GET /api/methods", s.handleMethods)
	s.mux.HandleFunc("GET /api/sample", s.handleSample)
	s.mux.HandleFunc("GET /api/runs", s.handleListRuns)
	s.mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	s.mux.HandleFunc("GET /api/stats", s.handleStats)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	if cfg := s.tel.Config; cfg != nil && cfg.Metrics.Enabled {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, s.tel.Metrics.Handler())
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return s.recoverPanics(s.instrument(s.mux))
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully within the shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context, addr string, t Timeouts) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln, t)
}

// Serve accepts connections on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener, t Timeouts) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       t.Read,
		ReadHeaderTimeout: t.Read,
		WriteTimeout:      t.Write,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.tel.WithContext(context.Background()) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Zerolog().Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdown := t.Shutdown
	if shutdown <= 0 {
		shutdown = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdown)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
