package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/openfroyo/rootfind/pkg/engine"
	"github.com/openfroyo/rootfind/pkg/stores"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Class   string `json:"class,omitempty"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

type runDetail struct {
	Run        *stores.Run        `json:"run"`
	Iterations []stores.Iteration `json:"iterations"`
}

type healthBody struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
	Store  string    `json:"store"`
}

func (s *Server) handleSolve(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRequest(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	env, err := s.engine.Solve(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, env)
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRequest(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	cmp, err := s.engine.Compare(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

func (s *Server) handleFunctions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Functions())
}

func (s *Server) handleMethods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Methods())
}

func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	xMin, err := queryFloat(q.Get("xmin"), "xmin")
	if err != nil {
		s.writeError(w, err)
		return
	}
	xMax, err := queryFloat(q.Get("xmax"), "xmax")
	if err != nil {
		s.writeError(w, err)
		return
	}
	count, err := queryInt(q.Get("count"), "count", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}

	points, err := s.engine.Sample(r.Context(), q.Get("function"), xMin, xMax, count)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w) {
		return
	}

	q := r.URL.Query()
	limit, err := queryInt(q.Get("limit"), "limit", defaultRunLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	offset, err := queryInt(q.Get("offset"), "offset", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if limit <= 0 || limit > maxRunLimit {
		limit = defaultRunLimit
	}

	filter := stores.RunFilter{
		Method:   q.Get("method"),
		Function: q.Get("function"),
		Limit:    limit,
		Offset:   offset,
	}
	if v := q.Get("success"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			s.writeError(w, badQuery("success", err))
			return
		}
		filter.Success = &b
	}

	runs, err := s.history.ListRuns(r.Context(), filter)
	if err != nil {
		s.writeError(w, engine.NewInternalError("failed to list runs", err))
		return
	}
	if runs == nil {
		runs = []*stores.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w) {
		return
	}

	id := r.PathValue("id")
	run, err := s.history.GetRun(r.Context(), id)
	if errors.Is(err, stores.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: fmt.Sprintf("run %s not found", id)})
		return
	}
	if err != nil {
		s.writeError(w, engine.NewInternalError("failed to load run", err))
		return
	}

	iterations, err := s.history.GetIterations(r.Context(), id)
	if err != nil {
		s.writeError(w, engine.NewInternalError("failed to load iterations", err))
		return
	}
	if iterations == nil {
		iterations = []stores.Iteration{}
	}
	writeJSON(w, http.StatusOK, runDetail{Run: run, Iterations: iterations})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w) {
		return
	}

	stats, err := s.history.Stats(r.Context())
	if err != nil {
		s.writeError(w, engine.NewInternalError("failed to compute stats", err))
		return
	}
	if stats == nil {
		stats = []stores.MethodStats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := healthBody{Status: "ok", Time: time.Now().UTC(), Store: "disabled"}
	status := http.StatusOK

	if s.history != nil {
		if err := s.history.HealthCheck(r.Context()); err != nil {
			body.Status = "degraded"
			body.Store = "unavailable: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			body.Store = "ok"
		}
	}
	writeJSON(w, status, body)
}

func (s *Server) historyEnabled(w http.ResponseWriter) bool {
	if s.history != nil {
		return true
	}
	writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "history store is disabled"})
	return false
}

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (engine.SolveRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return engine.SolveRequest{}, engine.NewConfigurationError(
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit), nil,
			).WithCode(engine.ErrCodeMalformed)
		}
		return engine.SolveRequest{}, engine.NewConfigurationError("failed to read request body", err).WithCode(engine.ErrCodeMalformed)
	}
	return engine.ParseRequest(data)
}

// writeError maps an error class to a status: configuration is the
// client's fault, policy is a refusal, anything else is ours.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch engine.ClassOf(err) {
	case engine.ErrorClassConfiguration:
		status = http.StatusBadRequest
	case engine.ErrorClassPolicy:
		status = http.StatusUnprocessableEntity
	}

	body := errorBody{
		Error: engine.Reason(err),
		Class: string(engine.ClassOf(err)),
		Code:  engine.CodeOf(err),
	}
	var ee *engine.EngineError
	if errors.As(err, &ee) {
		body.Field = ee.Field
	}
	if status == http.StatusInternalServerError {
		s.log.Zerolog().Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badQuery(name string, err error) error {
	return engine.NewConfigurationError("invalid query parameter "+name, err).
		WithCode(engine.ErrCodeValidation).
		WithField(name)
}

func queryFloat(v, name string) (*float64, error) {
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, badQuery(name, err)
	}
	return &f, nil
}

func queryInt(v, name string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, badQuery(name, err)
	}
	return n, nil
}
