package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseRequest decodes a JSON solve request. Numeric fields accept either a
// JSON number or a numeric string, and an empty string or null counts as
// absent. Integer fields must hold integral values.
func ParseRequest(data []byte) (SolveRequest, error) {
	var req SolveRequest

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return req, NewConfigurationError("malformed request body", err).WithCode(ErrCodeMalformed)
	}

	var err error
	if req.Method, err = stringField(raw, "method"); err != nil {
		return req, err
	}
	if req.FunctionType, err = stringField(raw, "functionType"); err != nil {
		return req, err
	}

	floats := []struct {
		name string
		dst  **float64
	}{
		{"tolerance", &req.Tolerance},
		{"a", &req.A},
		{"b", &req.B},
		{"x0", &req.X0},
		{"x1", &req.X1},
		{"plotXMin", &req.PlotXMin},
		{"plotXMax", &req.PlotXMax},
	}
	for _, f := range floats {
		if *f.dst, err = floatField(raw, f.name); err != nil {
			return req, err
		}
	}

	if req.MaxIterations, err = intField(raw, "maxIterations"); err != nil {
		return req, err
	}
	if req.SampleCount, err = intField(raw, "sampleCount"); err != nil {
		return req, err
	}

	return req, nil
}

func stringField(raw map[string]json.RawMessage, name string) (string, error) {
	msg, ok := raw[name]
	if !ok || isNull(msg) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		return "", NewConfigurationError(name+" must be a string", err).WithCode(ErrCodeMalformed).WithField(name)
	}
	return s, nil
}

func floatField(raw map[string]json.RawMessage, name string) (*float64, error) {
	msg, ok := raw[name]
	if !ok || isNull(msg) {
		return nil, nil
	}

	var text string
	if msg[0] == '"' {
		if err := json.Unmarshal(msg, &text); err != nil {
			return nil, NewConfigurationError(name+" must be a number", err).WithCode(ErrCodeMalformed).WithField(name)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, nil
		}
	} else {
		text = string(msg)
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, NewConfigurationError(fmt.Sprintf("%s must be a number, got %s", name, msg), nil).
			WithCode(ErrCodeMalformed).WithField(name)
	}
	return &v, nil
}

func intField(raw map[string]json.RawMessage, name string) (*int, error) {
	f, err := floatField(raw, name)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != math.Trunc(*f) || math.Abs(*f) > math.MaxInt32 {
		return nil, NewConfigurationError(fmt.Sprintf("%s must be an integer, got %g", name, *f), nil).WithField(name)
	}
	v := int(*f)
	return &v, nil
}

func isNull(msg json.RawMessage) bool {
	return len(msg) == 0 || bytes.Equal(bytes.TrimSpace(msg), []byte("null"))
}
