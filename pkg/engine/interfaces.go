package engine

import (
	"context"

	"github.com/openfroyo/rootfind/pkg/stores"
)

// Severity levels carried by admission violations.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Violation is one admission policy finding.
type Violation struct {
	Policy   string `json:"policy"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Admission is the verdict of the admission policies for one request.
type Admission struct {
	// Allowed is false when at least one error-severity violation exists.
	Allowed    bool        `json:"allowed"`
	Violations []Violation `json:"violations,omitempty"`
}

// Admitter evaluates admission policy against a fully defaulted request.
// The input document uses the request's JSON field names.
type Admitter interface {
	Admit(ctx context.Context, input map[string]interface{}) (*Admission, error)
}

// History persists solve runs.
type History interface {
	CreateRun(ctx context.Context, run *stores.Run, iterations []stores.Iteration) error
}
