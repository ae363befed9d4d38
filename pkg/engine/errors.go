package engine

import (
	"errors"
	"fmt"
)

// ErrorClass classifies a request-level failure. Mathematical failures of a
// solver are not errors at this level; they travel inside the envelope.
type ErrorClass string

const (
	// ErrorClassConfiguration covers unknown identifiers, bad numeric
	// parameters and malformed request bodies.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassPolicy covers requests rejected by admission policy.
	ErrorClassPolicy ErrorClass = "policy"

	// ErrorClassInternal covers defects and collaborator failures.
	ErrorClassInternal ErrorClass = "internal"
)

// EngineError represents a classified error with context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	Class   ErrorClass `json:"class"`
	Message string     `json:"message"`
	Code    string     `json:"code,omitempty"`

	// Field names the offending request field, if any.
	Field string `json:"field,omitempty"`

	Err error `json:"-"`

	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field=%s)", msg, e.Field)
	}
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s", e.Class, msg, e.Err.Error())
	}
	return fmt.Sprintf("[%s] %s", e.Class, msg)
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is matches another *EngineError with the same class and code.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassConfiguration,
		Message: message,
		Code:    ErrCodeValidation,
		Err:     err,
	}
}

// NewPolicyError creates an admission policy error.
func NewPolicyError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassPolicy,
		Message: message,
		Code:    ErrCodePolicyDenied,
		Err:     err,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(message string, err error) *EngineError {
	return &EngineError{
		Class:   ErrorClassInternal,
		Message: message,
		Code:    ErrCodeInternal,
		Err:     err,
	}
}

// WithCode sets the error code.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithField names the offending request field.
func (e *EngineError) WithField(field string) *EngineError {
	e.Field = field
	return e
}

// WithDetail adds a detail field to the error context.
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ClassOf returns the class of err, or ErrorClassInternal for unclassified
// errors.
func ClassOf(err error) ErrorClass {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class
	}
	return ErrorClassInternal
}

// CodeOf returns the code of err, or "" for unclassified errors.
func CodeOf(err error) string {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConfiguration returns true if the error is a configuration error.
func IsConfiguration(err error) bool {
	var e *EngineError
	return errors.As(err, &e) && e.Class == ErrorClassConfiguration
}

// IsPolicy returns true if the error is an admission policy rejection.
func IsPolicy(err error) bool {
	var e *EngineError
	return errors.As(err, &e) && e.Class == ErrorClassPolicy
}

// IsInternal returns true for internal and unclassified errors.
func IsInternal(err error) bool {
	return err != nil && ClassOf(err) == ErrorClassInternal
}

// Common error codes.
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeMalformed       = "MALFORMED_REQUEST"
	ErrCodeUnknownMethod   = "UNKNOWN_METHOD"
	ErrCodeUnknownFunction = "UNKNOWN_FUNCTION"
	ErrCodePolicyDenied    = "POLICY_DENIED"
	ErrCodeInternal        = "INTERNAL_ERROR"
)
