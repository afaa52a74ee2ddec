package backup

import (
	"errors"
	"fmt"
)

// JobError represents errors that occur during a backup job
type JobError struct {
	Type    JobErrorType           `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`

	// Response holds the remote response body when the failure came from
	// the object store or the control plane. It takes precedence over the
	// error type code in the terminal error payload.
	Response string `json:"response,omitempty"`
}

// Error implements the error interface
func (e *JobError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying cause error
func (e *JobError) Unwrap() error {
	return e.Cause
}

// Code returns the string surfaced as the first line of the terminal error
// payload: the remote response body when one was captured, the error type
// otherwise.
func (e *JobError) Code() string {
	if e.Response != "" {
		return e.Response
	}
	return string(e.Type)
}

// JobErrorType represents different types of backup job errors
type JobErrorType string

const (
	JobErrorTypePrecondition  JobErrorType = "PRECONDITION_ERROR"
	JobErrorTypeKeyGeneration JobErrorType = "KEY_GENERATION_ERROR"
	JobErrorTypeNetwork       JobErrorType = "NETWORK_ERROR"
	JobErrorTypeValidation    JobErrorType = "VALIDATION_ERROR"
	JobErrorTypeUnexpected    JobErrorType = "UNEXPECTED_ERROR"
)

// NewJobError creates a new JobError
func NewJobError(errorType JobErrorType, message string, cause error) *JobError {
	return &JobError{
		Type:    errorType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (e *JobError) WithContext(key string, value interface{}) *JobError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithResponse attaches a remote response body to the error
func (e *JobError) WithResponse(body string) *JobError {
	e.Response = body
	return e
}

// Common error constructors

func NewPreconditionError(message string, cause error) *JobError {
	return NewJobError(JobErrorTypePrecondition, message, cause)
}

func NewKeyGenerationError(message string, cause error) *JobError {
	return NewJobError(JobErrorTypeKeyGeneration, message, cause)
}

func NewNetworkError(message string, cause error) *JobError {
	return NewJobError(JobErrorTypeNetwork, message, cause)
}

func NewValidationError(message string, cause error) *JobError {
	return NewJobError(JobErrorTypeValidation, message, cause)
}

func NewUnexpectedError(message string, cause error) *JobError {
	return NewJobError(JobErrorTypeUnexpected, message, cause)
}

// AsJobError converts any error into a JobError. Errors that are not already
// typed become UNEXPECTED_ERROR; the job surfaces exactly one of these.
func AsJobError(err error) *JobError {
	if err == nil {
		return nil
	}
	var jobErr *JobError
	if errors.As(err, &jobErr) {
		return jobErr
	}
	return NewUnexpectedError(err.Error(), err)
}

// ValidationError represents validation-specific errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidationErrors represents a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%d validation errors: %s (and %d more)", len(e), e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection
func (e *ValidationErrors) Add(field, message string, value interface{}) {
	*e = append(*e, ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	})
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
