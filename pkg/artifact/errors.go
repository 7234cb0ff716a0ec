package artifact

import (
	"errors"
	"fmt"
)

// ErrorClass represents the classification of an error that prevented a rule
// from being evaluated. Classified errors always surface as Error verdicts,
// never as Fail verdicts.
type ErrorClass string

const (
	// ErrorClassMissing indicates the artifact does not exist at its location.
	ErrorClassMissing ErrorClass = "missing"

	// ErrorClassMalformed indicates the artifact exists but could not be decoded.
	ErrorClassMalformed ErrorClass = "malformed"

	// ErrorClassUnreadable indicates any other read or transport failure.
	ErrorClassUnreadable ErrorClass = "unreadable"

	// ErrorClassTool indicates an external collaborator could not be run.
	ErrorClassTool ErrorClass = "tool"

	// ErrorClassInternal indicates a fault inside a rule (panic, wrong view type).
	ErrorClassInternal ErrorClass = "internal"

	// ErrorClassCancelled indicates the run was aborted before the artifact was reached.
	ErrorClassCancelled ErrorClass = "cancelled"
)

// ConformError represents a classified error with context.
type ConformError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Artifact is the logical artifact name, if applicable.
	Artifact string `json:"artifact,omitempty"`

	// Rule is the rule ID, if applicable.
	Rule string `json:"rule,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ConformError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	switch {
	case e.Artifact != "" && e.Rule != "":
		return fmt.Sprintf("[%s] %s (artifact=%s, rule=%s)", e.Class, msg, e.Artifact, e.Rule)
	case e.Artifact != "":
		return fmt.Sprintf("[%s] %s (artifact=%s)", e.Class, msg, e.Artifact)
	default:
		return fmt.Sprintf("[%s] %s", e.Class, msg)
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *ConformError) Unwrap() error {
	return e.Err
}

// Is implements error equality checking for errors.Is.
func (e *ConformError) Is(target error) bool {
	t, ok := target.(*ConformError)
	if !ok {
		return false
	}
	return e.Class == t.Class
}

// Cause renders the error for an Error verdict as "class: message", without
// the artifact and rule context Error adds.
func (e *ConformError) Cause() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func newError(class ErrorClass, message string, err error) *ConformError {
	return &ConformError{Class: class, Message: message, Err: err}
}

// NewMissingError creates a new missing-artifact error.
func NewMissingError(message string, err error) *ConformError {
	return newError(ErrorClassMissing, message, err)
}

// NewMalformedError creates a new malformed-artifact error.
func NewMalformedError(message string, err error) *ConformError {
	return newError(ErrorClassMalformed, message, err)
}

// NewUnreadableError creates a new unreadable-artifact error.
func NewUnreadableError(message string, err error) *ConformError {
	return newError(ErrorClassUnreadable, message, err)
}

// NewToolError creates a new collaborator failure error.
func NewToolError(message string, err error) *ConformError {
	return newError(ErrorClassTool, message, err)
}

// NewInternalError creates a new internal rule fault error.
func NewInternalError(message string, err error) *ConformError {
	return newError(ErrorClassInternal, message, err)
}

// NewCancelledError creates a new cancellation error.
func NewCancelledError(message string, err error) *ConformError {
	return newError(ErrorClassCancelled, message, err)
}

// WithArtifact adds artifact context to an error.
func (e *ConformError) WithArtifact(name string) *ConformError {
	e.Artifact = name
	return e
}

// WithRule adds rule context to an error.
func (e *ConformError) WithRule(id string) *ConformError {
	e.Rule = id
	return e
}

// ClassOf returns the class of a classified error, or ErrorClassInternal for
// any unclassified error.
func ClassOf(err error) ErrorClass {
	var e *ConformError
	if errors.As(err, &e) {
		return e.Class
	}
	return ErrorClassInternal
}

// IsMissing returns true if the error is classified as missing.
func IsMissing(err error) bool {
	return isClass(err, ErrorClassMissing)
}

// IsMalformed returns true if the error is classified as malformed.
func IsMalformed(err error) bool {
	return isClass(err, ErrorClassMalformed)
}

// IsTool returns true if the error is classified as a collaborator failure.
func IsTool(err error) bool {
	return isClass(err, ErrorClassTool)
}

// IsCancelled returns true if the error is classified as cancelled.
func IsCancelled(err error) bool {
	return isClass(err, ErrorClassCancelled)
}

func isClass(err error, class ErrorClass) bool {
	var e *ConformError
	if errors.As(err, &e) {
		return e.Class == class
	}
	return false
}

// Cause renders any error as the cause text of an Error verdict.
func Cause(err error) string {
	var e *ConformError
	if errors.As(err, &e) {
		return e.Cause()
	}
	return fmt.Sprintf("%s: %v", ErrorClassInternal, err)
}
