package rules

import (
	"fmt"

	"github.com/openfroyo/conformance/pkg/artifact"
)

// Status is the three-way outcome of evaluating one rule.
type Status string

const (
	// StatusPass means the artifact satisfies the rule.
	StatusPass Status = "pass"

	// StatusFail means the artifact was inspected and violates the rule.
	StatusFail Status = "fail"

	// StatusError means the rule could not be evaluated.
	StatusError Status = "error"
)

// Verdict is the result of evaluating one rule. Reason is empty for Pass,
// names the violated expectation for Fail, and carries the cause for Error.
type Verdict struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Pass returns a passing verdict.
func Pass() Verdict {
	return Verdict{Status: StatusPass}
}

// Fail returns a failing verdict with a formatted reason.
func Fail(format string, args ...any) Verdict {
	return Verdict{Status: StatusFail, Reason: fmt.Sprintf(format, args...)}
}

// Errorf returns an error verdict with a formatted cause.
func Errorf(format string, args ...any) Verdict {
	return Verdict{Status: StatusError, Reason: fmt.Sprintf(format, args...)}
}

// ErrorFrom returns an error verdict whose cause is the classified error
// text, e.g. "missing: ./Dockerfile not found".
func ErrorFrom(err error) Verdict {
	return Verdict{Status: StatusError, Reason: artifact.Cause(err)}
}

// IsPass reports whether the verdict is a Pass.
func (v Verdict) IsPass() bool { return v.Status == StatusPass }

// String renders the verdict as "PASS", "FAIL: reason" or "ERROR: cause".
func (v Verdict) String() string {
	switch v.Status {
	case StatusPass:
		return "PASS"
	case StatusFail:
		return "FAIL: " + v.Reason
	default:
		return "ERROR: " + v.Reason
	}
}
