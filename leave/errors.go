/*
errors.go - Centralized error types for the leave domain

PURPOSE:
  All leave-domain errors in one place. Downstream layers (dialogue
  manager, HTTP handlers) branch on these with errors.Is/errors.As and
  turn them into prompts or status codes - never into panics. No failure
  aborts a session mid-flight.

ERROR CATEGORIES:
  1. Validation errors - business-rule rejections, carry ReasonCodes
  2. Conflict - optimistic-concurrency exhaustion, retryable by caller
  3. Not-found errors - missing employee / policy / balance

USAGE:
  var vf *leave.ValidationFailedError
  if errors.As(err, &vf) {
      // vf.Reasons lists every violated rule, not just the first
  }
*/
package leave

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConflict is returned when the committer exhausts its retry budget
	// against concurrent balance updates. Transient: the caller may retry.
	ErrConflict = errors.New("concurrent balance update conflict")

	// ErrValidationFailed is the sentinel wrapped by ValidationFailedError.
	ErrValidationFailed = errors.New("validation failed")

	// ErrInsufficientBalance is wrapped when the chargeable day count
	// exceeds the available balance.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrPolicyNotFound is returned when a leave type has no policy.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrEmployeeNotFound is returned when a balance or request lookup
	// references an unknown employee.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrRequestNotDraft is returned when the committer receives a request
	// that already moved past Draft.
	ErrRequestNotDraft = errors.New("request is not a draft")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationFailedError reports every violated rule of a rejected request.
type ValidationFailedError struct {
	RequestID string
	Reasons   []Reason
}

func (e *ValidationFailedError) Error() string {
	msgs := make([]string, len(e.Reasons))
	for i, r := range e.Reasons {
		msgs[i] = r.Message
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

func (e *ValidationFailedError) Unwrap() error { return ErrValidationFailed }

// ConflictError reports retry exhaustion with the attempt count.
type ConflictError struct {
	EmployeeID string
	Attempts   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("balance for %s changed concurrently, gave up after %d attempts",
		e.EmployeeID, e.Attempts)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsClientError returns true if the error is due to the request itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrRequestNotDraft)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrEmployeeNotFound)
}
