package apperrors

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Process exit codes.
const (
	ExitSuccess       = 0
	ExitErrorGeneric  = 1
	ExitErrorTimeout  = 2
	ExitErrorMismatch = 3 // strategies or repeated runs disagree on the total
	ExitErrorConfig   = 4
	ExitErrorCanceled = 130 // SIGINT, or the user quit the dashboard
)

// ConfigError is an invalid flag, environment value or flag combination.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string { return e.Message }

// NewConfigError formats a ConfigError.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ValidationError rejects one input value: a negative Fibonacci index, a
// worker count below one, a rank outside the group.
type ValidationError struct {
	Field   string
	Message string
	// Cause is an optional sentinel the failure can be matched against.
	Cause error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

func (e ValidationError) Unwrap() error { return e.Cause }

// CalculationError is a failure while summing a partition.
type CalculationError struct {
	Cause error
}

func (e CalculationError) Error() string { return e.Cause.Error() }

func (e CalculationError) Unwrap() error { return e.Cause }

// CollectiveError reports a failed broadcast or gather. The run that
// observes one must be aborted; there is no partial result.
type CollectiveError struct {
	Op    string // "broadcast", "gather" or "connect"
	Rank  int
	Cause error
}

func (e CollectiveError) Error() string {
	return fmt.Sprintf("collective %s failed at rank %d: %v", e.Op, e.Rank, e.Cause)
}

func (e CollectiveError) Unwrap() error { return e.Cause }

// TimeoutError is a run stopped by its -timeout limit.
type TimeoutError struct {
	Operation string
	Limit     time.Duration
	Cause     error
}

func (e TimeoutError) Error() string {
	return fmt.Sprintf("operation %q timed out after %s", e.Operation, e.Limit)
}

func (e TimeoutError) Unwrap() error { return e.Cause }

// AsTimeout converts a deadline error into a TimeoutError for operation.
// Other errors, nil included, are returned unchanged.
func AsTimeout(err error, operation string, limit time.Duration) error {
	if err == nil || !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return TimeoutError{Operation: operation, Limit: limit, Cause: err}
}

// WrapError prefixes err with a formatted message, keeping it matchable
// with errors.Is and errors.As. A nil err stays nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// IsContextError reports whether err comes from a canceled or expired context.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
