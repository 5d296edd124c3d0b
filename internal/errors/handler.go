package apperrors

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ColorProvider supplies the escape sequences used to highlight error output.
// It keeps this package independent of the ui package.
type ColorProvider interface {
	Red() string
	Yellow() string
	Reset() string
}

// HandleCalculationError writes a one-line report for err and returns its
// exit code. duration is appended when positive. A nil err is ExitSuccess.
func HandleCalculationError(err error, duration time.Duration, out io.Writer, colors ColorProvider) int {
	if err == nil {
		return ExitSuccess
	}

	suffix := ""
	if duration > 0 {
		suffix = fmt.Sprintf(" after %s", duration)
	}

	var timeoutErr TimeoutError
	var configErr ConfigError
	var validationErr ValidationError
	var collectiveErr CollectiveError

	switch {
	case errors.As(err, &timeoutErr):
		fmt.Fprintf(out, "%sStatus: Failure (Timeout). %s exceeded its %s limit%s.%s\n",
			colors.Red(), timeoutErr.Operation, timeoutErr.Limit, suffix, colors.Reset())
		return ExitErrorTimeout
	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(out, "%sStatus: Failure (Timeout). The run exceeded its deadline%s.%s\n",
			colors.Red(), suffix, colors.Reset())
		return ExitErrorTimeout
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(out, "%sStatus: Canceled by user%s.%s\n", colors.Yellow(), suffix, colors.Reset())
		return ExitErrorCanceled
	case errors.As(err, &configErr):
		fmt.Fprintf(out, "%sConfiguration error: %v%s\n", colors.Red(), err, colors.Reset())
		return ExitErrorConfig
	case errors.As(err, &validationErr):
		fmt.Fprintf(out, "%sInvalid input: %v%s\n", colors.Red(), err, colors.Reset())
		return ExitErrorConfig
	case errors.As(err, &collectiveErr):
		fmt.Fprintf(out, "%sStatus: Failure (Collective %s at rank %d)%s: %v%s\n",
			colors.Red(), collectiveErr.Op, collectiveErr.Rank, suffix, collectiveErr.Cause, colors.Reset())
		return ExitErrorGeneric
	default:
		fmt.Fprintf(out, "%sStatus: Failure%s. Unexpected error: %v%s\n", colors.Red(), suffix, err, colors.Reset())
		return ExitErrorGeneric
	}
}
