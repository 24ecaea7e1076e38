package commands

import (
	"errors"

	"evalgo.org/portico/internal/portable"
)

const (
	// ExitFailure is the status of a command that failed.
	ExitFailure = 1

	// ExitPartialSuccess is the status of a command that did some of the
	// requested work and deliberately skipped the rest.
	ExitPartialSuccess = portable.ExitPartialSuccess
)

// ExitError carries a specific process exit status.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// partialSuccess wraps err with the partial success status.
func partialSuccess(err error) error {
	return &ExitError{Code: ExitPartialSuccess, Err: err}
}

// ExitCode maps an error returned by Execute to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}
