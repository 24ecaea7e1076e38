package cloud

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when no usable secret key is configured
	// or the control plane rejects it.
	ErrNotAuthenticated = errors.New("not authenticated to the cloud")

	// ErrTimeout is returned when a remote call or operation exceeds its deadline.
	ErrTimeout = errors.New("timed out")

	// ErrVerificationFailed is returned when an operation completed but the
	// instance did not come up. It is a timeout-class failure.
	ErrVerificationFailed = fmt.Errorf("%w: instance is not available", ErrTimeout)

	// ErrAborted is returned when the user declines to log in.
	ErrAborted = errors.New("aborted")
)

// OperationFailedError carries the message of a remote operation that ended
// in the failed state.
type OperationFailedError struct {
	OperationID string
	Message     string
}

func (e *OperationFailedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("operation %s failed", e.OperationID)
	}
	return e.Message
}
