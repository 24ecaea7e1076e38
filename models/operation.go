package models

import (
	"encoding/json"
	"fmt"
)

// OperationStatus is the closed set of states a remote operation can be in.
// The zero value is not a valid status; it only appears when decoding fails.
type OperationStatus int

const (
	OperationInProgress OperationStatus = iota + 1
	OperationFailed
	OperationCompleted
)

var operationStatusNames = map[OperationStatus]string{
	OperationInProgress: "in_progress",
	OperationFailed:     "failed",
	OperationCompleted:  "completed",
}

// String returns the wire form of the status.
func (s OperationStatus) String() string {
	if name, ok := operationStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("OperationStatus(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s OperationStatus) Terminal() bool {
	return s == OperationFailed || s == OperationCompleted
}

// ParseOperationStatus converts a wire status string. Unknown strings are rejected
// so an unexpected server response can never be mistaken for a known state.
func ParseOperationStatus(s string) (OperationStatus, error) {
	for status, name := range operationStatusNames {
		if name == s {
			return status, nil
		}
	}
	return 0, fmt.Errorf("unknown operation status %q", s)
}

// MarshalJSON implements json.Marshaler.
func (s OperationStatus) MarshalJSON() ([]byte, error) {
	name, ok := operationStatusNames[s]
	if !ok {
		return nil, fmt.Errorf("cannot marshal invalid operation status %d", int(s))
	}
	return json.Marshal(name)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *OperationStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("operation status must be a string: %w", err)
	}
	status, err := ParseOperationStatus(raw)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// Operation is a remote asynchronous unit of work. It is returned by create,
// upgrade and destroy requests and re-fetched by ID until terminal.
type Operation struct {
	ID      string          `json:"id"`
	Status  OperationStatus `json:"status"`
	Message string          `json:"message"`
}
