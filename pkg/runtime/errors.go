package runtime

import (
	"errors"
	"fmt"
)

// BinaryNotFoundError is returned at engine construction when the OCI
// runtime binary is missing or not executable. It is fatal: the engine
// cannot operate without it.
type BinaryNotFoundError struct {
	Binary string
	Err    error
}

func (e *BinaryNotFoundError) Error() string {
	return fmt.Sprintf("runtime binary not found: %s: %v", e.Binary, e.Err)
}

func (e *BinaryNotFoundError) Unwrap() error { return e.Err }

// CommandError is returned when an OCI runtime command exits non-zero
// and its stderr does not indicate an ignorable condition.
type CommandError struct {
	Command string // subcommand, e.g. "create" or "kill SIGTERM"
	Stderr  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("runtime command failed: %s: %s", e.Command, e.Stderr)
}

// NotFoundError is returned when a container is unknown to both the
// OCI runtime and the engine's registry.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("container not found: %s", e.ID)
}

// StateError is returned when the runtime's state output cannot be
// decoded as the expected JSON document.
type StateError struct {
	Output string
	Err    error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("invalid state output: %v", e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }

// TimeoutError is returned when a runtime command exceeds the
// configured command timeout. The in-flight process is killed.
type TimeoutError struct {
	Command string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command timed out: %s", e.Command)
}

// IsNotFound reports whether err indicates a missing container
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsTimeout reports whether err indicates a command timeout
func IsTimeout(err error) bool {
	var to *TimeoutError
	return errors.As(err, &to)
}
